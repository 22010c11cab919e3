// Copyright 2015 The Govisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package relauncher

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultTick       = time.Second
	DefaultRetryDelay = 5 * time.Second
)

// State is the lifecycle state of a supervised process.
//
//	Spawning --> Unverified --(check ok)--> Verified
//	                 |                         |
//	           (check failed)              (timeout)
//	                 |                         |
//	                 +-----> Terminating <-----+
//	                              |
//	                             Gone
//
// A restart leaves the old process Gone and starts a fresh one, with a new
// pid, at Spawning.  Descriptors without a health check skip Unverified.
type State int

const (
	StateSpawning State = iota
	StateUnverified
	StateVerified
	StateTerminating
	StateGone
)

func (st State) String() string {
	switch st {
	case StateSpawning:
		return "spawning"
	case StateUnverified:
		return "unverified"
	case StateVerified:
		return "verified"
	case StateTerminating:
		return "terminating"
	case StateGone:
		return "gone"
	}
	return "unknown"
}

// Spawner starts a command.  Spawn wrapped in a Spawner is the default.
type Spawner func(command string, dir string) (Handle, error)

// supervised is one launch of a descriptor.
type supervised struct {
	handle  Handle
	desc    *Descriptor
	tag     string
	started time.Time
	state   State
}

// entry tracks a descriptor across its restarts.
type entry struct {
	desc      *Descriptor
	proc      *supervised // nil while nothing runs
	restarts  int
	reason    string
	err       error
	spawnFail bool // err came from the last spawn
	stamp     time.Time
}

// ProcessInfo is a snapshot of one descriptor and its current process.
type ProcessInfo struct {
	Name      string
	App       string
	Check     string
	Pid       int // zero if nothing is running
	State     State
	Started   time.Time
	Restarts  int
	Reason    string // why the last restart happened
	Error     string // last launch or check error
	TimeStamp time.Time
}

// Supervisor launches descriptors, checks them, enforces their lifetime,
// and restarts them.  All of that happens on the goroutine that calls Run
// (and, before Run, the one calling Launch); see the package overview.
type Supervisor struct {
	logger       *Logger
	metrics      Metrics
	spawn        Spawner
	now          func() time.Time
	sleep        func(time.Duration)
	tick         time.Duration
	retry        time.Duration
	probeTimeout time.Duration
	sched        *Scheduler
	entries      map[*Descriptor]*entry
	order        []*Descriptor
	byName       map[string]*Descriptor
	requests     chan func()
	serial       int64
	closed       bool
	once         sync.Once
	mx           sync.Mutex
}

// Option configures a Supervisor.
type Option func(*Supervisor)

func WithLogger(l *Logger) Option {
	return func(s *Supervisor) {
		s.logger = l
	}
}

func WithMetrics(m Metrics) Option {
	return func(s *Supervisor) {
		s.metrics = m
	}
}

// WithSpawner replaces the function used to start processes.
func WithSpawner(sp Spawner) Option {
	return func(s *Supervisor) {
		s.spawn = sp
	}
}

// WithClock replaces the clock, and the sleep used for launch delays.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(s *Supervisor) {
		s.now = now
		s.sleep = sleep
	}
}

// WithTick sets how often Run polls the timers.
func WithTick(d time.Duration) Option {
	return func(s *Supervisor) {
		s.tick = d
	}
}

// WithRetryDelay sets how long to wait before launching again after the
// operating system refused to start a process.
func WithRetryDelay(d time.Duration) Option {
	return func(s *Supervisor) {
		s.retry = d
	}
}

// WithProbeTimeout bounds each startup check.
func WithProbeTimeout(d time.Duration) Option {
	return func(s *Supervisor) {
		s.probeTimeout = d
	}
}

func (s *Supervisor) logf(lvl Level, format string, v ...interface{}) {
	s.logger.Logf(lvl, format, v...)
}

func (s *Supervisor) entry(d *Descriptor) *entry {
	s.mx.Lock()
	defer s.mx.Unlock()
	if e, ok := s.entries[d]; ok {
		return e
	}
	if _, ok := s.byName[d.Name]; ok {
		// Two descriptors with one name would make the status API
		// ambiguous.  Profiles reject this, so it is a caller bug.
		panic(fmt.Sprintf("duplicate descriptor name %q", d.Name))
	}
	e := &entry{desc: d, stamp: s.now()}
	s.entries[d] = e
	s.byName[d.Name] = d
	s.order = append(s.order, d)
	return e
}

func (s *Supervisor) setState(p *supervised, st State) {
	s.mx.Lock()
	p.state = st
	s.mx.Unlock()
}

func (s *Supervisor) liveCount() int {
	n := 0
	s.mx.Lock()
	for _, e := range s.entries {
		if e.proc != nil {
			n++
		}
	}
	s.mx.Unlock()
	return n
}

func (s *Supervisor) isClosed() bool {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.closed
}

func retryTag(d *Descriptor) string {
	return "retry:" + d.Name
}

// Launch starts a process for d, after sleeping for d.Delay, and arms its
// startup check and timeout.  The sleep blocks the calling goroutine,
// which is the supervisor loop once Run is going; this is how launches of
// a batch are staggered.  If the process cannot be created the launch is
// retried later.  Launch never returns an error.
func (s *Supervisor) Launch(d *Descriptor) {
	if s.isClosed() {
		return
	}
	e := s.entry(d)
	if p := e.proc; p != nil {
		s.logf(LevelDebug, "%s already running as pid %d",
			d.Name, p.handle.Pid())
		return
	}
	s.logf(LevelInfo, "launching %s", d.App)

	if d.Delay > 0 {
		s.sleep(d.Delay)
	}

	h, err := s.spawn(d.App, d.Cwd)
	if err != nil {
		s.logf(LevelWarn, "cannot launch %s: %v", d.Name, err)
		s.metrics.SpawnFailed(d.Name)
		s.mx.Lock()
		e.err = err
		e.spawnFail = true
		e.stamp = s.now()
		s.mx.Unlock()
		s.sched.After(retryTag(d), KindRetry, s.retry, func() {
			s.Launch(d)
		})
		return
	}

	s.mx.Lock()
	s.serial++
	p := &supervised{
		handle:  h,
		desc:    d,
		tag:     fmt.Sprintf("%d.%d", h.Pid(), s.serial),
		started: s.now(),
		state:   StateSpawning,
	}
	e.proc = p
	if e.spawnFail {
		e.err = nil
		e.spawnFail = false
	}
	e.stamp = p.started
	s.mx.Unlock()

	s.logf(LevelMsg, "process got pid %d", h.Pid())
	s.metrics.Launched(d.Name)
	s.metrics.Live(s.liveCount())

	switch {
	case d.Check == nil:
		s.setState(p, StateVerified)
	case d.StartupTime == nil:
		// Nothing says when to look, so the process is never verified.
		s.setState(p, StateUnverified)
	default:
		s.setState(p, StateUnverified)
		s.sched.After(p.tag, KindStartupCheck, *d.StartupTime, func() {
			s.onStartupCheck(p)
		})
	}
	if d.Timeout > 0 {
		// The lifetime is counted from the start of the launch, so
		// the delay has already used some of it.
		s.sched.After(p.tag, KindTimeout, d.Timeout-d.Delay, func() {
			s.onTimeout(p)
		})
	}
}

// LaunchAll launches the descriptors in order.
func (s *Supervisor) LaunchAll(descs []*Descriptor) {
	for _, d := range descs {
		s.Launch(d)
	}
}

func (s *Supervisor) onStartupCheck(p *supervised) {
	d := p.desc
	s.logf(LevelInfo, "performing startup checks for %s", d.App)

	ctx, cancel := context.WithTimeout(context.Background(), s.probeTimeout)
	err := d.Check.Check(ctx)
	cancel()

	if err != nil {
		s.logf(LevelWarn, "startup check failed for %s: %v", d.App, err)
		s.metrics.ProbeFailed(d.Name, d.Check.String())
		s.restart(p, KindStartupCheck.String(), err)
		return
	}
	s.setState(p, StateVerified)
	s.logf(LevelInfo, "startup checks OK for %s", d.App)
}

func (s *Supervisor) onTimeout(p *supervised) {
	s.logf(LevelInfo, "process %s timeout", p.desc.App)
	s.restart(p, KindTimeout.String(), nil)
}

// restart kills p and launches its descriptor again.  Every timer of the
// old process is cancelled first, so none can fire for a dead pid.
func (s *Supervisor) restart(p *supervised, reason string, cause error) {
	d := p.desc
	s.logf(LevelWarn, "process %s restart", d.App)
	s.sched.Cancel(p.tag)
	s.terminateTree(p)

	s.mx.Lock()
	e := s.entries[d]
	e.restarts++
	e.reason = reason
	if cause != nil {
		e.err = cause
		e.spawnFail = false
	}
	e.stamp = s.now()
	s.mx.Unlock()

	s.metrics.Restarted(d.Name, reason)
	s.Launch(d)
}

// terminateTree stops p and all of its descendants, and removes it from
// the registry.  A process that is already gone counts as terminated.
func (s *Supervisor) terminateTree(p *supervised) {
	s.mx.Lock()
	if p.state == StateGone {
		s.mx.Unlock()
		return
	}
	p.state = StateTerminating
	s.mx.Unlock()

	forced, err := p.handle.Terminate()
	if err != nil && !IsAlreadyGone(err) {
		s.logf(LevelWarn, "terminating pid %d: %v", p.handle.Pid(), err)
	}
	s.metrics.ForceKilled(p.desc.Name, forced)

	s.mx.Lock()
	if e := s.entries[p.desc]; e != nil && e.proc == p {
		e.proc = nil
	}
	p.state = StateGone
	s.mx.Unlock()
	s.metrics.Live(s.liveCount())
}

// Reap relaunches descriptors marked Restart whose process has exited by
// itself.  Other descriptors keep a dead process registered until their
// timeout, if any, relaunches them.
func (s *Supervisor) Reap() {
	for _, d := range s.order {
		p := s.entries[d].proc
		if p == nil || !d.Restart || p.state == StateTerminating {
			continue
		}
		if !p.handle.Running() {
			s.logf(LevelInfo, "process %s exited", d.App)
			s.restart(p, "exit", nil)
		}
	}
}

// Tick fires due timers and reaps exited processes.  Run calls it once per
// tick; it is exported for callers that drive their own loop.
func (s *Supervisor) Tick() {
	s.sched.RunPending()
	s.Reap()
}

// Run is the supervisor loop.  It returns when ctx is done.
func (s *Supervisor) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		case fn := <-s.requests:
			fn()
		}
	}
}

// RequestRestart asks the loop to restart the named application, or to
// launch it right away if it is waiting for a retry.  It is safe to call
// from any goroutine.
func (s *Supervisor) RequestRestart(name string) error {
	s.mx.Lock()
	d, ok := s.byName[name]
	closed := s.closed
	s.mx.Unlock()
	if !ok {
		return ErrNoProcess
	}
	if closed {
		return ErrShutdown
	}
	select {
	case s.requests <- func() { s.manualRestart(d) }:
		return nil
	default:
		return ErrBusy
	}
}

func (s *Supervisor) manualRestart(d *Descriptor) {
	if p := s.entries[d].proc; p != nil {
		s.restart(p, "manual", nil)
		return
	}
	s.sched.Cancel(retryTag(d))
	s.metrics.Restarted(d.Name, "manual")
	s.Launch(d)
}

// Shutdown kills every tracked process tree, without grace, and stops the
// supervisor for good.  Only the first call does anything.  Errors are
// logged and skipped so that one vanished process cannot keep the others
// alive.  Shutdown must not run concurrently with Run.
func (s *Supervisor) Shutdown() {
	s.once.Do(func() {
		s.mx.Lock()
		s.closed = true
		var procs []*supervised
		for _, d := range s.order {
			if p := s.entries[d].proc; p != nil {
				procs = append(procs, p)
			}
		}
		s.mx.Unlock()

		for _, p := range procs {
			s.sweep(p)
		}
		s.sched.CancelAll()
		s.metrics.Live(0)
	})
}

func (s *Supervisor) sweep(p *supervised) {
	pid := p.handle.Pid()
	defer func() {
		if r := recover(); r != nil {
			s.logf(LevelWarn, "pid %d: %v", pid, r)
		}
		s.mx.Lock()
		if e := s.entries[p.desc]; e.proc == p {
			e.proc = nil
		}
		p.state = StateGone
		s.mx.Unlock()
	}()

	s.logf(LevelWarn, "kill pid %d and children", pid)
	if err := p.handle.Kill(); err != nil {
		if IsAlreadyGone(err) {
			s.logf(LevelWarn, "pid %d gone", pid)
		} else {
			s.logf(LevelWarn, "pid %d: %v", pid, err)
		}
	}
}

func (s *Supervisor) info(e *entry) ProcessInfo {
	d := e.desc
	i := ProcessInfo{
		Name:      d.Name,
		App:       d.App,
		State:     StateGone,
		Restarts:  e.restarts,
		Reason:    e.reason,
		TimeStamp: e.stamp,
	}
	if d.Check != nil {
		i.Check = d.Check.String()
	}
	if e.err != nil {
		i.Error = e.err.Error()
	}
	if p := e.proc; p != nil {
		i.Pid = p.handle.Pid()
		i.State = p.state
		i.Started = p.started
	}
	return i
}

// Processes returns a snapshot of every known descriptor, in launch order.
func (s *Supervisor) Processes() []ProcessInfo {
	s.mx.Lock()
	defer s.mx.Unlock()
	infos := make([]ProcessInfo, 0, len(s.order))
	for _, d := range s.order {
		infos = append(infos, s.info(s.entries[d]))
	}
	return infos
}

// Process returns a snapshot for one descriptor.
func (s *Supervisor) Process(name string) (ProcessInfo, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	d, ok := s.byName[name]
	if !ok {
		return ProcessInfo{}, ErrNoProcess
	}
	return s.info(s.entries[d]), nil
}

// History returns the log history attached to the logger, if any.
func (s *Supervisor) History() *History {
	return s.logger.History()
}

// Logger returns the logger used by the supervisor.
func (s *Supervisor) Logger() *Logger {
	return s.logger
}

// New returns a Supervisor.  Without options it logs nowhere, spawns real
// processes, and uses the wall clock.
func New(opts ...Option) *Supervisor {
	s := &Supervisor{
		metrics:      NoopMetrics(),
		now:          time.Now,
		sleep:        time.Sleep,
		tick:         DefaultTick,
		retry:        DefaultRetryDelay,
		probeTimeout: DefaultProbeTimeout,
		entries:      make(map[*Descriptor]*entry),
		byName:       make(map[string]*Descriptor),
		requests:     make(chan func(), 16),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = NewLogger(LevelDebug)
	}
	if s.spawn == nil {
		logger := s.logger
		s.spawn = func(command string, dir string) (Handle, error) {
			p, e := Spawn(command, dir, logger)
			if e != nil {
				// Avoid handing back a typed nil inside the
				// interface.
				return nil, e
			}
			return p, nil
		}
	}
	s.sched = NewScheduler(s.now)
	return s
}
