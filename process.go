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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// GraceWindow is how long each process of a tree gets to exit after a
// graceful stop before it is forcibly killed.
const GraceWindow = 3 * time.Second

// Handle is what the Supervisor needs from a launched process.  Process
// is the real implementation.
type Handle interface {
	// Pid returns the operating system process id.  It is stable for
	// the life of the handle.
	Pid() int

	// Running is a point-in-time liveness check.  The answer may be
	// stale by the time it is acted upon.
	Running() bool

	// Terminate stops the whole process tree, gracefully if possible,
	// and returns how many processes had to be forcibly killed.  A tree
	// that is already gone is not an error.
	Terminate() (int, error)

	// Kill forcibly kills the whole process tree without any grace
	// period.  It returns an *AlreadyGoneError if the root process no
	// longer exists.
	Kill() error
}

// Process is a command started through the platform shell in a process
// group of its own.  Output of the command is sent to the logger, line by
// line, at LevelExtra.
type Process struct {
	command string
	pid     int
	cmd     *exec.Cmd
	logger  *Logger
	grace   time.Duration
	started time.Time
	done    chan struct{}
	err     error
}

// Spawn starts command in dir (the current directory if empty).  If the
// operating system cannot create the process a *SpawnError is returned.
func Spawn(command string, dir string, logger *Logger) (*Process, error) {
	cmd := shellCommand(command)
	cmd.Dir = dir

	// Wait must not close the pipes while doLog still reads them.
	outr, outw, e := os.Pipe()
	if e != nil {
		return nil, &SpawnError{Command: command, Err: e}
	}
	errr, errw, e := os.Pipe()
	if e != nil {
		outr.Close()
		outw.Close()
		return nil, &SpawnError{Command: command, Err: e}
	}
	cmd.Stdout = outw
	cmd.Stderr = errw
	e = cmd.Start()
	outw.Close()
	errw.Close()
	if e != nil {
		outr.Close()
		errr.Close()
		return nil, &SpawnError{Command: command, Err: e}
	}

	p := &Process{
		command: command,
		pid:     cmd.Process.Pid,
		cmd:     cmd,
		logger:  logger,
		grace:   GraceWindow,
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go p.doLog(outr, "stdout> ")
	go p.doLog(errr, "stderr> ")
	go p.doWait()
	return p, nil
}

func (p *Process) doLog(r io.ReadCloser, prefix string) {
	defer r.Close()
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) != 0 {
			p.logger.Logf(LevelExtra, "[%d] %s%s", p.pid, prefix,
				strings.TrimRight(line, "\r\n"))
		}
		if err != nil {
			return
		}
	}
}

func (p *Process) doWait() {
	p.err = p.cmd.Wait()
	if p.err != nil {
		p.logger.Logf(LevelInfo, "pid %d exited: %v", p.pid, p.err)
	} else {
		p.logger.Logf(LevelInfo, "pid %d exited", p.pid)
	}
	close(p.done)
}

func (p *Process) Pid() int {
	return p.pid
}

func (p *Process) Command() string {
	return p.command
}

func (p *Process) Started() time.Time {
	return p.started
}

// Running reports whether the root process has not yet exited.
func (p *Process) Running() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed once the root process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// ExitErr returns the result of waiting for the root process.  It is only
// meaningful once Done is closed.
func (p *Process) ExitErr() error {
	return p.err
}

// SetGrace overrides GraceWindow for this process.
func (p *Process) SetGrace(d time.Duration) {
	p.grace = d
}

// Children enumerates the direct and transitive descendants of the root
// process, as they are right now, parents before their children.  Trees
// grow after launch (a shell may fork the real server, for example), so
// this must be asked again each time rather than remembered.
func (p *Process) Children() ([]*process.Process, error) {
	procs, e := process.Processes()
	if e != nil {
		return nil, e
	}
	kids := make(map[int32][]*process.Process)
	for _, c := range procs {
		ppid, e := c.Ppid()
		if e != nil {
			continue
		}
		kids[ppid] = append(kids[ppid], c)
	}

	var tree []*process.Process
	root := int32(p.pid)
	seen := map[int32]bool{root: true}
	queue := []int32{root}
	for len(queue) > 0 {
		pid := queue[0]
		queue = queue[1:]
		for _, c := range kids[pid] {
			if seen[c.Pid] {
				continue
			}
			seen[c.Pid] = true
			tree = append(tree, c)
			queue = append(queue, c.Pid)
		}
	}
	return tree, nil
}

func (p *Process) Terminate() (int, error) {
	p.logger.Logf(LevelInfo, "terminate pid %d and all its children", p.pid)
	if !p.Running() {
		p.logger.Logf(LevelInfo, "pid %d is already gone", p.pid)
		return 0, nil
	}
	tree, e := p.Children()
	if e != nil {
		p.logger.Logf(LevelWarn, "cannot list children of pid %d: %v",
			p.pid, e)
	}
	forced := 0
	for _, c := range tree {
		p.logger.Logf(LevelDebug, "%s", describe(c))
		if p.stopChild(c) {
			forced++
		}
	}
	if p.stopRoot() {
		forced++
	}
	return forced, nil
}

// stopChild stops one descendant, returning true if it had to be killed.
func (p *Process) stopChild(c *process.Process) bool {
	if !alive(c) {
		return false
	}
	if e := c.Terminate(); e != nil && !isGone(e) {
		p.logger.Logf(LevelDebug, "pid %d: terminate: %v", c.Pid, e)
	}
	deadline := time.Now().Add(p.grace)
	for time.Now().Before(deadline) {
		if !alive(c) {
			return false
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !alive(c) {
		return false
	}
	if e := c.Kill(); e != nil {
		if !isGone(e) {
			p.logger.Logf(LevelWarn, "failed killing pid %d: %v", c.Pid, e)
		}
		return false
	}
	p.logger.Logf(LevelWarn, "kill pid %d", c.Pid)
	return true
}

func (p *Process) stopRoot() bool {
	if !p.Running() {
		return false
	}
	if e := gracefulStop(p.cmd.Process); e != nil && !isGone(e) {
		p.logger.Logf(LevelDebug, "pid %d: terminate: %v", p.pid, e)
	}
	select {
	case <-p.done:
		return false
	case <-time.After(p.grace):
	}
	if e := p.cmd.Process.Kill(); e != nil {
		if !isGone(e) {
			p.logger.Logf(LevelWarn, "failed killing pid %d: %v", p.pid, e)
		}
		return false
	}
	p.logger.Logf(LevelWarn, "kill pid %d", p.pid)
	select {
	case <-p.done:
	case <-time.After(p.grace):
		p.logger.Logf(LevelWarn, "pid %d not reaped after kill", p.pid)
	}
	return true
}

func (p *Process) Kill() error {
	if !p.Running() {
		return &AlreadyGoneError{Pid: p.pid}
	}
	tree, e := p.Children()
	if e != nil {
		p.logger.Logf(LevelWarn, "cannot list children of pid %d: %v",
			p.pid, e)
	}
	for _, c := range tree {
		p.logger.Logf(LevelDebug, "%s", describe(c))
		if alive(c) {
			if e := c.Kill(); e != nil && !isGone(e) {
				p.logger.Logf(LevelWarn, "failed killing pid %d: %v",
					c.Pid, e)
			}
		}
	}
	if e := p.cmd.Process.Kill(); e != nil {
		if isGone(e) {
			return &AlreadyGoneError{Pid: p.pid}
		}
		return e
	}
	return nil
}

// alive reports whether c still exists and has not become a zombie.
func alive(c *process.Process) bool {
	ok, e := c.IsRunning()
	if e != nil || !ok {
		return false
	}
	status, e := c.Status()
	if e != nil {
		return !isGone(e)
	}
	for _, s := range status {
		if s == process.Zombie {
			return false
		}
	}
	return true
}

func describe(c *process.Process) string {
	name, _ := c.Name()
	cmdline, _ := c.Cmdline()
	return fmt.Sprintf("process(pid=%d, name=%q, cmdline=%q)", c.Pid, name, cmdline)
}

func isGone(e error) bool {
	return errors.Is(e, os.ErrProcessDone) ||
		errors.Is(e, process.ErrorProcessNotRunning) ||
		errors.Is(e, syscall.ESRCH)
}
