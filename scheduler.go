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
	"container/heap"
	"fmt"
	"time"
)

// Kind distinguishes the timers a Scheduler holds for a single tag.
type Kind int

const (
	KindStartupCheck Kind = iota
	KindTimeout
	KindRetry
)

func (k Kind) String() string {
	switch k {
	case KindStartupCheck:
		return "startup-check"
	case KindTimeout:
		return "timeout"
	case KindRetry:
		return "retry"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Timer is a one-shot deferred call.  It fires at most once and is
// removed from its Scheduler before the callback runs; there is no way to
// re-arm it.
type Timer struct {
	tag   string
	kind  Kind
	due   time.Time
	seq   uint64
	fn    func()
	index int // position in the heap, -1 once removed
	sched *Scheduler
}

func (t *Timer) Tag() string {
	return t.tag
}

func (t *Timer) Kind() Kind {
	return t.kind
}

func (t *Timer) Due() time.Time {
	return t.due
}

// Stop disarms the timer.  It returns false if the timer already fired
// or was cancelled.
func (t *Timer) Stop() bool {
	if t.index < 0 {
		return false
	}
	t.sched.remove(t)
	return true
}

type timerKey struct {
	tag  string
	kind Kind
}

type timerHeap []*Timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].due.Equal(h[j].due) {
		return h[i].seq < h[j].seq
	}
	return h[i].due.Before(h[j].due)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x interface{}) {
	t := x.(*Timer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() interface{} {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*h = old[0 : n-1]
	return t
}

// Scheduler is a registry of one-shot timers keyed by opaque tags.  It
// knows nothing about processes, and it has no goroutines of its own:
// the owner calls RunPending periodically.  Scheduler is not safe for
// concurrent use.
type Scheduler struct {
	now    func() time.Time
	timers timerHeap
	live   map[timerKey]*Timer
	seq    uint64
}

// After arms a timer of the given kind that calls fn once d has elapsed.
// A non-positive d makes the timer due at the next RunPending.  Arming a
// second live timer of the same kind for the same tag is a programming
// error, and panics with ErrTagCollision.
func (s *Scheduler) After(tag string, kind Kind, d time.Duration, fn func()) *Timer {
	key := timerKey{tag, kind}
	if _, ok := s.live[key]; ok {
		panic(fmt.Errorf("%w: %s %s", ErrTagCollision, kind, tag))
	}
	s.seq++
	t := &Timer{
		tag:   tag,
		kind:  kind,
		due:   s.now().Add(d),
		seq:   s.seq,
		fn:    fn,
		sched: s,
	}
	heap.Push(&s.timers, t)
	s.live[key] = t
	return t
}

func (s *Scheduler) remove(t *Timer) {
	heap.Remove(&s.timers, t.index)
	key := timerKey{t.tag, t.kind}
	if s.live[key] == t {
		delete(s.live, key)
	}
}

// Cancel removes every timer carrying tag, and returns how many there
// were.  Cancelling an unknown tag does nothing.
func (s *Scheduler) Cancel(tag string) int {
	n := 0
	for _, kind := range []Kind{KindStartupCheck, KindTimeout, KindRetry} {
		if t, ok := s.live[timerKey{tag, kind}]; ok {
			s.remove(t)
			n++
		}
	}
	return n
}

// CancelAll removes every timer.
func (s *Scheduler) CancelAll() {
	for _, t := range s.timers {
		t.index = -1
	}
	s.timers = nil
	s.live = make(map[timerKey]*Timer)
}

// Pending returns the kinds of the live timers for tag.
func (s *Scheduler) Pending(tag string) []Kind {
	var kinds []Kind
	for _, kind := range []Kind{KindStartupCheck, KindTimeout, KindRetry} {
		if _, ok := s.live[timerKey{tag, kind}]; ok {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// Lookup returns the live timer of kind for tag, if there is one.
func (s *Scheduler) Lookup(tag string, kind Kind) (*Timer, bool) {
	t, ok := s.live[timerKey{tag, kind}]
	return t, ok
}

func (s *Scheduler) Len() int {
	return len(s.timers)
}

// RunPending fires every timer that is due now, earliest first, and
// returns the number fired.  Callbacks may arm or cancel timers; timers
// armed during the pass wait for the next one, and timers cancelled by an
// earlier callback in the same pass do not fire.
func (s *Scheduler) RunPending() int {
	now := s.now()
	var due []*Timer
	for len(s.timers) > 0 && !s.timers[0].due.After(now) {
		t := heap.Pop(&s.timers).(*Timer)
		due = append(due, t)
	}
	// Put them back so that earlier callbacks can still cancel later
	// ones; each is popped for good right before it runs.
	for _, t := range due {
		heap.Push(&s.timers, t)
	}
	n := 0
	for _, t := range due {
		if t.index < 0 {
			continue
		}
		s.remove(t)
		n++
		t.fn()
	}
	return n
}

// NewScheduler returns a Scheduler reading time from now.  A nil now
// selects time.Now.
func NewScheduler(now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		now:  now,
		live: make(map[timerKey]*Timer),
	}
}
