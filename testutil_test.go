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
	"log"
	"strings"
	"testing"
	"time"
)

type testLog struct {
	t *testing.T
}

func (tl *testLog) Write(p []byte) (n int, err error) {
	s := string(p)
	s = strings.Trim(s, "\n")
	tl.t.Log(s)
	return len(p), nil
}

// SetTestLogger returns a debug level Logger writing to the test log,
// with a History so tests can inspect what was said.
func SetTestLogger(t *testing.T) *Logger {
	l := NewLogger(LevelDebug)
	l.AddLogger(log.New(&testLog{t: t}, "", log.Ltime|log.Lmicroseconds))
	l.SetHistory(NewHistory(0))
	return l
}

// logged reports whether some history record contains text.
func logged(l *Logger, text string) bool {
	recs, _ := l.History().Records(0)
	for _, r := range recs {
		if strings.Contains(r.Text, text) {
			return true
		}
	}
	return false
}

// fakeClock is a manually advanced clock.  Its sleep advances time
// rather than blocking.
type fakeClock struct {
	t     time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2015, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.slept = append(c.slept, d)
	c.t = c.t.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

// after returns a startup time for a Descriptor literal.
func after(d time.Duration) *time.Duration {
	return &d
}
