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

//go:build !windows

// These tests run real process trees through /bin/sh, so they are
// specific to POSIX systems.

package relauncher

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// waitFor polls cond until it holds or d passes.
func waitFor(d time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func exited(p *Process, d time.Duration) bool {
	select {
	case <-p.Done():
		return true
	case <-time.After(d):
		return false
	}
}

func TestProcessOutput(t *testing.T) {
	Convey("Output of a process is logged line by line", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("echo hello; echo oops >&2", "", l)
		So(e, ShouldBeNil)
		So(p.Pid(), ShouldBeGreaterThan, 0)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(p.Running(), ShouldBeFalse)
		So(p.ExitErr(), ShouldBeNil)
		So(waitFor(time.Second, func() bool {
			return logged(l, fmt.Sprintf("[%d] stdout> hello", p.Pid()))
		}), ShouldBeTrue)
		So(waitFor(time.Second, func() bool {
			return logged(l, fmt.Sprintf("[%d] stderr> oops", p.Pid()))
		}), ShouldBeTrue)
	})

	Convey("Output written after the shell exits is still logged", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("(sleep 1; echo late) & echo early", "", l)
		So(e, ShouldBeNil)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(p.Running(), ShouldBeFalse)
		So(waitFor(5*time.Second, func() bool {
			return logged(l, fmt.Sprintf("[%d] stdout> late", p.Pid()))
		}), ShouldBeTrue)
		So(logged(l, fmt.Sprintf("[%d] stdout> early", p.Pid())), ShouldBeTrue)
	})

	Convey("The working directory is honored", t, func() {
		l := SetTestLogger(t)
		dir := t.TempDir()
		p, e := Spawn("pwd", dir, l)
		So(e, ShouldBeNil)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(waitFor(time.Second, func() bool {
			return logged(l, "stdout> ")
		}), ShouldBeTrue)
	})

	Convey("A missing working directory is a spawn error", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("true", "/nonexistent/relauncher/dir", l)
		So(p, ShouldBeNil)
		So(e, ShouldNotBeNil)
		var se *SpawnError
		So(errors.As(e, &se), ShouldBeTrue)
		So(se.Command, ShouldEqual, "true")
	})
}

func TestProcessTree(t *testing.T) {
	Convey("Given a shell with two children", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("sleep 30 & sleep 30 & wait", "", l)
		So(e, ShouldBeNil)
		p.SetGrace(2 * time.Second)
		defer p.Kill()

		So(waitFor(5*time.Second, func() bool {
			kids, e := p.Children()
			return e == nil && len(kids) == 2
		}), ShouldBeTrue)

		Convey("Terminate stops all of them gracefully", func() {
			kids, _ := p.Children()
			forced, e := p.Terminate()
			So(e, ShouldBeNil)
			So(forced, ShouldEqual, 0)
			So(exited(p, 5*time.Second), ShouldBeTrue)
			for _, c := range kids {
				So(alive(c), ShouldBeFalse)
			}

			Convey("And terminating again is harmless", func() {
				forced, e := p.Terminate()
				So(e, ShouldBeNil)
				So(forced, ShouldEqual, 0)
			})
		})

		Convey("Kill stops all of them at once", func() {
			kids, _ := p.Children()
			So(p.Kill(), ShouldBeNil)
			So(exited(p, 5*time.Second), ShouldBeTrue)
			So(waitFor(2*time.Second, func() bool {
				for _, c := range kids {
					if alive(c) {
						return false
					}
				}
				return true
			}), ShouldBeTrue)
		})
	})

	Convey("A child ignoring SIGTERM is killed after the grace window", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("trap '' TERM; sleep 30; true", "", l)
		So(e, ShouldBeNil)
		p.SetGrace(300 * time.Millisecond)
		defer p.Kill()

		So(waitFor(5*time.Second, func() bool {
			kids, e := p.Children()
			return e == nil && len(kids) == 1
		}), ShouldBeTrue)

		forced, e := p.Terminate()
		So(e, ShouldBeNil)
		So(forced, ShouldBeGreaterThanOrEqualTo, 1)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(logged(l, "kill pid"), ShouldBeTrue)
	})

	Convey("Killing a process that already exited reports it gone", t, func() {
		l := SetTestLogger(t)
		p, e := Spawn("exit 3", "", l)
		So(e, ShouldBeNil)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(p.ExitErr(), ShouldNotBeNil)

		e = p.Kill()
		So(IsAlreadyGone(e), ShouldBeTrue)
		So(e.Error(), ShouldContainSubstring, fmt.Sprintf("%d", p.Pid()))

		forced, e := p.Terminate()
		So(e, ShouldBeNil)
		So(forced, ShouldEqual, 0)
	})

	Convey("The environment is inherited", t, func() {
		os.Setenv("RELAUNCHER_TEST_VALUE", "inherited")
		defer os.Unsetenv("RELAUNCHER_TEST_VALUE")
		l := SetTestLogger(t)
		p, e := Spawn("echo $RELAUNCHER_TEST_VALUE", "", l)
		So(e, ShouldBeNil)
		So(exited(p, 5*time.Second), ShouldBeTrue)
		So(waitFor(time.Second, func() bool {
			return logged(l, "stdout> inherited")
		}), ShouldBeTrue)
	})
}
