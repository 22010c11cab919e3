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
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler on a fake clock", t, func() {
		clock := newFakeClock()
		s := NewScheduler(clock.Now)
		var fired []string
		record := func(name string) func() {
			return func() { fired = append(fired, name) }
		}

		Convey("Timers fire once, earliest first", func() {
			s.After("b", KindTimeout, 2*time.Second, record("b"))
			s.After("a", KindStartupCheck, time.Second, record("a"))
			So(s.Len(), ShouldEqual, 2)

			So(s.RunPending(), ShouldEqual, 0)
			clock.Advance(3 * time.Second)
			So(s.RunPending(), ShouldEqual, 2)
			So(fired, ShouldResemble, []string{"a", "b"})

			So(s.RunPending(), ShouldEqual, 0)
			So(s.Len(), ShouldEqual, 0)
		})

		Convey("Equal deadlines fire in arming order", func() {
			s.After("x", KindTimeout, time.Second, record("x"))
			s.After("y", KindTimeout, time.Second, record("y"))
			s.After("z", KindTimeout, time.Second, record("z"))
			clock.Advance(time.Second)
			s.RunPending()
			So(fired, ShouldResemble, []string{"x", "y", "z"})
		})

		Convey("A non-positive delay fires on the next pass", func() {
			s.After("now", KindTimeout, -time.Second, record("now"))
			So(s.RunPending(), ShouldEqual, 1)
		})

		Convey("Arming the same tag and kind twice panics", func() {
			s.After("t", KindTimeout, time.Second, record("t"))
			var r interface{}
			func() {
				defer func() { r = recover() }()
				s.After("t", KindTimeout, time.Second, record("t"))
			}()
			So(r, ShouldNotBeNil)
			e, ok := r.(error)
			So(ok, ShouldBeTrue)
			So(errors.Is(e, ErrTagCollision), ShouldBeTrue)
			So(s.Len(), ShouldEqual, 1)
		})

		Convey("Different kinds for one tag coexist", func() {
			s.After("t", KindStartupCheck, time.Second, record("check"))
			s.After("t", KindTimeout, time.Second, record("timeout"))
			So(s.Pending("t"), ShouldResemble, []Kind{KindStartupCheck, KindTimeout})
			So(s.Pending("other"), ShouldBeEmpty)
		})

		Convey("Cancel removes every timer for a tag", func() {
			s.After("t", KindStartupCheck, time.Second, record("check"))
			s.After("t", KindTimeout, time.Second, record("timeout"))
			s.After("u", KindTimeout, time.Second, record("u"))
			So(s.Cancel("t"), ShouldEqual, 2)
			So(s.Cancel("t"), ShouldEqual, 0)
			So(s.Cancel("unknown"), ShouldEqual, 0)
			clock.Advance(time.Second)
			s.RunPending()
			So(fired, ShouldResemble, []string{"u"})

			Convey("And the tag can be armed again", func() {
				s.After("t", KindTimeout, time.Second, record("again"))
				_, ok := s.Lookup("t", KindTimeout)
				So(ok, ShouldBeTrue)
			})
		})

		Convey("Stop disarms a single timer", func() {
			tm := s.After("t", KindTimeout, time.Second, record("t"))
			So(tm.Tag(), ShouldEqual, "t")
			So(tm.Kind(), ShouldEqual, KindTimeout)
			So(tm.Due().Equal(clock.Now().Add(time.Second)), ShouldBeTrue)
			So(tm.Stop(), ShouldBeTrue)
			So(tm.Stop(), ShouldBeFalse)
			clock.Advance(time.Second)
			So(s.RunPending(), ShouldEqual, 0)
		})

		Convey("A callback can cancel a later timer in the same pass", func() {
			s.After("first", KindTimeout, time.Second, func() {
				fired = append(fired, "first")
				s.Cancel("second")
			})
			s.After("second", KindTimeout, 2*time.Second, record("second"))
			clock.Advance(5 * time.Second)
			So(s.RunPending(), ShouldEqual, 1)
			So(fired, ShouldResemble, []string{"first"})
		})

		Convey("A callback can re-arm its own tag and kind", func() {
			s.After("r", KindRetry, time.Second, func() {
				fired = append(fired, "r")
				s.After("r", KindRetry, time.Second, record("r2"))
			})
			clock.Advance(time.Second)
			So(s.RunPending(), ShouldEqual, 1)
			// armed during the pass, so it waits for the next one
			So(s.Len(), ShouldEqual, 1)
			clock.Advance(time.Second)
			So(s.RunPending(), ShouldEqual, 1)
			So(fired, ShouldResemble, []string{"r", "r2"})
		})

		Convey("CancelAll empties the scheduler", func() {
			tm := s.After("a", KindTimeout, time.Second, record("a"))
			s.After("b", KindRetry, time.Second, record("b"))
			s.CancelAll()
			So(s.Len(), ShouldEqual, 0)
			So(tm.Stop(), ShouldBeFalse)
			clock.Advance(time.Second)
			So(s.RunPending(), ShouldEqual, 0)
		})
	})

	Convey("Kinds have names", t, func() {
		So(KindStartupCheck.String(), ShouldEqual, "startup-check")
		So(KindTimeout.String(), ShouldEqual, "timeout")
		So(KindRetry.String(), ShouldEqual, "retry")
	})
}
