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

package util

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/gdamore/relauncher/rest"
)

func TestUtil(t *testing.T) {
	Convey("Given a mix of processes", t, func() {
		items := []*rest.ProcessInfo{
			{Name: "web", Pid: 10, State: "verified"},
			{Name: "db", Pid: 11, State: "unverified"},
			{Name: "cron", State: "gone", Error: "exec: not found"},
			{Name: "api", Pid: 12, State: "verified"},
		}
		Convey("Sorting puts trouble first", func() {
			SortProcesses(items)
			So(items[0].Name, ShouldEqual, "cron")
			So(items[1].Name, ShouldEqual, "db")
			So(items[2].Name, ShouldEqual, "api")
			So(items[3].Name, ShouldEqual, "web")
		})
		Convey("Status reflects the state", func() {
			So(Status(items[0]), ShouldEqual, "verified")
			So(Status(items[2]), ShouldEqual, "failed")
			So(Status(&rest.ProcessInfo{State: "gone"}), ShouldEqual, "down")
			So(Detail(items[2]), ShouldEqual, "exec: not found")
			So(Detail(items[1]), ShouldEqual, "pid 11")
			So(Detail(&rest.ProcessInfo{Pid: 3, Reason: "timeout"}),
				ShouldEqual, "restarted (timeout)")
		})
	})

	Convey("Durations format as h:mm:ss", t, func() {
		So(FormatDuration(0), ShouldEqual, "0:00:00")
		So(FormatDuration(time.Hour+2*time.Minute+3*time.Second),
			ShouldEqual, "1:02:03")
		So(FormatDuration(100*time.Hour), ShouldEqual, "100:00:00")
	})

	Convey("Since truncates and never goes negative", t, func() {
		now := time.Now()
		p := &rest.ProcessInfo{TimeStamp: now.Add(-1500 * time.Millisecond)}
		So(Since(p, now), ShouldEqual, time.Second)
		p.TimeStamp = now.Add(time.Minute)
		So(Since(p, now), ShouldEqual, 0)
	})
}
