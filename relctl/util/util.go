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

// Package util is used for internal implementation bits in the CLI/UI.
package util

import (
	"fmt"
	"sort"
	"time"

	"github.com/gdamore/relauncher/rest"
)

// Condition groups process states for display.
type Condition int

const (
	Down    Condition = iota // nothing running
	Pending                  // running, not yet verified or being stopped
	Up                       // running and verified
)

func Classify(p *rest.ProcessInfo) Condition {
	switch p.State {
	case "verified":
		return Up
	case "spawning", "unverified", "terminating":
		return Pending
	}
	return Down
}

// Status is the one word summary shown in listings.
func Status(p *rest.ProcessInfo) string {
	if p.Pid == 0 {
		if p.Error != "" {
			return "failed"
		}
		return "down"
	}
	return p.State
}

// Detail is the free form text following the status.
func Detail(p *rest.ProcessInfo) string {
	switch {
	case p.Error != "":
		return p.Error
	case p.Reason != "":
		return fmt.Sprintf("restarted (%s)", p.Reason)
	case p.Pid != 0:
		return fmt.Sprintf("pid %d", p.Pid)
	}
	return ""
}

func FormatDuration(d time.Duration) string {

	sec := int((d % time.Minute) / time.Second)
	min := int((d % time.Hour) / time.Minute)
	hour := int(d / time.Hour)

	return fmt.Sprintf("%d:%02d:%02d", hour, min, sec)
}

// Since returns how long ago the process last changed, to the second.
func Since(p *rest.ProcessInfo, now time.Time) time.Duration {
	d := now.Sub(p.TimeStamp)
	if d < 0 {
		return 0
	}
	return d - d%time.Second
}

type sorted []*rest.ProcessInfo

func (s sorted) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s sorted) Len() int {
	return len(s)
}

func (s sorted) Less(i, j int) bool {
	a := s[i]
	b := s[j]

	if ca, cb := Classify(a), Classify(b); ca != cb {
		// trouble first
		return ca < cb
	}
	return a.Name < b.Name
}

func SortProcesses(items []*rest.ProcessInfo) {
	sort.Stable(sorted(items))
}
