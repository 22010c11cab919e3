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

package main

import (
	"strconv"

	"github.com/gdamore/relauncher"
)

// verbosity is the -v flag.  "-v" means 1, "-vv" means 2 and so on, and
// "-v=N" sets N outright.  The first bare -v discards the default.
type verbosity struct {
	level   relauncher.Level
	counted bool
}

const countFlag = "+1"

func (v *verbosity) String() string {
	return strconv.Itoa(int(v.level))
}

func (v *verbosity) Set(s string) error {
	if s == countFlag {
		if !v.counted {
			v.level = 0
			v.counted = true
		}
		v.level++
		return nil
	}
	n, e := strconv.Atoi(s)
	if e != nil {
		return e
	}
	v.level = relauncher.Level(n)
	v.counted = true
	return nil
}

func (v *verbosity) Type() string {
	return "level"
}
