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
	"fmt"
)

var (
	ErrProfileNotFound   = errors.New("Profile configuration is not found")
	ErrBadRecord         = errors.New("Bad profile record")
	ErrConflictingChecks = errors.New("Both bind and http checks configured")
	ErrDuplicateName     = errors.New("Duplicate application name")
	ErrNoProcess         = errors.New("No such application")
	ErrTagCollision      = errors.New("Timer already armed for tag")
	ErrShutdown          = errors.New("Supervisor is shut down")
	ErrBusy              = errors.New("Too many pending requests")
	ErrNothingListening  = errors.New("Nothing listening on address")
)

// SpawnError is returned when the operating system refuses to create
// the process for a command.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("cannot launch %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ProbeError reports a failed health check.  It covers both a probe that
// completed with a negative answer and one that could not complete at all.
type ProbeError struct {
	Check string
	Err   error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Check, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// AlreadyGoneError is returned by kill paths when the target process no
// longer exists.  Callers generally treat it as success.
type AlreadyGoneError struct {
	Pid int
}

func (e *AlreadyGoneError) Error() string {
	return fmt.Sprintf("pid %d is already gone", e.Pid)
}

// IsAlreadyGone reports whether err says the process no longer exists.
func IsAlreadyGone(err error) bool {
	var gone *AlreadyGoneError
	return errors.As(err, &gone)
}
