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

// Package relauncher provides a small process supervisor engine.
//
// A Supervisor is handed an ordered list of Descriptors, usually loaded from
// a profile with LoadProfile.  For each descriptor it launches the command
// as a child process (in its own process group), optionally verifies that
// the application came up by running a health check a fixed interval after
// the launch, and optionally enforces a hard lifetime after which the
// process is killed and launched again, however healthy it may be.  When
// the supervisor shuts down, every process tree it still tracks is killed.
//
// All supervisor callbacks (launches, startup checks, timeouts, restarts)
// run on the single goroutine executing Supervisor.Run.  Timers are kept by
// a Scheduler that is polled once per tick, so sub-second precision is
// neither offered nor needed.  Other goroutines may only read snapshots
// (Processes, Process, History) or ask for a restart with RequestRestart,
// which is queued onto the loop.
//
// Launch deliberately blocks the loop for a descriptor's startup delay.
// This serializes a batch of staggered launches, at the cost of delaying
// every other timer while the sleep is in progress.  Profiles that specify
// large delays for many applications should account for this.
//
package relauncher
