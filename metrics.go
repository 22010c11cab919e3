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

// Metrics receives supervisor events.  Implementations must be safe to
// call from the supervisor loop; they are never called concurrently by a
// single Supervisor.
type Metrics interface {
	// Launched records a successful launch.
	Launched(name string)

	// Restarted records a restart and its reason: "startup-check",
	// "timeout", "exit" or "manual".
	Restarted(name string, reason string)

	// SpawnFailed records a launch the operating system refused.
	SpawnFailed(name string)

	// ProbeFailed records a failed startup check.
	ProbeFailed(name string, check string)

	// ForceKilled records processes that ignored a graceful stop.
	ForceKilled(name string, count int)

	// Live records the number of processes currently tracked.
	Live(count int)
}

type noopMetrics struct{}

func (noopMetrics) Launched(string)            {}
func (noopMetrics) Restarted(string, string)   {}
func (noopMetrics) SpawnFailed(string)         {}
func (noopMetrics) ProbeFailed(string, string) {}
func (noopMetrics) ForceKilled(string, int)    {}
func (noopMetrics) Live(int)                   {}

// NoopMetrics returns a Metrics that discards everything.
func NoopMetrics() Metrics {
	return noopMetrics{}
}
