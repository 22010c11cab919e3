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
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"
)

// Descriptor says how to run one supervised application.  It is immutable
// once created, and at most one process runs for it at any time.
type Descriptor struct {
	Name        string         // unique within a profile
	App         string         // command, run through the shell
	Cwd         string         // working directory, empty to inherit
	Delay       time.Duration  // sleep before each launch
	StartupTime *time.Duration // when to run Check after the launch, nil to never run it
	Timeout     time.Duration  // lifetime cap counted from the start of launch, zero for none
	Check       HealthCheck    // nil means healthy as soon as launched
	Restart     bool           // relaunch if the process exits on its own
}

func (d *Descriptor) String() string {
	return d.Name
}

// Record is one entry of a profile, as written by the user.  Durations are
// in seconds, and may be fractional.  Missing optional fields disable the
// corresponding behavior.
type Record struct {
	Name        string   `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	App         string   `json:"app" yaml:"app" toml:"app"`
	Cwd         string   `json:"cwd,omitempty" yaml:"cwd,omitempty" toml:"cwd,omitempty"`
	Delay       *float64 `json:"delay,omitempty" yaml:"delay,omitempty" toml:"delay,omitempty"`
	StartupTime *float64 `json:"startup_time,omitempty" yaml:"startup_time,omitempty" toml:"startup_time,omitempty"`
	Timeout     *float64 `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	Bind        string   `json:"bind,omitempty" yaml:"bind,omitempty" toml:"bind,omitempty"`
	HTTP        string   `json:"http,omitempty" yaml:"http,omitempty" toml:"http,omitempty"`
	Restart     bool     `json:"restart,omitempty" yaml:"restart,omitempty" toml:"restart,omitempty"`
}

func seconds(name string, v *float64, positive bool) (time.Duration, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 || (positive && *v == 0) {
		return 0, fmt.Errorf("%w: %s must be positive, not %v",
			ErrBadRecord, name, *v)
	}
	return time.Duration(*v * float64(time.Second)), nil
}

// Descriptor validates the record and converts it.  The index is the
// record's position in its profile, and is used to derive a name when
// none is given.
func (r *Record) Descriptor(index int) (*Descriptor, error) {
	app := strings.TrimSpace(r.App)
	if app == "" {
		return nil, fmt.Errorf("%w: entry %d has no app", ErrBadRecord, index)
	}
	d := &Descriptor{
		Name:    r.Name,
		App:     app,
		Cwd:     r.Cwd,
		Restart: r.Restart,
	}
	if d.Name == "" {
		d.Name = fmt.Sprintf("%s.%d",
			filepath.Base(strings.Fields(app)[0]), index)
	}

	var e error
	if d.Delay, e = seconds("delay", r.Delay, false); e != nil {
		return nil, e
	}
	if r.StartupTime != nil {
		st, e := seconds("startup_time", r.StartupTime, false)
		if e != nil {
			return nil, e
		}
		d.StartupTime = &st
	}
	if d.Timeout, e = seconds("timeout", r.Timeout, true); e != nil {
		return nil, e
	}

	switch {
	case r.Bind != "" && r.HTTP != "":
		return nil, fmt.Errorf("%w: %s", ErrConflictingChecks, d.Name)
	case r.Bind != "":
		if _, _, e := net.SplitHostPort(r.Bind); e != nil {
			return nil, fmt.Errorf("%w: %s: bind %q: %v",
				ErrBadRecord, d.Name, r.Bind, e)
		}
		d.Check = &BindProbe{Addr: r.Bind}
	case r.HTTP != "":
		u, e := url.Parse(r.HTTP)
		if e != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %s: bad http url %q",
				ErrBadRecord, d.Name, r.HTTP)
		}
		d.Check = &HTTPProbe{URL: r.HTTP}
	}
	return d, nil
}
