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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const jsonProfile = `[
  {"app": "python -m http.server 8000", "delay": 0.5, "startup_time": 2,
   "timeout": 60, "http": "http://127.0.0.1:8000/"},
  {"name": "worker", "app": "/usr/bin/worker --fast", "cwd": "/tmp",
   "bind": "127.0.0.1:9000", "restart": true},
  {"app": "cron"}
]`

const yamlProfile = `
- app: python -m http.server 8000
  delay: 0.5
  startup_time: 2
  timeout: 60
  http: http://127.0.0.1:8000/
- name: worker
  app: /usr/bin/worker --fast
  cwd: /tmp
  bind: 127.0.0.1:9000
  restart: true
- app: cron
`

const tomlText = `
[[app]]
app = "python -m http.server 8000"
delay = 0.5
startup_time = 2.0
timeout = 60.0
http = "http://127.0.0.1:8000/"

[[app]]
name = "worker"
app = "/usr/bin/worker --fast"
cwd = "/tmp"
bind = "127.0.0.1:9000"
restart = true

[[app]]
app = "cron"
`

func checkSample(descs []*Descriptor) {
	So(len(descs), ShouldEqual, 3)

	d := descs[0]
	So(d.Name, ShouldEqual, "python.0")
	So(d.App, ShouldEqual, "python -m http.server 8000")
	So(d.Delay, ShouldEqual, 500*time.Millisecond)
	So(d.StartupTime, ShouldNotBeNil)
	So(*d.StartupTime, ShouldEqual, 2*time.Second)
	So(d.Timeout, ShouldEqual, time.Minute)
	So(d.Check, ShouldHaveSameTypeAs, &HTTPProbe{})
	So(d.Check.String(), ShouldEqual, "http http://127.0.0.1:8000/")
	So(d.Restart, ShouldBeFalse)

	d = descs[1]
	So(d.Name, ShouldEqual, "worker")
	So(d.Cwd, ShouldEqual, "/tmp")
	So(d.Check, ShouldHaveSameTypeAs, &BindProbe{})
	So(d.Check.String(), ShouldEqual, "bind 127.0.0.1:9000")
	So(d.StartupTime, ShouldBeNil)
	So(d.Timeout, ShouldEqual, 0)
	So(d.Restart, ShouldBeTrue)

	d = descs[2]
	So(d.Name, ShouldEqual, "cron.2")
	So(d.Check, ShouldBeNil)
	So(d.Delay, ShouldEqual, 0)
}

func TestParseProfile(t *testing.T) {
	Convey("The same profile reads alike in every format", t, func() {
		for format, text := range map[Format]string{
			FormatJSON: jsonProfile,
			FormatYAML: yamlProfile,
			FormatTOML: tomlText,
		} {
			descs, e := ParseProfile(strings.NewReader(text), format)
			So(e, ShouldBeNil)
			checkSample(descs)
		}
	})

	Convey("Empty profiles are fine", t, func() {
		descs, e := ParseProfile(strings.NewReader("[]"), FormatJSON)
		So(e, ShouldBeNil)
		So(descs, ShouldBeEmpty)
		descs, e = ParseProfile(strings.NewReader(""), FormatYAML)
		So(e, ShouldBeNil)
		So(descs, ShouldBeEmpty)
	})

	Convey("Bad profiles are rejected", t, func() {
		bad := func(text string) error {
			_, e := ParseProfile(strings.NewReader(text), FormatJSON)
			return e
		}
		So(bad(`{"app": "x"}`), ShouldNotBeNil)
		So(bad(`[{"app": "x"`), ShouldNotBeNil)
		So(errors.Is(bad(`[{"cwd": "/"}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "  "}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "x", "delay": -1}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "x", "timeout": 0}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "x", "bind": "nope"}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "x", "http": "ftp://h/"}]`), ErrBadRecord), ShouldBeTrue)
		So(errors.Is(bad(`[{"app": "x", "http": "http:///x"}]`), ErrBadRecord), ShouldBeTrue)

		Convey("Including both checks at once", func() {
			e := bad(`[{"app": "x", "bind": ":80", "http": "http://h/"}]`)
			So(errors.Is(e, ErrConflictingChecks), ShouldBeTrue)
		})

		Convey("Including duplicate names", func() {
			e := bad(`[{"name": "a", "app": "x"}, {"name": "a", "app": "y"}]`)
			So(errors.Is(e, ErrDuplicateName), ShouldBeTrue)
		})

		Convey("Including an unknown format", func() {
			_, e := ParseProfile(strings.NewReader("[]"), Format("ini"))
			So(e, ShouldNotBeNil)
		})
	})

	Convey("Formats follow the file extension", t, func() {
		So(FormatForPath("a.json"), ShouldEqual, FormatJSON)
		So(FormatForPath("a.YAML"), ShouldEqual, FormatYAML)
		So(FormatForPath("a.yml"), ShouldEqual, FormatYAML)
		So(FormatForPath("a.toml"), ShouldEqual, FormatTOML)
		So(FormatForPath("profile"), ShouldEqual, FormatJSON)
	})
}

func TestLoadProfile(t *testing.T) {
	Convey("Given a directory of profiles", t, func() {
		dir := t.TempDir()
		write := func(name, text string) string {
			path := filepath.Join(dir, name)
			So(os.WriteFile(path, []byte(text), 0644), ShouldBeNil)
			return path
		}

		Convey("Each one loads", func() {
			for name, text := range map[string]string{
				"p.json": jsonProfile,
				"p.yaml": yamlProfile,
				"p.toml": tomlText,
			} {
				descs, e := LoadProfile(write(name, text))
				So(e, ShouldBeNil)
				checkSample(descs)
			}
		})

		Convey("A missing file is not found", func() {
			_, e := LoadProfile(filepath.Join(dir, "missing.json"))
			So(errors.Is(e, ErrProfileNotFound), ShouldBeTrue)
		})

		Convey("A directory is not found either", func() {
			_, e := LoadProfile(dir)
			So(errors.Is(e, ErrProfileNotFound), ShouldBeTrue)
		})

		Convey("Errors name the file", func() {
			path := write("bad.json", `[{"app": ""}]`)
			_, e := LoadProfile(path)
			So(e, ShouldNotBeNil)
			So(e.Error(), ShouldContainSubstring, path)
			So(errors.Is(e, ErrBadRecord), ShouldBeTrue)
		})
	})
}
