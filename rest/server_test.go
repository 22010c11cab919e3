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

package rest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/net/context"

	"github.com/gdamore/relauncher"
)

type fakeSupervisor struct {
	infos    []relauncher.ProcessInfo
	restarts []string
	err      error
	history  *relauncher.History
	sync.Mutex
}

func (f *fakeSupervisor) Processes() []relauncher.ProcessInfo {
	return f.infos
}

func (f *fakeSupervisor) Process(name string) (relauncher.ProcessInfo, error) {
	for _, i := range f.infos {
		if i.Name == name {
			return i, nil
		}
	}
	return relauncher.ProcessInfo{}, relauncher.ErrNoProcess
}

func (f *fakeSupervisor) RequestRestart(name string) error {
	f.Lock()
	defer f.Unlock()
	if _, e := f.Process(name); e != nil {
		return e
	}
	if f.err != nil {
		return f.err
	}
	f.restarts = append(f.restarts, name)
	return nil
}

func (f *fakeSupervisor) History() *relauncher.History {
	return f.history
}

func newFake() *fakeSupervisor {
	now := time.Now()
	return &fakeSupervisor{
		infos: []relauncher.ProcessInfo{
			{
				Name:      "web",
				App:       "python -m http.server",
				Check:     "http http://127.0.0.1:8000/",
				Pid:       4242,
				State:     relauncher.StateVerified,
				Started:   now,
				TimeStamp: now,
			},
			{
				Name:     "cron",
				App:      "cron",
				State:    relauncher.StateGone,
				Restarts: 3,
				Reason:   "timeout",
				Error:    "exec: not found",
			},
		},
		history: relauncher.NewHistory(10),
	}
}

func TestServer(t *testing.T) {
	Convey("Given a server for a fake supervisor", t, func() {
		f := newFake()
		h := NewHandler(f)
		srv := httptest.NewServer(h)
		defer srv.Close()
		c := NewClient(srv.Client(), srv.URL+"/")
		ctx := context.Background()

		Convey("Processes lists names in order", func() {
			names, e := c.Processes(ctx)
			So(e, ShouldBeNil)
			So(names, ShouldResemble, []string{"web", "cron"})
		})

		Convey("Process returns details", func() {
			p, e := c.Process(ctx, "web")
			So(e, ShouldBeNil)
			So(p.Name, ShouldEqual, "web")
			So(p.Pid, ShouldEqual, 4242)
			So(p.State, ShouldEqual, "verified")
			So(p.Check, ShouldEqual, "http http://127.0.0.1:8000/")

			p, e = c.Process(ctx, "cron")
			So(e, ShouldBeNil)
			So(p.State, ShouldEqual, "gone")
			So(p.Restarts, ShouldEqual, 3)
			So(p.Reason, ShouldEqual, "timeout")
			So(p.Error, ShouldEqual, "exec: not found")
		})

		Convey("All fetches every process", func() {
			all, e := c.All(ctx)
			So(e, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
			So(all[1].Name, ShouldEqual, "cron")
		})

		Convey("Unknown processes are 404", func() {
			_, e := c.Process(ctx, "nobody")
			So(e, ShouldNotBeNil)
			re, ok := e.(*Error)
			So(ok, ShouldBeTrue)
			So(re.Code, ShouldEqual, http.StatusNotFound)

			e = c.Restart(ctx, "nobody")
			So(e.(*Error).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Restart is passed on", func() {
			So(c.Restart(ctx, "web"), ShouldBeNil)
			So(f.restarts, ShouldResemble, []string{"web"})
		})

		Convey("Restart errors map to status codes", func() {
			f.err = relauncher.ErrShutdown
			e := c.Restart(ctx, "web")
			So(e.(*Error).Code, ShouldEqual, http.StatusServiceUnavailable)

			f.err = relauncher.ErrBusy
			e = c.Restart(ctx, "web")
			So(e.(*Error).Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("Restart needs POST", func() {
			res, e := http.Get(srv.URL + "/processes/web/restart")
			So(e, ShouldBeNil)
			res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("The log is served with its id", func() {
			f.history.Add(relauncher.LevelWarn, "kill pid 1")
			f.history.Add(relauncher.LevelMsg, "process got pid 2")
			info, e := c.Log(ctx, 0, 0)
			So(e, ShouldBeNil)
			So(len(info.Records), ShouldEqual, 2)
			So(info.Records[0].Text, ShouldEqual, "kill pid 1")
			So(info.Records[0].Level, ShouldEqual, int(relauncher.LevelWarn))
			So(info.Records[1].Id, ShouldEqual, info.Id)

			Convey("And a caught up client waits for news", func() {
				go func() {
					time.Sleep(50 * time.Millisecond)
					f.history.Add(relauncher.LevelInfo, "news")
				}()
				next, e := c.Log(ctx, info.Id, 10*time.Second)
				So(e, ShouldBeNil)
				So(next.Id, ShouldNotEqual, info.Id)
				So(next.Records[len(next.Records)-1].Text, ShouldEqual, "news")
			})

			Convey("And with nothing new gets nothing", func() {
				next, e := c.Log(ctx, info.Id, 0)
				So(e, ShouldBeNil)
				So(next.Id, ShouldEqual, info.Id)
				So(next.Records, ShouldBeEmpty)
			})
		})

		Convey("Bad log parameters are rejected", func() {
			for _, q := range []string{"since=x", "wait=-1", "wait=soon"} {
				res, e := http.Get(srv.URL + "/log?" + q)
				So(e, ShouldBeNil)
				res.Body.Close()
				So(res.StatusCode, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("Without a history the log is 404", func() {
			f.history = nil
			_, e := c.Log(ctx, 0, 0)
			So(e.(*Error).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Responses are JSON", func() {
			res, e := http.Get(srv.URL + "/processes")
			So(e, ShouldBeNil)
			res.Body.Close()
			So(res.Header.Get("Content-Type"), ShouldStartWith, "application/json")
		})

		Convey("Extra routes can be mounted", func() {
			h.Router().HandleFunc("/extra", func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("extra"))
			})
			res, e := http.Get(srv.URL + "/extra")
			So(e, ShouldBeNil)
			res.Body.Close()
			So(res.StatusCode, ShouldEqual, http.StatusOK)
		})
	})
}

func TestServerAuth(t *testing.T) {
	Convey("Given a server requiring a password", t, func() {
		hash, e := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
		So(e, ShouldBeNil)
		h := NewHandler(newFake())
		So(h.SetAuth("admin", hash), ShouldBeNil)
		srv := httptest.NewServer(h)
		defer srv.Close()
		ctx := context.Background()

		Convey("Anonymous clients are refused", func() {
			c := NewClient(nil, srv.URL)
			_, e := c.Processes(ctx)
			So(e, ShouldNotBeNil)
			So(e.(*Error).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("A wrong password is refused", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "guess")
			_, e := c.Processes(ctx)
			So(e.(*Error).Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("The right password gets in", func() {
			c := NewClient(nil, srv.URL)
			c.SetAuth("admin", "secret")
			names, e := c.Processes(ctx)
			So(e, ShouldBeNil)
			So(len(names), ShouldEqual, 2)
		})

		Convey("The challenge names the realm", func() {
			res, e := http.Get(srv.URL + "/processes")
			So(e, ShouldBeNil)
			res.Body.Close()
			So(strings.Contains(res.Header.Get("WWW-Authenticate"), "relauncher"), ShouldBeTrue)
		})
	})

	Convey("A bad hash is rejected", t, func() {
		h := NewHandler(newFake())
		So(h.SetAuth("admin", []byte("plaintext")), ShouldNotBeNil)
	})
}
