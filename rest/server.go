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
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/gdamore/relauncher"
)

// MaxWait caps how long a log request may block waiting for news.
const MaxWait = 5 * time.Minute

// Supervisor is the part of *relauncher.Supervisor the handler uses.
type Supervisor interface {
	Processes() []relauncher.ProcessInfo
	Process(name string) (relauncher.ProcessInfo, error)
	RequestRestart(name string) error
	History() *relauncher.History
}

// Handler wraps a Supervisor, adding http.Handler functionality.
type Handler struct {
	s    Supervisor
	r    *mux.Router
	user string
	hash []byte
}

func (h *Handler) internalError(w http.ResponseWriter, e error) {
	http.Error(w, e.Error(), http.StatusInternalServerError)
}

func (h *Handler) writeJson(w http.ResponseWriter, v interface{}) {
	if b, e := json.Marshal(v); e != nil {
		h.internalError(w, e)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.Write(b)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, e *Error) {
	if b, err := json.Marshal(e); err != nil {
		h.internalError(w, err)
	} else {
		w.Header().Set("Content-Type", mimeJson)
		w.WriteHeader(e.Code)
		w.Write(b)
	}
}

func toError(e error) *Error {
	switch {
	case errors.Is(e, relauncher.ErrNoProcess):
		return &Error{http.StatusNotFound, "Process not found"}
	case errors.Is(e, relauncher.ErrShutdown):
		return &Error{http.StatusServiceUnavailable, e.Error()}
	case errors.Is(e, relauncher.ErrBusy):
		return &Error{http.StatusTooManyRequests, e.Error()}
	}
	return &Error{http.StatusBadRequest, e.Error()}
}

func convert(i relauncher.ProcessInfo) *ProcessInfo {
	return &ProcessInfo{
		Name:      i.Name,
		App:       i.App,
		Check:     i.Check,
		Pid:       i.Pid,
		State:     i.State.String(),
		Started:   i.Started,
		Restarts:  i.Restarts,
		Reason:    i.Reason,
		Error:     i.Error,
		TimeStamp: i.TimeStamp,
	}
}

func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	infos := h.s.Processes()
	l := make([]string, 0, len(infos))
	for _, i := range infos {
		l = append(l, i.Name)
	}
	h.writeJson(w, l)
}

func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if info, e := h.s.Process(name); e != nil {
		h.writeError(w, toError(e))
	} else {
		h.writeJson(w, convert(info))
	}
}

func (h *Handler) restartProcess(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if e := h.s.RequestRestart(name); e != nil {
		h.writeError(w, toError(e))
	} else {
		h.writeJson(w, ok)
	}
}

func (h *Handler) getLog(w http.ResponseWriter, r *http.Request) {
	hist := h.s.History()
	if hist == nil {
		h.writeError(w, &Error{http.StatusNotFound, "No log available"})
		return
	}
	var since int64
	var wait time.Duration
	q := r.URL.Query()
	if v := q.Get("since"); v != "" {
		n, e := strconv.ParseInt(v, 10, 64)
		if e != nil {
			h.writeError(w, &Error{http.StatusBadRequest, "Bad since value"})
			return
		}
		since = n
	}
	if v := q.Get("wait"); v != "" {
		n, e := strconv.Atoi(v)
		if e != nil || n < 0 {
			h.writeError(w, &Error{http.StatusBadRequest, "Bad wait value"})
			return
		}
		wait = time.Duration(n) * time.Second
		if wait > MaxWait {
			wait = MaxWait
		}
	}
	if wait > 0 {
		hist.Watch(since, wait)
	}
	recs, id := hist.Records(since)
	info := &LogInfo{Id: id, Records: make([]LogRecord, 0, len(recs))}
	for _, rec := range recs {
		info.Records = append(info.Records, LogRecord{
			Id:    rec.Id,
			Time:  rec.Time,
			Level: int(rec.Level),
			Text:  rec.Text,
		})
	}
	h.writeJson(w, info)
}

// authenticate enforces HTTP basic authentication once SetAuth has been
// called.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.hash != nil {
			user, pass, found := r.BasicAuth()
			if !found || user != h.user ||
				bcrypt.CompareHashAndPassword(h.hash, []byte(pass)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="relauncher"`)
				h.writeError(w, &Error{http.StatusUnauthorized, "Unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// SetAuth requires clients to authenticate as user, with a password
// matching the bcrypt hash.  It must be called before serving.
func (h *Handler) SetAuth(user string, hash []byte) error {
	if _, e := bcrypt.Cost(hash); e != nil {
		return e
	}
	h.user = user
	h.hash = hash
	return nil
}

// Router returns the underlying router, so that more routes (for example
// a metrics endpoint) can share the listener and the authentication.
func (h *Handler) Router() *mux.Router {
	return h.r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.r.ServeHTTP(w, req)
}

func NewHandler(s Supervisor) *Handler {
	r := mux.NewRouter()
	h := &Handler{s: s, r: r}
	r.Use(h.authenticate)
	r.HandleFunc("/processes", h.listProcesses).Methods("GET")
	r.HandleFunc("/processes/{name}", h.getProcess).Methods("GET")
	r.HandleFunc("/processes/{name}/restart", h.restartProcess).Methods("POST")
	r.HandleFunc("/log", h.getLog).Methods("GET")
	return h
}
