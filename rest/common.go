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

// Package rest exposes a relauncher Supervisor over HTTP, and provides a
// client for it.
package rest

import (
	"time"
)

const (
	mimeJson = "application/json; charset=UTF-8"
)

var ok struct{}

type ProcessInfo struct {
	Name      string    `json:"name"`
	App       string    `json:"app"`
	Check     string    `json:"check,omitempty"`
	Pid       int       `json:"pid"`
	State     string    `json:"state"`
	Started   time.Time `json:"started"`
	Restarts  int       `json:"restarts"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	TimeStamp time.Time `json:"tstamp"`
}

type LogRecord struct {
	Id    int64     `json:"id,string"`
	Time  time.Time `json:"time"`
	Level int       `json:"level"`
	Text  string    `json:"text"`
}

type LogInfo struct {
	Id      int64       `json:"id,string"`
	Records []LogRecord `json:"records"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}
