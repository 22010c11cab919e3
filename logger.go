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
	"log"
	"strings"
	"sync"
)

// Level is the severity of a message.  Lower values are more important;
// a message is emitted when the configured verbosity is at least its level.
type Level int

const (
	LevelWarn   Level = -2 // necessary output
	LevelSys    Level = -1 // system messages
	LevelStatus Level = 0  // status info
	LevelInfo   Level = 1  // lifecycle transitions
	LevelMsg    Level = 2  // messages, such as newly assigned pids
	LevelExtra  Level = 3  // extra information, child output
	LevelDebug  Level = 4  // debug information
)

// String returns the header printed in front of messages of this level.
func (l Level) String() string {
	switch l {
	case LevelWarn:
		return "WARN"
	case LevelSys:
		return "SYS"
	case LevelStatus:
		return "STATUS"
	case LevelInfo:
		return "INFO"
	case LevelMsg:
		return "MSG"
	case LevelExtra:
		return "EXTRA"
	case LevelDebug:
		return "DBG"
	}
	if l < LevelWarn {
		return "WARN"
	}
	return "DBG"
}

// Sink accepts leveled messages.  Logger and JournalSink implement it.
type Sink interface {
	Log(lvl Level, msg string)
}

// Logger filters messages by verbosity and fans each accepted line out to
// any number of log.Logger destinations and other sinks, plus an optional
// History.  The destinations keep their own Prefix and Flags.
type Logger struct {
	verbosity Level
	loggers   []*log.Logger
	sinks     []Sink
	history   *History
	lock      sync.Mutex
}

// Log implements Sink.  Multi-line messages are broken up, and each line
// gets its own header.
func (l *Logger) Log(lvl Level, msg string) {
	if l == nil {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	if lvl > l.verbosity {
		return
	}
	for _, line := range strings.Split(strings.Trim(msg, "\n"), "\n") {
		for _, logger := range l.loggers {
			logger.Printf("%s: %s", lvl, line)
		}
		for _, sink := range l.sinks {
			sink.Log(lvl, line)
		}
		if l.history != nil {
			l.history.Add(lvl, line)
		}
	}
}

// Logf formats according to a format specifier and logs the result.
func (l *Logger) Logf(lvl Level, format string, v ...interface{}) {
	if l == nil || !l.Enabled(lvl) {
		return
	}
	l.Log(lvl, fmt.Sprintf(format, v...))
}

// Enabled reports whether a message at lvl would be emitted.
func (l *Logger) Enabled(lvl Level) bool {
	l.lock.Lock()
	defer l.lock.Unlock()
	return lvl <= l.verbosity
}

func (l *Logger) SetVerbosity(v Level) {
	l.lock.Lock()
	l.verbosity = v
	l.lock.Unlock()
}

func (l *Logger) Verbosity() Level {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.verbosity
}

// AddLogger adds a destination.  A logger can only be added once.
func (l *Logger) AddLogger(logger *log.Logger) {
	l.lock.Lock()
	defer l.lock.Unlock()
	for _, x := range l.loggers {
		if x == logger {
			return
		}
	}
	l.loggers = append(l.loggers, logger)
}

// DelLogger removes a destination added with AddLogger.
func (l *Logger) DelLogger(logger *log.Logger) {
	l.lock.Lock()
	defer l.lock.Unlock()

	for i, x := range l.loggers {
		if x == logger {
			l.loggers = append(l.loggers[:i], l.loggers[i+1:]...)
			break
		}
	}
}

// AddSink adds another destination.  Sinks see lines already split and
// filtered, without the level header.  A Logger must not be added to
// itself.
func (l *Logger) AddSink(s Sink) {
	l.lock.Lock()
	l.sinks = append(l.sinks, s)
	l.lock.Unlock()
}

// SetHistory attaches a History that records every emitted line.
func (l *Logger) SetHistory(h *History) {
	l.lock.Lock()
	l.history = h
	l.lock.Unlock()
}

func (l *Logger) History() *History {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.history
}

// NewLogger returns a Logger with the given verbosity and no destinations.
func NewLogger(verbosity Level) *Logger {
	return &Logger{verbosity: verbosity}
}
