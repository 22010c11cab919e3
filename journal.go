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
	"github.com/coreos/go-systemd/v22/journal"
)

// JournalSink sends log lines to the systemd journal, with a priority
// derived from the level.
type JournalSink struct {
	Identifier string // SYSLOG_IDENTIFIER, "relauncher" if empty
}

func journalPriority(lvl Level) journal.Priority {
	switch {
	case lvl <= LevelWarn:
		return journal.PriWarning
	case lvl == LevelSys:
		return journal.PriNotice
	case lvl <= LevelInfo:
		return journal.PriInfo
	}
	return journal.PriDebug
}

func (j *JournalSink) Log(lvl Level, msg string) {
	id := j.Identifier
	if id == "" {
		id = "relauncher"
	}
	journal.Send(msg, journalPriority(lvl), map[string]string{
		"SYSLOG_IDENTIFIER": id,
		"RELAUNCHER_LEVEL":  lvl.String(),
	})
}

// JournalAvailable reports whether the journal socket can be reached.
func JournalAvailable() bool {
	return journal.Enabled()
}
