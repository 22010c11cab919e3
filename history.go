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
	"sync"
	"time"
)

const (
	MaxHistoryRecords = 1000
)

type LogRecord struct {
	Id    int64     `json:"id,string"`
	Time  time.Time `json:"time"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
}

// History keeps the most recent log lines in a ring.  Every change bumps
// an id, which clients can hand back to Records or Watch in order to learn
// whether anything happened since they last looked.
type History struct {
	records    []LogRecord
	numRecords int
	maxRecords int
	id         int64
	cvs        map[*sync.Cond]bool
	mx         sync.Mutex
}

// Add appends a line.
func (h *History) Add(lvl Level, text string) {
	h.mx.Lock()
	idx := h.numRecords % h.maxRecords
	h.id++
	h.records[idx] = LogRecord{
		Id:    h.id,
		Time:  time.Now(),
		Level: lvl,
		Text:  text,
	}
	// NB: numRecords may exceed maxRecords once we have wrapped; it
	// then only tracks the next index.
	h.numRecords++
	for cv := range h.cvs {
		cv.Broadcast()
	}
	h.mx.Unlock()
}

func (h *History) Clear() {
	h.mx.Lock()
	h.numRecords = 0
	// We presume that we cannot add new records more quickly than
	// once every nanosecond.
	h.id = time.Now().UnixNano()
	for cv := range h.cvs {
		cv.Broadcast()
	}
	h.mx.Unlock()
}

// Records returns the stored records, oldest first, and the current id.
// If last equals the current id nothing has changed, and nil is returned
// without copying anything.  Ids are not unique across History instances.
func (h *History) Records(last int64) ([]LogRecord, int64) {
	h.mx.Lock()
	defer h.mx.Unlock()
	if h.id == last {
		return nil, last
	}
	cnt := h.numRecords
	if cnt > h.maxRecords {
		cnt = h.maxRecords
	}
	recs := make([]LogRecord, 0, cnt)
	index := h.numRecords - cnt
	for j := 0; j < cnt; j++ {
		recs = append(recs, h.records[index%h.maxRecords])
		index++
	}
	return recs, h.id
}

// Watch blocks until the id differs from last, or until expire elapses,
// and returns the id at that point.  An expire of zero polls.
func (h *History) Watch(last int64, expire time.Duration) int64 {
	expired := false
	var timer *time.Timer
	cv := sync.NewCond(&h.mx)
	if expire > 0 {
		timer = time.AfterFunc(expire, func() {
			h.mx.Lock()
			expired = true
			cv.Broadcast()
			h.mx.Unlock()
		})
	} else {
		expired = true
	}

	h.mx.Lock()
	h.cvs[cv] = true
	for h.id == last && !expired {
		cv.Wait()
	}
	delete(h.cvs, cv)
	last = h.id
	h.mx.Unlock()
	if timer != nil {
		timer.Stop()
	}
	return last
}

// NewHistory returns a History holding up to max records.  A max of zero
// or less selects MaxHistoryRecords.
func NewHistory(max int) *History {
	if max <= 0 {
		max = MaxHistoryRecords
	}
	return &History{
		records:    make([]LogRecord, max),
		maxRecords: max,
		id:         time.Now().UnixNano(),
		cvs:        make(map[*sync.Cond]bool),
	}
}
