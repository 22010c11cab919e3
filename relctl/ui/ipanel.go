// Copyright 2016 The Govisor Authors
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

package ui

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/gdamore/relauncher/relctl/util"
	"github.com/gdamore/relauncher/rest"
)

// InfoPanel shows everything the server reports about one process.
type InfoPanel struct {
	text *views.TextArea
	info *rest.ProcessInfo
	name string
	err  error

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	i := &InfoPanel{}

	i.Panel.Init(app)
	i.text = views.NewTextArea()
	i.text.EnableCursor(false)
	i.text.SetStyle(StyleNormal)
	i.SetContent(i.text)
	i.SetKeys([]string{"[ESC] Main", "[H] Help"})

	return i
}

func (i *InfoPanel) Draw() {
	i.update()
	i.Panel.Draw()
}

func (i *InfoPanel) HandleEvent(ev tcell.Event) bool {
	app := i.app
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'L', 'l':
				app.ShowLog(i.name)
				return true
			case 'R', 'r':
				if i.info != nil {
					app.RestartProcess(i.name)
					return true
				}
			}
		}
	}
	return i.Panel.HandleEvent(ev)
}

func (i *InfoPanel) SetName(name string) {
	i.name = name
	i.info = nil
	i.err = nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC1123)
}

// Lines renders the details of one process.
func Lines(s *rest.ProcessInfo) []string {
	check := s.Check
	if check == "" {
		check = "none"
	}
	pid := "-"
	if s.Pid != 0 {
		pid = fmt.Sprintf("%d", s.Pid)
	}
	return []string{
		fmt.Sprintf("%10s %s", "Name:", s.Name),
		fmt.Sprintf("%10s %s", "App:", s.App),
		fmt.Sprintf("%10s %s", "Check:", check),
		fmt.Sprintf("%10s %s", "Status:", util.Status(s)),
		fmt.Sprintf("%10s %s", "Pid:", pid),
		fmt.Sprintf("%10s %s", "Started:", stamp(s.Started)),
		fmt.Sprintf("%10s %d", "Restarts:", s.Restarts),
		fmt.Sprintf("%10s %s", "Reason:", s.Reason),
		fmt.Sprintf("%10s %s", "Error:", s.Error),
		fmt.Sprintf("%10s %s", "Since:", stamp(s.TimeStamp)),
	}
}

// update runs on the application goroutine.
func (i *InfoPanel) update() {
	s, e := i.app.GetItem(i.name)
	i.info = s
	i.err = e

	i.SetTitle("Details for " + i.name)
	words := []string{"[ESC] Main", "[H] Help", "[L] Log"}

	if s == nil {
		i.SetStatus(fmt.Sprintf("No data: %v", e))
		i.SetError()
		i.text.SetLines(nil)
		i.SetKeys(words)
		return
	}

	i.SetStatus(util.Detail(s))
	switch util.Classify(s) {
	case util.Up:
		i.SetGood()
	case util.Pending:
		i.SetWarn()
	default:
		i.SetError()
	}
	i.text.SetLines(Lines(s))
	i.SetKeys(append(words, "[R] Restart"))
}
