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
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/gdamore/relauncher/relctl/util"
	"github.com/gdamore/relauncher/rest"
)

// LogPanel follows the supervisor log.  With a name set it keeps only
// the lines that mention that process.
type LogPanel struct {
	text *views.TextArea
	info *rest.ProcessInfo
	name string

	Panel
}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{}

	p.Panel.Init(app)
	p.SetKeys([]string{"[ESC] Main", "[H] Help"})

	p.text = views.NewTextArea()
	p.text.EnableCursor(false)
	p.text.SetStyle(StyleNormal)
	p.SetContent(p.text)

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
	info := p.info
	app := p.app
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
			case 'I', 'i':
				if info != nil {
					app.ShowInfo(info.Name)
					return true
				}
			case 'R', 'r':
				if info != nil {
					app.RestartProcess(info.Name)
					return true
				}
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *LogPanel) SetName(name string) {
	p.name = name
	p.text.SetLines(nil)
}

// matches reports whether a log line is about the process shown.  Lines
// name either the application, the process name, or its pid.
func matches(r rest.LogRecord, info *rest.ProcessInfo) bool {
	if strings.Contains(r.Text, info.Name) || strings.Contains(r.Text, info.App) {
		return true
	}
	if info.Pid != 0 {
		pid := fmt.Sprintf("%d", info.Pid)
		return strings.Contains(r.Text, "pid "+pid) ||
			strings.HasPrefix(r.Text, "["+pid+"]")
	}
	return false
}

// update runs on the application goroutine.
func (p *LogPanel) update() {

	var info *rest.ProcessInfo
	if p.name != "" {
		info, _ = p.app.GetItem(p.name)
	}
	p.info = info
	recs, err := p.app.GetLog()

	words := []string{"[ESC] Main", "[H] Help"}
	if p.name == "" {
		p.SetTitle("Supervisor Log")
	} else {
		p.SetTitle("Log for " + p.name)
		words = append(words, "[I] Info", "[R] Restart")
	}
	p.SetKeys(words)

	switch {
	case err != nil:
		p.SetStatus(fmt.Sprintf("No data: %v", err))
		p.SetError()
	case recs == nil:
		p.SetStatus("Loading ...")
		p.SetNormal()
	case info != nil:
		p.SetStatus(util.Status(info))
		switch util.Classify(info) {
		case util.Up:
			p.SetGood()
		case util.Pending:
			p.SetWarn()
		default:
			p.SetError()
		}
	default:
		p.SetStatus("")
		p.SetNormal()
	}

	lines := make([]string, 0, len(recs))
	for _, r := range recs {
		if info != nil && !matches(r, info) {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s",
			r.Time.Format(time.StampMilli), r.Text))
	}
	p.text.SetLines(lines)
}
