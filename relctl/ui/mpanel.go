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

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorMaroon).
			Background(tcell.ColorBlack)
)

func conditionStyle(c util.Condition) tcell.Style {
	switch c {
	case util.Up:
		return StyleGood
	case util.Pending:
		return StyleWarn
	}
	return StyleError
}

// MainPanel is the process table, one line per supervised application.
type MainPanel struct {
	content  *views.CellView
	selected *rest.ProcessInfo
	nup      int
	npending int
	ndown    int
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	styles   []tcell.Style
	items    []*rest.ProcessInfo

	Panel
}

// mainModel provides the model for a CellView.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle("Processes")
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	app := m.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				app.ShowInfo(m.selected.Name)
				return true
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.Quit()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					app.ShowInfo(m.selected.Name)
					return true
				}
			case 'L', 'l':
				if m.selected != nil {
					app.ShowLog(m.selected.Name)
				} else {
					app.ShowLog("")
				}
				return true
			case 'R', 'r':
				if m.selected != nil {
					app.RestartProcess(m.selected.Name)
					return true
				}
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ' ', StyleNormal, nil, 1
	}

	ch := ' '
	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	}
	style := m.styles[y]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// All content is single width runes.
	m := model.m
	x := 0
	for _, l := range m.lines {
		if x < len(l) {
			x = len(l)
		}
	}
	return x, len(m.lines)
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.curx += offx
	m.cury += offy
	m.updateCursor(true)
}

func (model *mainModel) SetCursor(x, y int) {
	m := model.m
	m.curx = x
	m.cury = y
	m.updateCursor(true)
}

func (m *MainPanel) unselect() {
	m.cury = 0
	m.curx = 0
	m.updateCursor(false)
}

func (m *MainPanel) updateCursor(selected bool) {
	if m.curx > m.width-1 {
		m.curx = m.width - 1
	}
	if m.cury > m.height-1 {
		m.cury = m.height - 1
	}
	if m.curx < 0 {
		m.curx = 0
	}
	if m.cury < 0 {
		m.cury = 0
	}
	if selected && m.height > 0 {
		if m.selected == nil {
			m.curx = 0
			m.cury = 0
		}
		m.selected = m.items[m.cury]
	} else {
		m.selected = nil
	}
}

// update refreshes the content from the app items.  It runs on the
// application goroutine.
func (m *MainPanel) update() {

	items, err := m.App().GetItems()
	m.items = items

	// keep the selection on the same name across refreshes
	if sel := m.selected; sel != nil {
		m.selected = nil
		for y, item := range m.items {
			if item.Name == sel.Name {
				m.selected = item
				m.cury = y
			}
		}
	}
	if err != nil {
		m.SetError()
		if e, ok := err.(*rest.Error); ok && e.Code == 401 {
			m.SetStatus("Not authorized, check the -u option")
		} else {
			m.SetStatus(fmt.Sprintf("Cannot load processes: %v", err))
		}
		m.lines = nil
		m.styles = nil
		m.items = nil
		m.selected = nil
		m.width, m.height = 0, 0
		return
	}

	lines := make([]string, 0, len(items))
	styles := make([]tcell.Style, 0, len(items))

	m.nup, m.npending, m.ndown = 0, 0, 0
	m.height = 0
	m.width = 0

	now := time.Now()
	for _, info := range items {
		line := fmt.Sprintf("%-20s %-12s %10s %4d  %s",
			info.Name, util.Status(info),
			util.FormatDuration(util.Since(info, now)),
			info.Restarts, util.Detail(info))

		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++
		lines = append(lines, line)

		c := util.Classify(info)
		switch c {
		case util.Up:
			m.nup++
		case util.Pending:
			m.npending++
		default:
			m.ndown++
		}
		styles = append(styles, conditionStyle(c))
	}

	m.lines = lines
	m.styles = styles

	status := fmt.Sprintf("%6d Processes %6d Down %6d Pending %6d Up",
		len(items), m.ndown, m.npending, m.nup)
	n, bad := m.App().Notice()
	if n != "" {
		status += "   " + n
	}
	m.SetStatus(status)

	switch {
	case m.ndown > 0 || (bad && n != ""):
		m.SetError()
	case m.npending > 0:
		m.SetWarn()
	case m.nup > 0:
		m.SetGood()
	default:
		m.SetNormal()
	}

	words := []string{"[Q] Quit", "[H] Help", "[L] Log"}
	if m.selected != nil {
		words = append(words, "[I] Info", "[R] Restart")
	}
	m.SetKeys(words)
}
