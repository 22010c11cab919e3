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
	"errors"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
	"golang.org/x/net/context"

	"github.com/gdamore/relauncher/relctl/util"
	"github.com/gdamore/relauncher/rest"
)

// MaxLogLines is how much of the log the log panel keeps.
const MaxLogLines = 1000

// logWait is how long each log request may wait on the server.
const logWait = 30 * time.Second

type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	info      *InfoPanel
	help      *HelpPanel
	log       *LogPanel
	main      *MainPanel
	client    *rest.Client
	server    string
	logger    *log.Logger
	err       error
	items     []*rest.ProcessInfo
	notice    string
	noticeErr bool
	logLines  []rest.LogRecord
	logErr    error
	logCancel context.CancelFunc

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(name string) {
	a.info.SetName(name)
	a.show(a.info)
}

// ShowLog shows the supervisor log.  When name is not empty, only lines
// mentioning name are displayed.
func (a *App) ShowLog(name string) {
	if a.logCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		a.logCancel = cancel
		go a.refreshLog(ctx)
	}
	a.log.SetName(name)
	a.show(a.log)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

// RestartProcess asks the server to restart name.  The outcome shows up
// as a notice on the main panel.
func (a *App) RestartProcess(name string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(),
			10*time.Second)
		e := a.client.Restart(ctx, name)
		cancel()
		a.app.PostFunc(func() {
			if e != nil {
				a.notice = "Restart " + name + " failed: " + e.Error()
				a.noticeErr = true
			} else {
				a.notice = "Restart of " + name + " requested"
				a.noticeErr = false
			}
			a.Logf("%s", a.notice)
			a.app.Update()
		})
	}()
}

// Notice returns the outcome of the last action, if any.
func (a *App) Notice() (string, bool) {
	return a.notice, a.noticeErr
}

func (a *App) Quit() {
	if a.logCancel != nil {
		a.logCancel()
	}
	a.app.Quit()
}

func (a *App) SetLogger(logger *log.Logger) {
	a.logger = logger
	if logger != nil {
		logger.Printf("Start logger")
	}
}

func (a *App) Logf(fmt string, v ...interface{}) {
	if a.logger != nil {
		a.logger.Printf(fmt, v...)
	}
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) Server() string {
	return a.server
}

func (a *App) GetAppName() string {
	return "Relauncher v1.0"
}

func NewApp(client *rest.Client, server string) *App {

	app := &App{}
	app.app = &views.Application{}
	app.client = client
	app.server = server
	app.info = NewInfoPanel(app)
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.main = NewMainPanel(app)
	app.panel = app.main

	go app.refresh()
	return app
}

// refresh keeps the app items current.  The server has no change
// notification for processes, so this polls once a second.
func (a *App) refresh() {
	for {
		ctx, cancel := context.WithTimeout(context.Background(),
			5*time.Second)
		items, e := a.client.All(ctx)
		cancel()
		if e == nil {
			util.SortProcesses(items)
		}

		a.app.PostFunc(func() {
			a.items = items
			a.err = e
			a.app.Update()
		})
		time.Sleep(time.Second)
	}
}

func (a *App) refreshLog(ctx context.Context) {
	var since int64
	for {
		info, e := a.client.Log(ctx, since, logWait)
		if ctx.Err() != nil {
			return
		}
		if e == nil {
			since = info.Id
		}
		a.app.PostFunc(func() {
			a.logErr = e
			if e == nil {
				if a.logLines == nil {
					a.logLines = []rest.LogRecord{}
				}
				a.logLines = append(a.logLines, info.Records...)
				if n := len(a.logLines) - MaxLogLines; n > 0 {
					a.logLines = a.logLines[n:]
				}
			}
			a.app.Update()
		})
		if e != nil {
			time.Sleep(2 * time.Second)
		}
	}
}

func (a *App) GetItems() ([]*rest.ProcessInfo, error) {
	return a.items, a.err
}

func (a *App) GetItem(name string) (*rest.ProcessInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.Name == name {
			return i, nil
		}
	}
	return nil, errors.New("Process not found")
}

func (a *App) GetLog() ([]rest.LogRecord, error) {
	return a.logLines, a.logErr
}

func (a *App) Run() error {
	a.Logf("Starting up user interface")
	a.app.SetRootWidget(a)
	a.ShowMain()
	go func() {
		// Give us periodic updates
		for {
			a.app.Update()
			time.Sleep(time.Second)
		}
	}()
	a.Logf("Starting app loop")
	return a.app.Run()
}
