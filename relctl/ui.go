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

package main

import (
	"io"
	"log"
	"os"

	"github.com/gdamore/relauncher/relctl/ui"
	"github.com/gdamore/relauncher/rest"
)

// doUI runs the full screen view.  The screen belongs to tcell, so
// diagnostics go to $RELCTL_LOG if set, and nowhere otherwise.
func doUI(client *rest.Client, url string) {
	var w io.Writer = io.Discard
	if name := os.Getenv("RELCTL_LOG"); name != "" {
		f, e := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if e != nil {
			log.Fatalf("Cannot open log: %v", e)
		}
		defer f.Close()
		w = f
	}

	app := ui.NewApp(client, url)
	app.SetLogger(log.New(w, "", log.LstdFlags))
	if e := app.Run(); e != nil {
		log.Fatalf("Failed: %v", e)
	}
}

/*
   Our screen has the following appearance:

    http://127.0.0.1:8321          Processes              Relauncher v1.0
        4 Processes      1 Down      1 Pending      2 Up
   ____________________________________________________________________________
   web.1                verified        0:10:32    0  pid 4242
   worker.2             unverified      0:00:03    2  restarted (startup-check)
   cron.3               failed          0:00:41    0  exec: "cronx": not found
   ____________________________________________________________________________
   [Q] Quit [H] Help [L] Log [I] Info [R] Restart
*/
