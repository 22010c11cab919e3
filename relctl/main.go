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

// Command relctl talks to a running relauncherd.  It uses subcommands.
//
// The flags are
//
//	-a <address>	- server address, default is http://127.0.0.1:8321
//			  (or $RELAUNCHER_URL)
//	-u <user:pass>	- user name & password for basic auth
//	-f		- with log, keep following new records
//
// Subcommands are
//
//	list                - list all supervised processes
//	status [<name> ...] - show status for the named processes (or all)
//	info <name>         - show detailed process information
//	restart <name>      - kill the process tree and launch it again
//	log                 - print the supervisor log
//	watch               - full screen view (the default)
package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/net/context"

	"github.com/gdamore/relauncher/relctl/ui"
	"github.com/gdamore/relauncher/relctl/util"
	"github.com/gdamore/relauncher/rest"
)

var addr string = "http://127.0.0.1:8321"
var auth string = ""
var follow bool = false

func usage() {
	log.Fatalf("Usage: %s [-a <address>] [-u <user:pass>] <subcommand>",
		os.Args[0])
}

func showStatus(p *rest.ProcessInfo) {
	fmt.Printf("%-20s %-12s %10s %4d  %s\n", p.Name, util.Status(p),
		util.FormatDuration(util.Since(p, time.Now())), p.Restarts,
		util.Detail(p))
}

func showLog(client *rest.Client) {
	var since int64
	for {
		wait := time.Duration(0)
		if follow && since != 0 {
			wait = time.Minute
		}
		info, e := client.Log(context.Background(), since, wait)
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, r := range info.Records {
			fmt.Printf("%s %s\n", r.Time.Format(time.StampMilli), r.Text)
		}
		if !follow {
			return
		}
		since = info.Id
	}
}

func main() {
	if env := os.Getenv("RELAUNCHER_URL"); env != "" {
		addr = env
	}
	pflag.StringVarP(&addr, "addr", "a", addr, "relauncherd address")
	pflag.StringVarP(&auth, "auth", "u", auth, "user:pass authentication")
	pflag.BoolVarP(&follow, "follow", "f", follow, "follow the log")
	pflag.Parse()

	client := rest.NewClient(nil, addr)
	if auth != "" {
		a := strings.SplitN(auth, ":", 2)
		if len(a) != 2 {
			log.Fatalf("Bad user:pass supplied")
		}
		client.SetAuth(a[0], a[1])
	}

	args := pflag.Args()
	if len(args) == 0 {
		args = []string{"watch"}
	}
	ctx := context.Background()

	switch args[0] {
	case "list":
		if len(args) != 1 {
			usage()
		}
		names, e := client.Processes(ctx)
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, name := range names {
			fmt.Println(name)
		}
	case "restart":
		if len(args) != 2 {
			usage()
		}
		if e := client.Restart(ctx, args[1]); e != nil {
			log.Fatalf("Failed: %v", e)
		}
	case "log":
		if len(args) != 1 {
			usage()
		}
		showLog(client)
	case "info":
		if len(args) != 2 {
			usage()
		}
		p, e := client.Process(ctx, args[1])
		if e != nil {
			log.Fatalf("Failed: %v", e)
		}
		for _, l := range ui.Lines(p) {
			fmt.Println(l)
		}
	case "status":
		var infos []*rest.ProcessInfo
		if names := args[1:]; len(names) != 0 {
			for _, n := range names {
				if p, e := client.Process(ctx, n); e == nil {
					infos = append(infos, p)
				} else {
					log.Printf("Failed: %s: %v", n, e)
				}
			}
		} else {
			var e error
			if infos, e = client.All(ctx); e != nil {
				log.Fatalf("Failed: %v", e)
			}
		}
		util.SortProcesses(infos)
		for _, p := range infos {
			showStatus(p)
		}
	case "watch":
		doUI(client, addr)
	default:
		usage()
	}
}
