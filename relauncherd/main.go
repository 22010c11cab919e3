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

// Command relauncherd supervises the applications listed in a profile.
//
// The flags are
//
//	-p <profile>      - profile to work with (.json, .yaml or .toml)
//	-v[v...] | -v=N   - verbosity, from -2 (necessary output only) to 4
//	                    (debug); the default is 4
//	-a <address>      - serve the status API and /metrics on this address
//	-u <user:hash>    - require basic auth, hash being a bcrypt hash
//	--tick <d>        - timer polling interval
//	--retry <d>       - delay before retrying a launch the OS refused
//	--probe-timeout   - upper bound for a single startup check
//	-n <name>         - metrics namespace
//	-j                - also log to the systemd journal, when available
//
// RELAUNCHER_PROFILE and RELAUNCHER_ADDR provide defaults for -p and -a.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/pflag"

	"github.com/gdamore/relauncher"
	"github.com/gdamore/relauncher/rest"
)

var profile = os.Getenv("RELAUNCHER_PROFILE")
var addr = os.Getenv("RELAUNCHER_ADDR")
var auth string = ""
var name string = "relauncher"
var tick = relauncher.DefaultTick
var retry = relauncher.DefaultRetryDelay
var probeTimeout = relauncher.DefaultProbeTimeout
var verbose = verbosity{level: relauncher.LevelDebug}
var useJournal bool = false

func describe(d *relauncher.Descriptor) string {
	check := "none"
	if d.Check != nil {
		check = d.Check.String()
	}
	startup := "none"
	if d.StartupTime != nil {
		startup = d.StartupTime.String()
	}
	return "{name:" + d.Name + " app:" + d.App + " cwd:" + d.Cwd +
		" delay:" + d.Delay.String() +
		" startup_time:" + startup +
		" timeout:" + d.Timeout.String() +
		" check:" + check + "}"
}

func run() int {
	logger := relauncher.NewLogger(verbose.level)
	logger.AddLogger(log.New(os.Stdout, "", 0))
	logger.SetHistory(relauncher.NewHistory(0))
	if useJournal {
		if relauncher.JournalAvailable() {
			logger.AddSink(&relauncher.JournalSink{Identifier: name})
		} else {
			logger.Logf(relauncher.LevelSys, "systemd journal not available")
		}
	}

	metrics := relauncher.NewPrometheusMetrics(name)
	sup := relauncher.New(
		relauncher.WithLogger(logger),
		relauncher.WithMetrics(metrics),
		relauncher.WithTick(tick),
		relauncher.WithRetryDelay(retry),
		relauncher.WithProbeTimeout(probeTimeout),
	)

	// Every way out of here, a panic included, must kill what we started.
	defer func() {
		if r := recover(); r != nil {
			logger.Logf(relauncher.LevelWarn, "fatal: %v", r)
			sup.Shutdown()
			panic(r)
		}
		sup.Shutdown()
	}()

	if profile == "" {
		logger.Logf(relauncher.LevelWarn, "no profile given (-p)")
		return 2
	}
	descs, e := relauncher.LoadProfile(profile)
	if e != nil {
		logger.Logf(relauncher.LevelWarn, "%v", e)
		return 1
	}
	if len(descs) == 0 {
		logger.Logf(relauncher.LevelWarn, "profile %s lists no applications", profile)
	}
	for _, d := range descs {
		logger.Logf(relauncher.LevelDebug, "%s", describe(d))
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if addr != "" {
		h := rest.NewHandler(sup)
		if auth != "" {
			a := strings.SplitN(auth, ":", 2)
			if len(a) != 2 {
				logger.Logf(relauncher.LevelWarn, "bad user:hash supplied")
				return 2
			}
			if e := h.SetAuth(a[0], []byte(a[1])); e != nil {
				logger.Logf(relauncher.LevelWarn, "bad password hash: %v", e)
				return 2
			}
		}
		h.Router().Handle("/metrics", metrics.Handler()).Methods("GET")
		srv := &http.Server{Addr: addr, Handler: h}
		go func() {
			if e := srv.ListenAndServe(); e != nil && e != http.ErrServerClosed {
				logger.Logf(relauncher.LevelWarn, "status server: %v", e)
			}
		}()
		defer srv.Close()
		logger.Logf(relauncher.LevelSys, "status server on %s", addr)
	}

	for _, d := range descs {
		if ctx.Err() != nil {
			break
		}
		logger.Logf(relauncher.LevelDebug, "%s", d.Name)
		sup.Launch(d)
	}
	if _, e := daemon.SdNotify(false, daemon.SdNotifyReady); e != nil {
		logger.Logf(relauncher.LevelDebug, "sd_notify: %v", e)
	}

	e = sup.Run(ctx)
	logger.Logf(relauncher.LevelSys, "stopping: %v", e)
	daemon.SdNotify(false, daemon.SdNotifyStopping)
	return 0
}

func main() {
	pflag.StringVarP(&profile, "profile", "p", profile, "profile to work with")
	vf := pflag.CommandLine.VarPF(&verbose, "verbose", "v",
		"verbosity levels: -2 necessary output, -1 system messages, "+
			"0 status info, 1 information, 2 messages, "+
			"3 extra information, 4 debug information")
	vf.NoOptDefVal = countFlag
	pflag.StringVarP(&addr, "addr", "a", addr, "status listen address")
	pflag.StringVarP(&auth, "auth", "u", auth, "user:bcrypt-hash for the status server")
	pflag.DurationVar(&tick, "tick", tick, "timer polling interval")
	pflag.DurationVar(&retry, "retry", retry, "delay before retrying a failed launch")
	pflag.DurationVar(&probeTimeout, "probe-timeout", probeTimeout, "startup check time limit")
	pflag.StringVarP(&name, "name", "n", name, "metrics namespace and journal identifier")
	pflag.BoolVarP(&useJournal, "journal", "j", useJournal, "log to the systemd journal")
	pflag.Parse()

	os.Exit(run())
}
