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
	"os"
	"os/exec"
	"syscall"
)

const createNewConsole = 0x00000010

// shellCommand runs command through cmd.exe, in a new console and process
// group.  The command line is passed verbatim, as cmd.exe does its own
// parsing.
func shellCommand(command string) *exec.Cmd {
	cmd := exec.Command("cmd")
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CmdLine:       "cmd /C " + command,
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | createNewConsole,
	}
	return cmd
}

// There is no portable graceful stop for a console process on Windows.
func gracefulStop(p *os.Process) error {
	return p.Kill()
}
