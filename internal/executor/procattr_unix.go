//go:build !windows

package executor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr puts each spawned child in its own process group so a single
// Ctrl-C can be forwarded to the whole group, not just the directly-spawned
// process (spec.md §4.7, §5 cancellation semantics).
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup sends SIGKILL to the process group started by setProcAttr.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
}

// systemShell returns the interpreter used for the "spawn failed, retry
// wrapped" fallback (spec.md §4.7 names this for Windows built-ins; on Unix
// it's the same fallback path for shell builtins like `cd`).
func systemShell() (name string, flag string) {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return shell, "-c"
}
