//go:build windows

package executor

import (
	"os"
	"os/exec"
)

// setProcAttr is a no-op on Windows: axes relies on the cmd.exe fallback
// path rather than job objects to reach built-ins (spec.md §4.7).
func setProcAttr(cmd *exec.Cmd) {}

// killProcessGroup kills the direct child; Windows process groups aren't
// wired (no job-object tracking), so descendants spawned by the child are
// not guaranteed to die.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process != nil {
		_ = cmd.Process.Kill()
	}
}

// systemShell returns the command interpreter used to retry a command that
// failed to spawn directly, per spec.md §4.7's "not found" fallback.
func systemShell() (name string, flag string) {
	comspec := os.Getenv("COMSPEC")
	if comspec == "" {
		comspec = "cmd.exe"
	}
	return comspec, "/C"
}
