// Package session implements the interactive shell session (spec.md §6
// glossary "Session", SUPPLEMENTED FEATURES in SPEC_FULL.md): the
// `shells.toml` registry of launchable shells, and the `start` command's
// watcher that warns when the leaf project's axes.toml changes (the config
// is not reloaded into the running shell).
package session

import (
	"os"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// Shell is one entry of the `shells.toml` registry (spec.md §6): the
// executable path and the flags that put it in interactive mode.
type Shell struct {
	Path            string   `toml:"path"`
	InteractiveArgs []string `toml:"interactive_args"`
}

// Registry is the parsed `shells.toml`: shell name -> Shell.
type Registry map[string]Shell

// LoadRegistry reads shells.toml at path, returning an empty registry (not
// an error) if the file doesn't exist yet — the built-in fallback in
// defaultShell() covers that case.
func LoadRegistry(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Registry{}, nil
	}
	if err != nil {
		return nil, err
	}
	var reg Registry
	if err := toml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// Resolve picks the shell to launch: byName if the registry has it,
// otherwise the platform's built-in fallback ($SHELL, else /bin/sh, on Unix;
// %COMSPEC%, else cmd.exe, on Windows), mirroring the original's
// shells_config.rs default table.
func (r Registry) Resolve(byName string) Shell {
	if byName != "" {
		if sh, ok := r[byName]; ok {
			return sh
		}
	}
	return defaultShell()
}

func defaultShell() Shell {
	if runtime.GOOS == "windows" {
		comspec := os.Getenv("COMSPEC")
		if comspec == "" {
			comspec = "cmd.exe"
		}
		return Shell{Path: comspec}
	}
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = "/bin/sh"
	}
	return Shell{Path: shell}
}
