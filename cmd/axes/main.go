// Command axes is the thin dispatcher that wires the CORE packages
// together (spec.md §1: the dispatcher and its argument parsing are
// out-of-scope collaborators; this file is the minimal plumbing that
// proves scripts/vars/hooks actually run end to end).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"axes/internal/axerr"
	"axes/internal/axlog"
	"axes/internal/stateguard"
	"axes/internal/version"
)

// paths is the resolved set of on-disk locations the dispatcher needs
// (spec.md §6 "On-disk file layout" / "Global state files").
type paths struct {
	indexPath  string
	shellsTOML string
	cacheRoot  string
}

func resolvePaths() (paths, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return paths{}, err
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return paths{}, err
	}
	return paths{
		indexPath:  filepath.Join(cfgDir, "axes", "index"),
		shellsTOML: filepath.Join(cfgDir, "axes", "shells.toml"),
		cacheRoot:  filepath.Join(cacheDir, "axes", "cache", "projects"),
	}, nil
}

func defaultRootPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return string(filepath.Separator)
}

// loadGuard opens the Journaling State Guard over the global index
// (spec.md §4.8). Every command that touches the index goes through it.
func loadGuard(p paths) (*stateguard.Guard, error) {
	return stateguard.Load(p.indexPath, defaultRootPath())
}

func main() {
	os.Exit(run(os.Args))
}

func run(argv []string) int {
	app := &cli.App{
		Name:                   "axes",
		Usage:                  "hierarchical, session-aware workflow orchestrator",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				axlog.EnableDebug = "true"
			}
			return nil
		},
		Commands: []*cli.Command{
			initCommand(),
			registerCommand(),
			runScriptCommand(),
			infoCommand(),
			treeCommand(),
			linkCommand(),
			renameCommand(),
			deleteCommand(),
			unregisterCommand(),
			aliasCommand(),
			startCommand(),
			openCommand(),
			repairCommand(),
			cacheCommand(),
		},
	}

	if err := app.Run(argv); err != nil {
		if axerr.KindOf(err) == axerr.KindInterrupted {
			return 130
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		return axerr.ExitCode(err)
	}
	return 0
}
