package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"
)

// cacheCommand inspects (and optionally clears) a project's compiled-layer
// cache directory — the debug/inspection counterpart to the Layer Cache
// (spec.md §4.3), adapted from the teacher's cache-debugging instincts to
// this domain's on-disk cache layout (spec.md §6).
func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:      "_cache",
		Usage:     "inspect or clear a project's compiled-layer cache",
		ArgsUsage: "[ctx]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "clear", Usage: "remove the cached layer, forcing a recompile on next use"},
		},
		Action: func(c *cli.Context) error {
			ctxStr := "."
			if c.NArg() > 0 {
				ctxStr = c.Args().First()
			}
			p, err := resolvePaths()
			if err != nil {
				return err
			}
			guard, err := loadGuard(p)
			if err != nil {
				return err
			}
			id, err := resolveUUID(guard, ctxStr)
			if err != nil {
				return err
			}
			entry, ok := resolveEntry(guard, id)
			if !ok {
				return fmt.Errorf("project not found in index")
			}

			cacheDir := entry.CacheDir
			if !entry.HasCacheDir || cacheDir == "" {
				cacheDir = filepath.Join(p.cacheRoot, id.String())
			}

			if c.Bool("clear") {
				if err := os.RemoveAll(cacheDir); err != nil {
					return err
				}
				fmt.Printf("cleared cache at %s\n", cacheDir)
				return nil
			}

			fmt.Printf("project:    %s\n", entry.Name)
			fmt.Printf("cache dir:  %s\n", cacheDir)
			if entry.HasConfigHash {
				fmt.Printf("last hash:  %s\n", entry.ConfigHash)
			} else {
				fmt.Println("last hash:  (none cached yet)")
			}
			return nil
		},
	}
}
