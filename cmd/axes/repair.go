package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// repairCommand runs the index's cross-referential integrity check (dangling
// parents, unresolvable aliases) and reports the first violation found. A
// full automated-fix pass is an out-of-scope collaborator (spec.md §1); this
// is the diagnostic half the core can own directly.
func repairCommand() *cli.Command {
	return &cli.Command{
		Name:  "repair",
		Usage: "check the global index for data-integrity violations",
		Action: func(c *cli.Context) error {
			p, err := resolvePaths()
			if err != nil {
				return err
			}
			guard, err := loadGuard(p)
			if err != nil {
				return err
			}
			if err := guard.View().Validate(); err != nil {
				return err
			}
			fmt.Println("index OK: no integrity violations found")
			return nil
		},
	}
}
