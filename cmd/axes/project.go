package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"axes/internal/axerr"
	axcontext "axes/internal/context"
	"axes/internal/projectref"
	"axes/internal/stateguard"
)

const axesTomlSkeleton = `# axes project configuration (spec.md §3, §6)

[scripts]

[vars]

[env]

[options]
`

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "register the current directory as a new project",
		ArgsUsage: "<name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Usage: "directory to register (default: cwd)"},
			&cli.StringFlag{Name: "parent", Usage: "parent context (default: nearest enclosing project, else global root)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return axerr.NewUserError("init", fmt.Errorf("usage: axes init <name>"))
			}
			path := c.String("path")
			if path == "" {
				wd, err := os.Getwd()
				if err != nil {
					return err
				}
				path = wd
			}
			return registerProject(path, c.Args().First(), c.String("parent"))
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:      "register",
		Usage:     "register an existing directory as a project",
		ArgsUsage: "<path> <name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "parent", Usage: "parent context (default: nearest enclosing project, else global root)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return axerr.NewUserError("register", fmt.Errorf("usage: axes register <path> <name>"))
			}
			return registerProject(c.Args().Get(0), c.Args().Get(1), c.String("parent"))
		},
	}
}

func registerProject(path, name, parentCtx string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	p, err := resolvePaths()
	if err != nil {
		return err
	}
	guard, err := loadGuard(p)
	if err != nil {
		return err
	}

	parent, err := resolveParent(guard, absPath, parentCtx)
	if err != nil {
		return err
	}

	entry, err := guard.Mutate().Register(parent, name, absPath)
	if err != nil {
		return err
	}

	ref := projectref.Ref{Self: entry.UUID, Parent: parent, HasParent: true, Name: name}
	if err := projectref.Write(absPath, ref); err != nil {
		return axerr.NewIOError(absPath, err)
	}

	tomlPath := filepath.Join(absPath, ".axes", "axes.toml")
	if _, err := os.Stat(tomlPath); os.IsNotExist(err) {
		if err := os.WriteFile(tomlPath, []byte(axesTomlSkeleton), 0644); err != nil {
			return axerr.NewIOError(tomlPath, err)
		}
	}

	if err := guard.Mutate().SetAlias(name, entry.UUID); err == nil {
		// best-effort: give every project a same-named alias for convenience
	}

	if err := guard.Persist(); err != nil {
		return err
	}

	fmt.Printf("Registered %q (%s) under %s\n", name, entry.UUID, absPath)
	return nil
}

// resolveParent determines the parent UUID for a new registration: an
// explicit --parent context, the nearest enclosing project found by walking
// up from path, or the global root.
func resolveParent(guard *stateguard.Guard, path, parentCtx string) (uuid.UUID, error) {
	if parentCtx != "" {
		return resolveUUID(guard, parentCtx)
	}
	if ref, _, ok := projectref.FindFromPath(filepath.Dir(path), false); ok {
		return ref.Self, nil
	}
	return axcontext.Resolve(guard.View(), "global", path)
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:      "link",
		Usage:     "re-parent a project",
		ArgsUsage: "<ctx> <new-parent-ctx>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return axerr.NewUserError("link", fmt.Errorf("usage: axes link <ctx> <new-parent-ctx>"))
			}
			return withGuard(func(guard *stateguard.Guard) error {
				id, err := resolveUUID(guard, c.Args().Get(0))
				if err != nil {
					return err
				}
				newParent, err := resolveUUID(guard, c.Args().Get(1))
				if err != nil {
					return err
				}
				return guard.Mutate().Link(id, newParent)
			})
		},
	}
}

func renameCommand() *cli.Command {
	return &cli.Command{
		Name:      "rename",
		Usage:     "rename a project",
		ArgsUsage: "<ctx> <new-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return axerr.NewUserError("rename", fmt.Errorf("usage: axes rename <ctx> <new-name>"))
			}
			return withGuard(func(guard *stateguard.Guard) error {
				id, err := resolveUUID(guard, c.Args().Get(0))
				if err != nil {
					return err
				}
				return guard.Mutate().Rename(id, c.Args().Get(1))
			})
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "delete a project, re-parenting any children to the root",
		ArgsUsage: "<ctx>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return axerr.NewUserError("delete", fmt.Errorf("usage: axes delete <ctx>"))
			}
			return withGuard(func(guard *stateguard.Guard) error {
				id, err := resolveUUID(guard, c.Args().Get(0))
				if err != nil {
					return err
				}
				return guard.Mutate().Delete(id)
			})
		},
	}
}

func unregisterCommand() *cli.Command {
	return &cli.Command{
		Name:      "unregister",
		Usage:     "remove a project from the index without touching the filesystem",
		ArgsUsage: "<ctx>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return axerr.NewUserError("unregister", fmt.Errorf("usage: axes unregister <ctx>"))
			}
			return withGuard(func(guard *stateguard.Guard) error {
				id, err := resolveUUID(guard, c.Args().Get(0))
				if err != nil {
					return err
				}
				return guard.Mutate().Unregister(id)
			})
		},
	}
}

func aliasCommand() *cli.Command {
	return &cli.Command{
		Name:      "alias",
		Usage:     "point an alias at a project, or remove one",
		ArgsUsage: "<ctx> <alias-name> | --remove <alias-name>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "remove", Usage: "remove this alias"},
		},
		Action: func(c *cli.Context) error {
			if remove := c.String("remove"); remove != "" {
				return withGuard(func(guard *stateguard.Guard) error {
					guard.Mutate().UnsetAlias(remove)
					return nil
				})
			}
			if c.NArg() < 2 {
				return axerr.NewUserError("alias", fmt.Errorf("usage: axes alias <ctx> <alias-name>"))
			}
			return withGuard(func(guard *stateguard.Guard) error {
				id, err := resolveUUID(guard, c.Args().Get(0))
				if err != nil {
					return err
				}
				return guard.Mutate().SetAlias(c.Args().Get(1), id)
			})
		},
	}
}

// withGuard loads the index, runs fn against it, and persists any real
// change (spec.md §4.8) — the shared shape of every mutating command.
func withGuard(fn func(*stateguard.Guard) error) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	guard, err := loadGuard(p)
	if err != nil {
		return err
	}
	if err := fn(guard); err != nil {
		return err
	}
	return guard.Persist()
}
