package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"axes/internal/argsresolve"
	"axes/internal/axerr"
	"axes/internal/executor"
	"axes/internal/flatten"
	"axes/internal/session"
	"axes/internal/template"
)

func startCommand() *cli.Command {
	return &cli.Command{
		Name:      "start",
		Usage:     "open an interactive shell session inside a project",
		ArgsUsage: "[ctx]",
		Action: func(c *cli.Context) error {
			ctxStr := "."
			if c.NArg() > 0 {
				ctxStr = c.Args().First()
			}
			return withInteractiveSession(ctxStr)
		},
	}
}

// withInteractiveSession resolves ctxStr, then hands off to
// internal/session.Start for the lifetime of the shell (spec.md §6 "Session").
func withInteractiveSession(ctxStr string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	guard, err := loadGuard(p)
	if err != nil {
		return err
	}
	rc, err := targetProject(guard, p.cacheRoot, ctxStr)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	sourceFile := filepath.Join(rc.ProjectRoot, ".axes", "axes.toml")
	runErr := session.Start(ctx, rc, p.shellsTOML, sourceFile, runtime.GOOS, nil)

	if persistErr := guard.Persist(); persistErr != nil && runErr == nil {
		return persistErr
	}
	return runErr
}

// openCommand dispatches `open_with` entries: with no extra argument it runs
// `options.open_with.default`; with one, the matching named command under
// `options.open_with.commands` (spec.md §3 Options).
func openCommand() *cli.Command {
	return &cli.Command{
		Name:      "open",
		Usage:     "run a configured open_with command against a project",
		ArgsUsage: "<ctx> [command-name]",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return axerr.NewUserError("open", fmt.Errorf("usage: axes open <ctx> [command-name]"))
			}
			ctxStr := c.Args().First()
			commandName := ""
			if c.NArg() > 1 {
				commandName = c.Args().Get(1)
			}
			return runOpenWith(ctxStr, commandName)
		},
	}
}

func runOpenWith(ctxStr, commandName string) error {
	p, err := resolvePaths()
	if err != nil {
		return err
	}
	guard, err := loadGuard(p)
	if err != nil {
		return err
	}
	rc, err := targetProject(guard, p.cacheRoot, ctxStr)
	if err != nil {
		return err
	}

	name := commandName
	if name == "" {
		def := rc.OpenWithDefault()
		if def == nil {
			return axerr.NewUserError("open", fmt.Errorf("project %q defines no options.open_with.default", rc.QualifiedName))
		}
		name = *def
	}

	t, _, ok := rc.OpenWithCommand(name)
	if !ok {
		return axerr.NewUserError("open", fmt.Errorf("no open_with command named %q for project %q", name, rc.QualifiedName))
	}

	flat, err := flatten.FlattenTask(rc, t, "open_with::"+name, runtime.GOOS)
	if err != nil {
		return err
	}
	templates := make([][]template.Component, len(flat))
	for i, cmd := range flat {
		templates[i] = cmd.Template
	}
	defs, hasGeneric := argsresolve.ExtractDefs(templates)
	res, err := argsresolve.Resolve(defs, nil, hasGeneric)
	if err != nil {
		return err
	}
	renderCtx := executor.BuildRenderContext(rc.ProjectRoot, rc.QualifiedName, rc.UUID.String(), rc.Version(), res.Substitutions, res.GenericValues, false)

	ex := executor.New(rc.ProjectRoot, sessionEnv(rc))
	runErr := ex.Run(context.Background(), flat, renderCtx)

	if persistErr := guard.Persist(); persistErr != nil && runErr == nil {
		return persistErr
	}
	return runErr
}
