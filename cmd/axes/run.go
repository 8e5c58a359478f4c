package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/urfave/cli/v2"

	"axes/internal/argsresolve"
	"axes/internal/axerr"
	"axes/internal/executor"
	"axes/internal/flatten"
	"axes/internal/resolvedconfig"
	"axes/internal/template"
)

func runScriptCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a script against a project",
		ArgsUsage: "<ctx/script> [params...]",
		Action:    runScriptAction,
	}
}

func runScriptAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return axerr.NewUserError("run", fmt.Errorf("usage: axes run <ctx/script> [params...]"))
	}
	ctxStr, scriptName := splitRunTarget(c.Args().First())
	cliParams := c.Args().Slice()[1:]

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

	flat, err := flatten.Flatten(rc, scriptName, runtime.GOOS)
	if err != nil {
		return err
	}

	templates := make([][]template.Component, len(flat))
	for i, cmd := range flat {
		templates[i] = cmd.Template
	}
	defs, hasGeneric := argsresolve.ExtractDefs(templates)
	argResult, err := argsresolve.Resolve(defs, cliParams, hasGeneric)
	if err != nil {
		return err
	}

	renderCtx := executor.BuildRenderContext(
		rc.ProjectRoot, rc.QualifiedName, rc.UUID.String(),
		rc.Version(), argResult.Substitutions, argResult.GenericValues, false,
	)

	ex := executor.New(rc.ProjectRoot, sessionEnv(rc))

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

	runErr := ex.Run(ctx, flat, renderCtx)

	// Cancellation must never poison the state guard: the snapshot
	// comparison still runs so partial cache metadata updates persist
	// (spec.md §4.7, §4.8).
	if persistErr := guard.Persist(); persistErr != nil && runErr == nil {
		return persistErr
	}

	return runErr
}

// sessionEnv exposes AXES_PROJECT_ROOT/NAME/UUID and the resolved env map
// to every spawned child (spec.md §6).
func sessionEnv(rc *resolvedconfig.ResolvedConfig) []string {
	env := append([]string{}, os.Environ()...)
	for k, v := range rc.Env() {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return append(env,
		"AXES_PROJECT_ROOT="+rc.ProjectRoot,
		"AXES_PROJECT_NAME="+rc.QualifiedName,
		"AXES_PROJECT_UUID="+rc.UUID.String(),
	)
}
