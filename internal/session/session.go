package session

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/fsnotify/fsnotify"

	"axes/internal/argsresolve"
	"axes/internal/axerr"
	"axes/internal/axlog"
	"axes/internal/compiler"
	"axes/internal/executor"
	"axes/internal/flatten"
	"axes/internal/resolvedconfig"
	"axes/internal/template"
)

// Start launches an interactive shell session for rc (spec.md §6 glossary
// "Session"): it runs the `at_start` hook, spawns the resolved shell with
// the project's env and AXES_PROJECT_* variables, watches the leaf
// project's axes.toml for edits while the shell is open, and runs
// `at_exit` once the shell exits.
func Start(ctx context.Context, rc *resolvedconfig.ResolvedConfig, shellsPath, sourceFile, goos string, extraEnv []string) error {
	env := buildEnv(rc, extraEnv)
	ex := executor.New(rc.ProjectRoot, env)

	atStart := func() (*compiler.Task, bool) { t, _, ok := rc.AtStart(); return t, ok }
	if err := runHook(ctx, ex, rc, atStart, "options::at_start", goos); err != nil {
		return err
	}
	axlog.SetSessionMode(true)
	defer axlog.SetSessionMode(false)

	stopWatch := watchConfig(sourceFile)
	defer stopWatch()

	reg, err := LoadRegistry(shellsPath)
	if err != nil {
		axlog.Warnf("failed to load shell registry %s: %v", shellsPath, err)
		reg = Registry{}
	}
	shell := reg.Resolve(derefOrEmpty(rc.Shell()))

	cmd := exec.CommandContext(ctx, shell.Path, shell.InteractiveArgs...)
	cmd.Dir = rc.ProjectRoot
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	runErr := cmd.Run()

	atExit := func() (*compiler.Task, bool) { t, _, ok := rc.AtExit(); return t, ok }
	if hookErr := runHook(ctx, ex, rc, atExit, "options::at_exit", goos); hookErr != nil {
		axlog.Warnf("at_exit hook failed: %v", hookErr)
	}

	if runErr != nil {
		return axerr.NewExecutionError(shell.Path, exitCode(runErr), runErr)
	}
	return nil
}

func exitCode(err error) int {
	if ee, ok := err.(*exec.ExitError); ok {
		return ee.ExitCode()
	}
	return 1
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func buildEnv(rc *resolvedconfig.ResolvedConfig, extra []string) []string {
	env := append([]string{}, os.Environ()...)
	for k, v := range rc.Env() {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	env = append(env,
		"AXES_PROJECT_ROOT="+rc.ProjectRoot,
		"AXES_PROJECT_NAME="+rc.QualifiedName,
		"AXES_PROJECT_UUID="+rc.UUID.String(),
	)
	return append(env, extra...)
}

// runHook flattens and runs the named lifecycle hook if the façade defines
// one, no-op otherwise.
func runHook(ctx context.Context, ex *executor.Executor, rc *resolvedconfig.ResolvedConfig, get func() (task *compiler.Task, found bool), label, goos string) error {
	task, ok := get()
	if !ok {
		return nil
	}

	flat, err := flatten.FlattenTask(rc, task, label, goos)
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
	return ex.Run(ctx, flat, renderCtx)
}

// watchConfig starts an fsnotify watcher on sourceFile and returns a stop
// function. Changes are logged as a best-effort notice — an already-spawned
// interactive shell cannot have its exported environment rewritten from the
// outside, so this surfaces the edit rather than silently re-exporting
// (SPEC_FULL.md's session live-reload note).
func watchConfig(sourceFile string) func() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		axlog.Warnf("could not start config watcher: %v", err)
		return func() {}
	}
	if err := watcher.Add(sourceFile); err != nil {
		axlog.Warnf("could not watch %s: %v", sourceFile, err)
		watcher.Close()
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Written directly: axlog.Warnf is silent in session mode.
					fmt.Fprintf(os.Stderr, "warning: %s changed; restart the session to pick up the new config\n", sourceFile)
				}
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}
}
