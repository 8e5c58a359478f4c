// Package executor implements the Task Executor (spec.md §4.7): it renders
// a PlatformSpecializedTask's commands using the Argument Resolver's
// substitutions, then runs them honoring per-command flags (silent,
// ignore-errors, parallel-batch, print-only), spawning children with the
// project root as their working directory.
package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"axes/internal/axerr"
	"axes/internal/axlog"
	"axes/internal/compiler"
	"axes/internal/flatten"
)

// Executor runs a flattened, platform-specialized task against one target
// project.
type Executor struct {
	ProjectRoot string
	Env         []string
	Stdout      io.Writer
	Stderr      io.Writer
}

func New(projectRoot string, env []string) *Executor {
	return &Executor{
		ProjectRoot: projectRoot,
		Env:         env,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

// Run executes every command in task in order, maintaining a rolling
// parallel batch: consecutive RunInParallel commands accumulate, and any
// non-parallel command flushes the batch first (spec.md §4.7).
func (e *Executor) Run(ctx context.Context, task flatten.PlatformSpecializedTask, rc RenderContext) error {
	var batch []flatten.FlatCommand

	flushBatch := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := e.runParallelBatch(ctx, batch, rc)
		batch = nil
		return err
	}

	for _, cmd := range task {
		if cmd.Action == compiler.ActionExecute && cmd.RunInParallel {
			batch = append(batch, cmd)
			continue
		}

		if err := flushBatch(); err != nil {
			return err
		}

		if err := e.runOne(ctx, cmd, rc); err != nil {
			return err
		}
	}

	return flushBatch()
}

func (e *Executor) runOne(ctx context.Context, cmd flatten.FlatCommand, rc RenderContext) error {
	rendered, err := e.render(ctx, cmd.Template, rc)
	if err != nil {
		return err
	}

	if cmd.Action == compiler.ActionPrint {
		fmt.Fprintln(e.Stdout, rendered)
		return nil
	}

	if !cmd.SilentMode {
		axlog.Tagged("executor", "+ %s", rendered)
	}

	err = e.spawn(ctx, rendered)
	if err != nil {
		if isInterrupted(err) {
			return axerr.NewInterruptedError(rendered)
		}
		if cmd.IgnoreErrors {
			axlog.Warnf("command failed (ignored): %s: %v", rendered, err)
			return nil
		}
		return err
	}
	return nil
}

// runParallelBatch dispatches every command in batch concurrently via a
// work-stealing pool (errgroup), aggregating failures per spec.md §4.7.
func (e *Executor) runParallelBatch(ctx context.Context, batch []flatten.FlatCommand, rc RenderContext) error {
	rendered := make([]string, len(batch))
	for i, cmd := range batch {
		r, err := e.render(ctx, cmd.Template, rc)
		if err != nil {
			return err
		}
		rendered[i] = r
	}

	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(batch))

	for i, cmd := range batch {
		i, cmd, r := i, cmd, rendered[i]
		g.Go(func() error {
			if !cmd.SilentMode {
				axlog.Tagged("executor", "+ (parallel) %s", r)
			}
			err := e.spawn(gctx, r)
			if err != nil && !cmd.IgnoreErrors {
				errs[i] = axerr.NewExecutionError(r, exitCodeOf(err), err)
			} else if err != nil {
				axlog.Warnf("command failed (ignored): %s: %v", r, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if interrupted := ctx.Err() != nil; interrupted {
		return axerr.NewInterruptedError("parallel batch")
	}

	if me := axerr.NewMultiError(errs); me != nil {
		return me
	}
	return nil
}

// spawn splits rendered into a program and its arguments and runs it with
// the project root as working directory, stdio inherited except where the
// caller has redirected Stdout/Stderr for capture.
func (e *Executor) spawn(ctx context.Context, rendered string) error {
	parts, err := splitCommandLine(rendered)
	if err != nil || len(parts) == 0 {
		return fmt.Errorf("cannot parse command line: %q", rendered)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = e.ProjectRoot
	cmd.Env = e.Env
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Stdin = os.Stdin
	setProcAttr(cmd)

	err = cmd.Run()
	if err != nil && isNotFound(err) {
		if retryErr := e.spawnViaShell(ctx, rendered); retryErr == nil {
			return nil
		} else {
			return retryErr
		}
	}
	if err != nil && ctx.Err() != nil {
		killProcessGroup(cmd)
	}
	return err
}

// spawnViaShell retries a command that failed to spawn directly by wrapping
// it with the system command interpreter, the only way to reach shell
// built-ins (spec.md §4.7: "On Windows, if spawning a program fails with
// 'not found', retry...").
func (e *Executor) spawnViaShell(ctx context.Context, rendered string) error {
	shellName, shellFlag := systemShell()
	cmd := exec.CommandContext(ctx, shellName, shellFlag, rendered)
	cmd.Dir = e.ProjectRoot
	cmd.Env = e.Env
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Stdin = os.Stdin
	setProcAttr(cmd)
	return cmd.Run()
}

// captureOutput runs rendered with stdout captured and stderr inherited, for
// `<run('...')>` substitution (spec.md §4.7).
func (e *Executor) captureOutput(ctx context.Context, rendered string) (string, error) {
	parts, err := splitCommandLine(rendered)
	if err != nil || len(parts) == 0 {
		return "", fmt.Errorf("cannot parse command line: %q", rendered)
	}

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = e.ProjectRoot
	cmd.Env = e.Env
	cmd.Stderr = e.Stderr
	cmd.Stdin = os.Stdin
	setProcAttr(cmd)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		if isNotFound(err) {
			shellName, shellFlag := systemShell()
			shCmd := exec.CommandContext(ctx, shellName, shellFlag, rendered)
			shCmd.Dir = e.ProjectRoot
			shCmd.Env = e.Env
			shCmd.Stderr = e.Stderr
			shCmd.Stdout = &out
			setProcAttr(shCmd)
			if shErr := shCmd.Run(); shErr != nil {
				return "", shErr
			}
			return out.String(), nil
		}
		if ctx.Err() != nil {
			return "", axerr.NewInterruptedError(rendered)
		}
		return "", err
	}
	return out.String(), nil
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	if ok := asExecError(err, &execErr); ok {
		return execErr.Err == exec.ErrNotFound
	}
	return os.IsNotExist(err)
}

func asExecError(err error, target **exec.Error) bool {
	if e, ok := err.(*exec.Error); ok {
		*target = e
		return true
	}
	return false
}

func isInterrupted(err error) bool {
	return err != nil && strings.Contains(err.Error(), "signal: killed")
}

func exitCodeOf(err error) int {
	var exitErr *exec.ExitError
	if ee, ok := err.(*exec.ExitError); ok {
		exitErr = ee
		return exitErr.ExitCode()
	}
	return 1
}
