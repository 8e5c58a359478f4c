// Package flatten implements the Task Flattener (spec.md §4.5): given a
// script name and a config façade, it recursively inlines `<scripts::x>` and
// `<vars::y>` references and specializes the result for the current OS,
// producing a PlatformSpecializedTask ready for the Argument Resolver and
// Task Executor.
package flatten

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"axes/internal/axerr"
	"axes/internal/compiler"
	"axes/internal/template"
)

// maxDepth caps ScriptRef/VarRef recursion (spec.md §4.5).
const maxDepth = 32

// FlatCommand is one fully-inlined, platform-specialized command.
type FlatCommand struct {
	Action        compiler.Action
	Template      []template.Component
	IgnoreErrors  bool
	RunInParallel bool
	SilentMode    bool
}

// PlatformSpecializedTask is the flattener's output: an ordered list of
// FlatCommands, every other platform already discarded.
type PlatformSpecializedTask []FlatCommand

// Lookup resolves script/var names against the inheritance-merged façade.
// resolvedconfig.ResolvedConfig satisfies this directly.
type Lookup interface {
	Script(name string) (*compiler.Task, uuid.UUID, bool)
	Var(name string) (*compiler.Var, uuid.UUID, bool)
}

// Flatten produces the PlatformSpecializedTask for scriptName on goos.
func Flatten(lookup Lookup, scriptName, goos string) (PlatformSpecializedTask, error) {
	task, _, ok := lookup.Script(scriptName)
	if !ok {
		return nil, axerr.NewUserError("run", fmt.Errorf("no script named %q", scriptName))
	}

	st := &flattenState{lookup: lookup, goos: goos}
	return st.flattenTask(task, []string{"scripts::" + scriptName})
}

// FlattenTask flattens an arbitrary Task directly, without a name lookup of
// its own — used for the `at_start`/`at_exit` hook tasks (spec.md §3, §6),
// which may still reference `<scripts::x>`/`<vars::y>` but aren't
// themselves registered under a script name.
func FlattenTask(lookup Lookup, task *compiler.Task, label, goos string) (PlatformSpecializedTask, error) {
	st := &flattenState{lookup: lookup, goos: goos}
	return st.flattenTask(task, []string{label})
}

type flattenState struct {
	lookup Lookup
	goos   string
}

func (st *flattenState) flattenTask(task *compiler.Task, stack []string) (PlatformSpecializedTask, error) {
	if len(stack) > maxDepth {
		return nil, axerr.NewConfigError("", strings.Join(stack, " -> "), fmt.Errorf("recursion depth exceeds %d", maxDepth))
	}

	var out PlatformSpecializedTask
	for _, pe := range task.Runs {
		cmd := pe.Select(st.goos)
		if cmd == nil {
			continue
		}
		flattened, err := st.flattenCommand(cmd, stack)
		if err != nil {
			return nil, err
		}
		out = append(out, flattened...)
	}
	return out, nil
}

// flattenCommand walks one CommandExecution's template, splicing in whole
// inlined commands whenever a ScriptRef is found (flushing whatever literal
// run has accumulated so far as its own command first) and splicing var
// templates inline for VarRef.
func (st *flattenState) flattenCommand(cmd *compiler.CommandExecution, stack []string) (PlatformSpecializedTask, error) {
	var out PlatformSpecializedTask
	var current []template.Component

	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, FlatCommand{
			Action:        cmd.Action,
			Template:      current,
			IgnoreErrors:  cmd.IgnoreErrors,
			RunInParallel: cmd.RunInParallel,
			SilentMode:    cmd.SilentMode,
		})
		current = nil
	}

	for _, comp := range cmd.Template {
		switch c := comp.(type) {
		case template.ScriptRef:
			if err := checkCycle(stack, "scripts::"+c.Name); err != nil {
				return nil, err
			}
			refTask, _, ok := st.lookup.Script(c.Name)
			if !ok {
				return nil, axerr.NewUserError("run", fmt.Errorf("no script named %q (referenced via <scripts::%s>)", c.Name, c.Name))
			}
			flush()
			inlined, err := st.flattenTask(refTask, append(stack, "scripts::"+c.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, inlined...)

		case template.VarRef:
			if err := checkCycle(stack, "vars::"+c.Name); err != nil {
				return nil, err
			}
			v, _, ok := st.lookup.Var(c.Name)
			if !ok {
				return nil, axerr.NewUserError("run", fmt.Errorf("no var named %q (referenced via <vars::%s>)", c.Name, c.Name))
			}
			rendered, err := st.flattenVar(v, append(stack, "vars::"+c.Name))
			if err != nil {
				return nil, err
			}
			current = append(current, rendered...)

		default:
			current = append(current, comp)
		}
	}
	flush()
	return out, nil
}

// flattenVar resolves a var's platform-specialized template, recursively
// inlining any further scripts::/vars:: references it itself contains.
func (st *flattenState) flattenVar(v *compiler.Var, stack []string) ([]template.Component, error) {
	if len(stack) > maxDepth {
		return nil, axerr.NewConfigError("", strings.Join(stack, " -> "), fmt.Errorf("recursion depth exceeds %d", maxDepth))
	}

	cmd := v.Run.Select(st.goos)
	if cmd == nil {
		return nil, nil
	}

	var out []template.Component
	for _, comp := range cmd.Template {
		switch c := comp.(type) {
		case template.ScriptRef:
			return nil, axerr.NewConfigError("", "vars::"+stack[len(stack)-1], fmt.Errorf("vars cannot reference scripts (<scripts::%s>)", c.Name))
		case template.VarRef:
			if err := checkCycle(stack, "vars::"+c.Name); err != nil {
				return nil, err
			}
			inner, _, ok := st.lookup.Var(c.Name)
			if !ok {
				return nil, axerr.NewUserError("run", fmt.Errorf("no var named %q (referenced via <vars::%s>)", c.Name, c.Name))
			}
			rendered, err := st.flattenVar(inner, append(stack, "vars::"+c.Name))
			if err != nil {
				return nil, err
			}
			out = append(out, rendered...)
		default:
			out = append(out, comp)
		}
	}
	return out, nil
}

// checkCycle reports a cycle if key is already on the recursion stack,
// naming the full cycle path (spec.md §4.5).
func checkCycle(stack []string, key string) error {
	for _, s := range stack {
		if s == key {
			return axerr.NewConfigError("", key, fmt.Errorf("reference cycle detected: %s -> %s", strings.Join(stack, " -> "), key))
		}
	}
	return nil
}
