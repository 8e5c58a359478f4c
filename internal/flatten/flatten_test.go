package flatten

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axes/internal/compiler"
	"axes/internal/template"
)

type fakeLookup struct {
	scripts map[string]compiler.Task
	vars    map[string]compiler.Var
}

func (f fakeLookup) Script(name string) (*compiler.Task, uuid.UUID, bool) {
	t, ok := f.scripts[name]
	if !ok {
		return nil, uuid.Nil, false
	}
	return &t, uuid.Nil, true
}

func (f fakeLookup) Var(name string) (*compiler.Var, uuid.UUID, bool) {
	v, ok := f.vars[name]
	if !ok {
		return nil, uuid.Nil, false
	}
	return &v, uuid.Nil, true
}

func mustTokenize(t *testing.T, s string) []template.Component {
	t.Helper()
	comps, err := template.Tokenize(s)
	require.NoError(t, err)
	return comps
}

func simpleTask(t *testing.T, cmd string) compiler.Task {
	return compiler.Task{Runs: []compiler.PlatformExecution{
		{Default: &compiler.CommandExecution{Action: compiler.ActionExecute, Template: mustTokenize(t, cmd)}},
	}}
}

func TestFlatten_InlinesScriptRef(t *testing.T) {
	lookup := fakeLookup{scripts: map[string]compiler.Task{
		"build":  simpleTask(t, "cargo build <scripts::notify>"),
		"notify": simpleTask(t, "echo done"),
	}}

	out, err := Flatten(lookup, "build", "linux")
	require.NoError(t, err)
	require.Len(t, out, 2)
}

func TestFlatten_InlinesVarRefIntoSameCommand(t *testing.T) {
	lookup := fakeLookup{
		scripts: map[string]compiler.Task{"build": simpleTask(t, "cargo build --target <vars::target>")},
		vars:    map[string]compiler.Var{"target": {Run: compiler.PlatformExecution{Default: &compiler.CommandExecution{Template: mustTokenize(t, "x86_64")}}}},
	}

	out, err := Flatten(lookup, "build", "linux")
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestFlatten_DetectsScriptCycle(t *testing.T) {
	lookup := fakeLookup{scripts: map[string]compiler.Task{
		"a": simpleTask(t, "<scripts::b>"),
		"b": simpleTask(t, "<scripts::a>"),
	}}

	_, err := Flatten(lookup, "a", "linux")
	assert.Error(t, err)
}

func TestFlatten_VarCannotReferenceScript(t *testing.T) {
	lookup := fakeLookup{
		scripts: map[string]compiler.Task{"build": simpleTask(t, "<vars::bad>")},
		vars:    map[string]compiler.Var{"bad": {Run: compiler.PlatformExecution{Default: &compiler.CommandExecution{Template: mustTokenize(t, "<scripts::build>")}}}},
	}

	_, err := Flatten(lookup, "build", "linux")
	assert.Error(t, err)
}

func TestFlatten_UnknownScriptNameErrors(t *testing.T) {
	_, err := Flatten(fakeLookup{}, "missing", "linux")
	assert.Error(t, err)
}

func TestFlatten_PlatformSelectionDropsOtherPlatforms(t *testing.T) {
	task := compiler.Task{Runs: []compiler.PlatformExecution{
		{
			Default: &compiler.CommandExecution{Template: mustTokenize(t, "make")},
			Windows: &compiler.CommandExecution{Template: mustTokenize(t, "nmake")},
		},
	}}
	lookup := fakeLookup{scripts: map[string]compiler.Task{"build": task}}

	out, err := Flatten(lookup, "build", "windows")
	require.NoError(t, err)
	require.Len(t, out, 1)
	lit, ok := out[0].Template[0].(template.Literal)
	require.True(t, ok)
	assert.Equal(t, "nmake", lit.Text)
}
