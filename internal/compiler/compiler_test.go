package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axes/internal/rawconfig"
)

func TestCompileLayer_SimpleScript(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts]
build = "cargo build <params>"
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	task := layer.Scripts["build"]
	require.Len(t, task.Runs, 1)
	exec := task.Runs[0].Default
	require.NotNil(t, exec)
	assert.Equal(t, ActionExecute, exec.Action)
}

func TestCompileLayer_ActionPrefixes(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts]
noisy = "@-echo hello"
print = "#just text"
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	noisy := layer.Scripts["noisy"].Runs[0].Default
	assert.True(t, noisy.SilentMode)
	assert.True(t, noisy.IgnoreErrors)
	assert.False(t, noisy.RunInParallel)

	printTask := layer.Scripts["print"].Runs[0].Default
	assert.Equal(t, ActionPrint, printTask.Action)
}

func TestCompileLayer_ParallelPrefix(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts]
fanout = [">task one", ">task two"]
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	task := layer.Scripts["fanout"]
	require.Len(t, task.Runs, 2)
	assert.True(t, task.Runs[0].Default.RunInParallel)
	assert.True(t, task.Runs[1].Default.RunInParallel)
}

func TestCompileLayer_PlatformSelection(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts.build]
default = "make"
windows = "nmake"
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	task := layer.Scripts["build"]
	pe := task.Runs[0]
	assert.NotNil(t, pe.Select("windows"))
	assert.NotNil(t, pe.Select("linux")) // falls back to Default
}

func TestCompileLayer_ExtendedScriptCarriesDesc(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts.build]
desc = "builds it"
run = "cargo build"
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	task := layer.Scripts["build"]
	require.NotNil(t, task.Desc)
	assert.Equal(t, "builds it", *task.Desc)
}

func TestCompileLayer_VarTokenizesLikeScriptsButIgnoresPrefixes(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[vars]
greeting = "@-hello <name>"
`))
	require.NoError(t, err)

	layer, err := CompileLayer("axes.toml", cfg)
	require.NoError(t, err)

	v := layer.Vars["greeting"]
	exec := v.Run.Default
	require.NotNil(t, exec)
	// Var compilation never strips action prefixes; "@-hello " stays literal text.
	assert.False(t, exec.SilentMode)
	assert.False(t, exec.IgnoreErrors)
}

func TestCompileLayer_UnknownTokenErrorsWithAttribution(t *testing.T) {
	cfg, err := rawconfig.Load("axes.toml", []byte(`
[scripts]
bad = "<bogus::thing>"
`))
	require.NoError(t, err)

	_, err = CompileLayer("axes.toml", cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
}
