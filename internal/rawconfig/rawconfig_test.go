package rawconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SimpleScriptShape(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[scripts]
build = "cargo build <params>"
`))
	require.NoError(t, err)
	script := cfg.Scripts["build"]
	assert.Equal(t, ShapeSimple, script.Shape)
	assert.Equal(t, "cargo build <params>", script.Simple)
}

func TestLoad_SequenceScriptShape(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[scripts]
deploy = ["cargo build --release", "scp target/app host:"]
`))
	require.NoError(t, err)
	script := cfg.Scripts["deploy"]
	require.Equal(t, ShapeSequence, script.Shape)
	assert.Equal(t, []string{"cargo build --release", "scp target/app host:"}, script.Sequence)
}

func TestLoad_PlatformScriptShape(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[scripts.build]
default = "make"
windows = "nmake"
`))
	require.NoError(t, err)
	script := cfg.Scripts["build"]
	require.Equal(t, ShapePlatform, script.Shape)
	require.NotNil(t, script.Platform.Default)
	assert.Equal(t, "make", *script.Platform.Default)
	require.NotNil(t, script.Platform.Windows)
	assert.Equal(t, "nmake", *script.Platform.Windows)
}

func TestLoad_ExtendedScriptShapeWrapsSequence(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[scripts.build]
desc = "builds the project"
run = ["cargo fmt", "cargo build"]
`))
	require.NoError(t, err)
	script := cfg.Scripts["build"]
	require.Equal(t, ShapeExtended, script.Shape)
	require.NotNil(t, script.Desc)
	assert.Equal(t, "builds the project", *script.Desc)
	require.NotNil(t, script.Run)
	assert.Equal(t, ShapeSequence, script.Run.Shape)
}

func TestLoad_UnknownScriptFieldErrors(t *testing.T) {
	_, err := Load("axes.toml", []byte(`
[scripts.build]
bogus = "x"
`))
	assert.Error(t, err)
}

func TestLoad_SimpleVar(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[vars]
target = "x86_64-unknown-linux-gnu"
`))
	require.NoError(t, err)
	v := cfg.Vars["target"]
	assert.False(t, v.IsExtended)
	assert.Equal(t, "x86_64-unknown-linux-gnu", v.Simple)
}

func TestLoad_ExtendedVarWithPlatformValue(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[vars.target]
desc = "target triple"
[vars.target.value]
default = "x86_64-unknown-linux-gnu"
windows = "x86_64-pc-windows-msvc"
`))
	require.NoError(t, err)
	v := cfg.Vars["target"]
	require.True(t, v.IsExtended)
	require.NotNil(t, v.Desc)
	assert.True(t, v.Value.IsPlatform)
	require.NotNil(t, v.Value.Platform.Windows)
	assert.Equal(t, "x86_64-pc-windows-msvc", *v.Value.Platform.Windows)
}

func TestLoad_OpenWithAndAtStart(t *testing.T) {
	cfg, err := Load("axes.toml", []byte(`
[options]
at_start = "echo entering project"

[options.open_with]
default = "code"

[options.open_with.commands]
code = "code ."
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Options.AtStart)
	assert.Equal(t, ShapeSimple, cfg.Options.AtStart.Shape)
	require.NotNil(t, cfg.Options.OpenWith.Default)
	assert.Equal(t, "code", *cfg.Options.OpenWith.Default)
	assert.Contains(t, cfg.Options.OpenWith.Commands, "code")
}
