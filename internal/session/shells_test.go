package session

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry_MissingFileReturnsEmptyRegistry(t *testing.T) {
	reg, err := LoadRegistry(filepath.Join(t.TempDir(), "shells.toml"))
	require.NoError(t, err)
	assert.Empty(t, reg)
}

func TestLoadRegistry_ParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shells.toml")
	contents := `
[bash]
path = "/bin/bash"
interactive_args = ["-i"]

[fish]
path = "/usr/bin/fish"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	require.Contains(t, reg, "bash")
	assert.Equal(t, "/bin/bash", reg["bash"].Path)
	assert.Equal(t, []string{"-i"}, reg["bash"].InteractiveArgs)
	assert.Equal(t, "/usr/bin/fish", reg["fish"].Path)
}

func TestLoadRegistry_MalformedTOMLErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shells.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))

	_, err := LoadRegistry(path)
	assert.Error(t, err)
}

func TestRegistry_Resolve_ReturnsNamedShellWhenPresent(t *testing.T) {
	reg := Registry{"zsh": Shell{Path: "/bin/zsh", InteractiveArgs: []string{"-i"}}}
	got := reg.Resolve("zsh")
	assert.Equal(t, "/bin/zsh", got.Path)
}

func TestRegistry_Resolve_FallsBackWhenNameUnknown(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("default-shell fallback assertions below target the Unix branch")
	}
	t.Setenv("SHELL", "/bin/myshell")
	reg := Registry{}
	got := reg.Resolve("does-not-exist")
	assert.Equal(t, "/bin/myshell", got.Path)
}

func TestRegistry_Resolve_EmptyNameUsesDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("default-shell fallback assertions below target the Unix branch")
	}
	t.Setenv("SHELL", "/bin/myshell")
	got := Registry{}.Resolve("")
	assert.Equal(t, "/bin/myshell", got.Path)
}

func TestDefaultShell_FallsBackToBinShWhenUnset(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("targets the Unix branch of defaultShell")
	}
	t.Setenv("SHELL", "")
	got := defaultShell()
	assert.Equal(t, "/bin/sh", got.Path)
}
