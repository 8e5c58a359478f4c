package projectref

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRead_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	ref := Ref{Self: uuid.New(), Parent: uuid.New(), HasParent: true, Name: "app"}

	require.NoError(t, Write(dir, ref))

	got, ok := Read(dir)
	require.True(t, ok)
	assert.Equal(t, ref, got)
}

func TestRead_MissingReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	_, ok := Read(dir)
	assert.False(t, ok)
}

func TestFindFromPath_WalksUpToAncestor(t *testing.T) {
	dir := t.TempDir()
	ref := Ref{Self: uuid.New(), Name: "app"}
	require.NoError(t, Write(dir, ref))

	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0755))

	found, root, ok := FindFromPath(nested, false)
	require.True(t, ok)
	assert.Equal(t, ref.Self, found.Self)
	assert.Equal(t, dir, root)
}

func TestFindFromPath_StrictRejectsAncestor(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(dir, Ref{Self: uuid.New(), Name: "app"}))

	nested := filepath.Join(dir, "a")
	require.NoError(t, os.MkdirAll(nested, 0755))

	_, _, ok := FindFromPath(nested, true)
	assert.False(t, ok)
}

func TestFindFromPath_NoneFoundReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	_, _, ok := FindFromPath(dir, false)
	assert.False(t, ok)
}
