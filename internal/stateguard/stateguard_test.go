package stateguard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axes/internal/projectindex"
)

func TestLoad_MissingFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	guard, err := Load(filepath.Join(dir, "index"), "/home/user")
	require.NoError(t, err)
	assert.False(t, guard.IsDirty())
	assert.Len(t, guard.View().Projects, 1)
}

func TestPersist_NoOpWithoutMutation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	guard, err := Load(path, "/home/user")
	require.NoError(t, err)

	require.NoError(t, guard.Persist())
	_, err = os.ReadFile(path)
	assert.Error(t, err, "no file should have been written")
}

func TestPersist_WritesAndRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	guard, err := Load(path, "/home/user")
	require.NoError(t, err)

	entry, err := guard.Mutate().Register(projectindex.RootUUID, "app", "/home/user/app")
	require.NoError(t, err)
	require.NoError(t, guard.Persist())

	reloaded, err := Load(path, "/home/user")
	require.NoError(t, err)
	_, ok := reloaded.View().Projects[entry.UUID]
	assert.True(t, ok)
}

func TestPersist_SkipsWriteWhenMutationIsANoOp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	guard, err := Load(path, "/home/user")
	require.NoError(t, err)

	// Mutate() forces the dirty clone, but no actual change is made.
	guard.Mutate()
	require.NoError(t, guard.Persist())

	_, err = os.ReadFile(path)
	assert.Error(t, err, "deep-equal dirty/pristine state must not be persisted")
}

func TestTouchLastUsed_SkipsDirtyTransitionWhenAlreadyCurrent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	guard, err := Load(path, "/home/user")
	require.NoError(t, err)

	entry, err := guard.Mutate().Register(projectindex.RootUUID, "app", "/home/user/app")
	require.NoError(t, err)
	require.NoError(t, guard.TouchLastUsed(entry.UUID))
	require.NoError(t, guard.Persist())

	reloaded, err := Load(path, "/home/user")
	require.NoError(t, err)
	require.NoError(t, reloaded.TouchLastUsed(entry.UUID))
	assert.False(t, reloaded.IsDirty())
}

func TestUpdateCacheMetadata_SkipsWhenUnchanged(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index")
	guard, err := Load(path, "/home/user")
	require.NoError(t, err)

	entry, err := guard.Mutate().Register(projectindex.RootUUID, "app", "/home/user/app")
	require.NoError(t, err)
	require.NoError(t, guard.UpdateCacheMetadata(entry.UUID, "hash1", "/cache/1"))
	require.NoError(t, guard.Persist())

	reloaded, err := Load(path, "/home/user")
	require.NoError(t, err)
	require.NoError(t, reloaded.UpdateCacheMetadata(entry.UUID, "hash1", "/cache/1"))
	assert.False(t, reloaded.IsDirty())
}
