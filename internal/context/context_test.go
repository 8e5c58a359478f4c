package context

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axes/internal/projectindex"
	"axes/internal/projectref"
)

func setupProject(t *testing.T, idx *projectindex.GlobalIndex, parent, name string) (string, *projectindex.IndexEntry) {
	t.Helper()
	dir := t.TempDir()
	parentID := projectindex.RootUUID
	if parent != "" {
		id, ok := idx.ResolveAlias(parent)
		require.True(t, ok)
		parentID = id
	}
	entry, err := idx.Register(parentID, name, dir)
	require.NoError(t, err)
	require.NoError(t, idx.SetAlias(name, entry.UUID))
	require.NoError(t, projectref.Write(dir, projectref.Ref{Self: entry.UUID, Parent: parentID, HasParent: true, Name: name}))
	return dir, entry
}

func TestResolve_DotUsesCWDProjectRef(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	dir, entry := setupProject(t, idx, "", "app")

	id, err := Resolve(idx, ".", dir)
	require.NoError(t, err)
	assert.Equal(t, entry.UUID, id)
}

func TestResolve_UnderscoreRequiresExactCWD(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	dir, _ := setupProject(t, idx, "", "app")
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.MkdirAll(sub, 0755))

	_, err := Resolve(idx, "_", sub)
	assert.Error(t, err)
}

func TestResolve_GlobalToken(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	id, err := Resolve(idx, "global", "/anywhere")
	require.NoError(t, err)
	assert.Equal(t, projectindex.RootUUID, id)
}

func TestResolve_AliasBangToken(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	_, entry := setupProject(t, idx, "", "app")

	id, err := Resolve(idx, "app!", "/anywhere")
	require.NoError(t, err)
	assert.Equal(t, entry.UUID, id)
}

func TestResolve_NestedPathSegments(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	setupProject(t, idx, "", "app")
	_, api := setupProject(t, idx, "app", "api")

	id, err := Resolve(idx, "app/api", "/anywhere")
	require.NoError(t, err)
	assert.Equal(t, api.UUID, id)
}

func TestResolve_UnknownChildSuggestsClosestMatch(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	setupProject(t, idx, "", "app")

	_, err := Resolve(idx, "apq", "/anywhere")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did you mean")
}

func TestResolve_DoubleStarNeedsLastUsed(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	_, err := Resolve(idx, "**", "/anywhere")
	assert.Error(t, err)

	setupProject(t, idx, "", "app")
	entryID, ok := idx.ResolveAlias("app")
	require.True(t, ok)
	require.NoError(t, idx.TouchLastUsed(entryID))

	id, err := Resolve(idx, "**", "/anywhere")
	require.NoError(t, err)
	assert.Equal(t, entryID, id)
}

func TestResolve_DotDotGoesToParent(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	setupProject(t, idx, "", "app")
	dir, _ := setupProject(t, idx, "app", "api")

	id, err := Resolve(idx, "./..", dir)
	require.NoError(t, err)
	appID, ok := idx.ResolveAlias("app")
	require.True(t, ok)
	assert.Equal(t, appID, id)
}

func TestResolve_StarPicksLastUsedChild(t *testing.T) {
	idx := projectindex.NewEmpty("/root")
	setupProject(t, idx, "", "app")
	_, api := setupProject(t, idx, "app", "api")
	require.NoError(t, idx.TouchLastUsed(api.UUID))

	id, err := Resolve(idx, "app/*", "/anywhere")
	require.NoError(t, err)
	assert.Equal(t, api.UUID, id)
}
