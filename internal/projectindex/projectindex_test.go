package projectindex

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_SiblingNameCollision(t *testing.T) {
	idx := NewEmpty("/home/user")
	_, err := idx.Register(RootUUID, "app", "/home/user/app")
	require.NoError(t, err)

	_, err = idx.Register(RootUUID, "app", "/home/user/app2")
	require.Error(t, err)
}

func TestLink_RejectsCycle(t *testing.T) {
	idx := NewEmpty("/home/user")
	parent, err := idx.Register(RootUUID, "parent", "/p")
	require.NoError(t, err)
	child, err := idx.Register(parent.UUID, "child", "/p/c")
	require.NoError(t, err)

	err = idx.Link(parent.UUID, child.UUID)
	assert.Error(t, err)
}

func TestLink_RejectsRootReparenting(t *testing.T) {
	idx := NewEmpty("/home/user")
	other, err := idx.Register(RootUUID, "other", "/o")
	require.NoError(t, err)

	err = idx.Link(RootUUID, other.UUID)
	assert.Error(t, err)
}

func TestDelete_ReparentsChildrenToRoot(t *testing.T) {
	idx := NewEmpty("/home/user")
	parent, err := idx.Register(RootUUID, "parent", "/p")
	require.NoError(t, err)
	child, err := idx.Register(parent.UUID, "child", "/p/c")
	require.NoError(t, err)

	require.NoError(t, idx.Delete(parent.UUID))

	_, stillThere := idx.Projects[parent.UUID]
	assert.False(t, stillThere)

	childEntry := idx.Projects[child.UUID]
	assert.Equal(t, RootUUID, childEntry.Parent)
	assert.Equal(t, "child", childEntry.Name)
}

func TestDelete_DisambiguatesCollidingChildName(t *testing.T) {
	idx := NewEmpty("/home/user")
	_, err := idx.Register(RootUUID, "child", "/existing")
	require.NoError(t, err)

	parent, err := idx.Register(RootUUID, "parent", "/p")
	require.NoError(t, err)
	child, err := idx.Register(parent.UUID, "child", "/p/c")
	require.NoError(t, err)

	require.NoError(t, idx.Delete(parent.UUID))

	childEntry := idx.Projects[child.UUID]
	assert.Equal(t, "parent_child", childEntry.Name)
}

func TestUnregister_ClearsAliasesAndLastUsed(t *testing.T) {
	idx := NewEmpty("/home/user")
	entry, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)
	require.NoError(t, idx.SetAlias("a", entry.UUID))
	require.NoError(t, idx.TouchLastUsed(entry.UUID))

	require.NoError(t, idx.Unregister(entry.UUID))

	_, ok := idx.ResolveAlias("a")
	assert.False(t, ok)
	assert.False(t, idx.HasLastUsed)
}

func TestQualifiedName_RootAndNested(t *testing.T) {
	idx := NewEmpty("/home/user")
	app, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)
	api, err := idx.Register(app.UUID, "api", "/app/api")
	require.NoError(t, err)

	name, err := idx.QualifiedName(RootUUID)
	require.NoError(t, err)
	assert.Equal(t, "global", name)

	name, err = idx.QualifiedName(api.UUID)
	require.NoError(t, err)
	assert.Equal(t, "app/api", name)
}

func TestTouchLastUsed_PropagatesUpChain(t *testing.T) {
	idx := NewEmpty("/home/user")
	app, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)
	api, err := idx.Register(app.UUID, "api", "/app/api")
	require.NoError(t, err)

	require.NoError(t, idx.TouchLastUsed(api.UUID))

	assert.True(t, idx.HasLastUsed)
	assert.Equal(t, api.UUID, idx.LastUsed)
	assert.Equal(t, api.UUID, idx.Projects[app.UUID].LastUsedChild)
	assert.Equal(t, app.UUID, idx.Projects[RootUUID].LastUsedChild)
}

func TestValidate_DetectsDanglingParent(t *testing.T) {
	idx := NewEmpty("/home/user")
	entry, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)

	entry.Parent = uuid.New()

	assert.Error(t, idx.Validate())
}

func TestAncestryChain_OrderedRootToLeaf(t *testing.T) {
	idx := NewEmpty("/home/user")
	app, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)
	api, err := idx.Register(app.UUID, "api", "/app/api")
	require.NoError(t, err)

	chain, err := idx.AncestryChain(api.UUID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{RootUUID, app.UUID, api.UUID}, chain)
}

func TestClone_IsIndependent(t *testing.T) {
	idx := NewEmpty("/home/user")
	entry, err := idx.Register(RootUUID, "app", "/app")
	require.NoError(t, err)

	clone := idx.Clone()
	clone.Projects[entry.UUID].Name = "renamed"

	assert.Equal(t, "app", idx.Projects[entry.UUID].Name)
	assert.Equal(t, "renamed", clone.Projects[entry.UUID].Name)
}
