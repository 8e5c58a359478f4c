// Package projectindex implements the Global Index (spec.md §3): the
// process-wide registry of every project axes knows about, keyed by UUID,
// plus an alias map and a global "last used" pointer.
package projectindex

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"axes/internal/axerr"
)

// RootUUID is the reserved, well-known identity of the distinguished root
// project (spec.md §3 invariant c). It is the zero UUID so a freshly
// zero-valued uuid.UUID never collides with a real project by accident.
var RootUUID = uuid.Nil

// IndexEntry is one registered project.
type IndexEntry struct {
	UUID             uuid.UUID
	Name             string
	Parent           uuid.UUID
	HasParent        bool
	Path             string
	ConfigHash       string
	HasConfigHash    bool
	CacheDir         string
	HasCacheDir      bool
	LastUsedChild    uuid.UUID
	HasLastUsedChild bool
}

// GlobalIndex is the full registry: UUID → entry, alias → UUID, and the
// global last-used pointer.
type GlobalIndex struct {
	Projects    map[uuid.UUID]*IndexEntry
	Aliases     map[string]uuid.UUID
	LastUsed    uuid.UUID
	HasLastUsed bool
}

// NewEmpty returns a GlobalIndex containing only the reserved root project.
func NewEmpty(rootPath string) *GlobalIndex {
	return &GlobalIndex{
		Projects: map[uuid.UUID]*IndexEntry{
			RootUUID: {UUID: RootUUID, Name: "global", Path: rootPath},
		},
		Aliases: map[string]uuid.UUID{},
	}
}

// Clone performs a deep copy, used by the state guard's lazy Pristine→Dirty
// transition (spec.md §4.8).
func (idx *GlobalIndex) Clone() *GlobalIndex {
	clone := &GlobalIndex{
		Projects:    make(map[uuid.UUID]*IndexEntry, len(idx.Projects)),
		Aliases:     make(map[string]uuid.UUID, len(idx.Aliases)),
		LastUsed:    idx.LastUsed,
		HasLastUsed: idx.HasLastUsed,
	}
	for id, entry := range idx.Projects {
		copied := *entry
		clone.Projects[id] = &copied
	}
	for alias, id := range idx.Aliases {
		clone.Aliases[alias] = id
	}
	return clone
}

// Children returns the UUIDs of every project whose parent is id, in no
// particular order.
func (idx *GlobalIndex) Children(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	for childID, entry := range idx.Projects {
		if entry.HasParent && entry.Parent == id {
			out = append(out, childID)
		}
	}
	return out
}

// siblingNameTaken reports whether name is already used by a project under
// parent (spec.md §3 invariant a), optionally excluding one UUID (used when
// renaming in place).
func (idx *GlobalIndex) siblingNameTaken(parent uuid.UUID, name string, exclude uuid.UUID) bool {
	for id, entry := range idx.Projects {
		if id == exclude {
			continue
		}
		if entry.HasParent && entry.Parent == parent && entry.Name == name {
			return true
		}
	}
	return false
}

// wouldCycle reports whether setting child's parent to candidate would
// create a parent cycle (spec.md §3 invariant b).
func (idx *GlobalIndex) wouldCycle(child, candidate uuid.UUID) bool {
	cur := candidate
	for {
		if cur == child {
			return true
		}
		entry, ok := idx.Projects[cur]
		if !ok || !entry.HasParent {
			return false
		}
		cur = entry.Parent
	}
}

// Register adds a new project under parent, enforcing the sibling-uniqueness
// and no-cycle invariants.
func (idx *GlobalIndex) Register(parent uuid.UUID, name, path string) (*IndexEntry, error) {
	if _, ok := idx.Projects[parent]; !ok {
		return nil, axerr.NewDataIntegrityError("parent %s not found in index", parent)
	}
	if idx.siblingNameTaken(parent, name, uuid.Nil) {
		return nil, axerr.NewUserError("register", fmt.Errorf("a project named %q already exists under this parent", name))
	}

	id := uuid.New()
	entry := &IndexEntry{
		UUID:      id,
		Name:      name,
		Parent:    parent,
		HasParent: true,
		Path:      path,
	}
	idx.Projects[id] = entry
	return entry, nil
}

// Rename changes a project's human name in place.
func (idx *GlobalIndex) Rename(id uuid.UUID, newName string) error {
	entry, ok := idx.Projects[id]
	if !ok {
		return axerr.NewDataIntegrityError("project %s not found in index", id)
	}
	if !entry.HasParent {
		return axerr.NewUserError("rename", fmt.Errorf("cannot rename the root project"))
	}
	if idx.siblingNameTaken(entry.Parent, newName, id) {
		return axerr.NewUserError("rename", fmt.Errorf("a project named %q already exists under this parent", newName))
	}
	entry.Name = newName
	return nil
}

// Link changes a project's parent, enforcing the no-cycle invariant.
func (idx *GlobalIndex) Link(id, newParent uuid.UUID) error {
	entry, ok := idx.Projects[id]
	if !ok {
		return axerr.NewDataIntegrityError("project %s not found in index", id)
	}
	if !entry.HasParent {
		return axerr.NewUserError("link", fmt.Errorf("cannot re-parent the root project"))
	}
	if _, ok := idx.Projects[newParent]; !ok {
		return axerr.NewDataIntegrityError("new parent %s not found in index", newParent)
	}
	if idx.wouldCycle(id, newParent) {
		return axerr.NewUserError("link", fmt.Errorf("linking under %s would create a parent cycle", newParent))
	}
	if idx.siblingNameTaken(newParent, entry.Name, id) {
		return axerr.NewUserError("link", fmt.Errorf("a project named %q already exists under the new parent", entry.Name))
	}
	entry.Parent = newParent
	return nil
}

// Unregister removes id from the index without touching the filesystem, and
// without checking for children — Delete is the caller that must decide what
// happens to any children first.
func (idx *GlobalIndex) Unregister(id uuid.UUID) error {
	if id == RootUUID {
		return axerr.NewUserError("unregister", fmt.Errorf("cannot unregister the root project"))
	}
	if _, ok := idx.Projects[id]; !ok {
		return axerr.NewDataIntegrityError("project %s not found in index", id)
	}
	delete(idx.Projects, id)
	for alias, aliasID := range idx.Aliases {
		if aliasID == id {
			delete(idx.Aliases, alias)
		}
	}
	if idx.HasLastUsed && idx.LastUsed == id {
		idx.HasLastUsed = false
	}
	for _, entry := range idx.Projects {
		if entry.HasLastUsedChild && entry.LastUsedChild == id {
			entry.HasLastUsedChild = false
		}
	}
	return nil
}

// Delete removes id from the index and re-parents its children to the root
// project, auto-renaming on sibling-name collision with the
// `<old_parent>_<name>` scheme (spec.md §3, SUPPLEMENTED FEATURES: the
// original's re-parenting-on-delete behavior).
func (idx *GlobalIndex) Delete(id uuid.UUID) error {
	entry, ok := idx.Projects[id]
	if !ok {
		return axerr.NewDataIntegrityError("project %s not found in index", id)
	}
	if !entry.HasParent {
		return axerr.NewUserError("delete", fmt.Errorf("cannot delete the root project"))
	}

	oldParentName := entry.Name
	for _, childID := range idx.Children(id) {
		child := idx.Projects[childID]
		newName := child.Name
		if idx.siblingNameTaken(RootUUID, newName, childID) {
			newName = fmt.Sprintf("%s_%s", oldParentName, child.Name)
		}
		// If even the disambiguated name collides, keep prepending the
		// deleted parent's name until it's unique; pathological trees only.
		for idx.siblingNameTaken(RootUUID, newName, childID) {
			newName = fmt.Sprintf("%s_%s", oldParentName, newName)
		}
		child.Parent = RootUUID
		child.Name = newName
	}

	return idx.Unregister(id)
}

// ResolveAlias looks up an alias, returning the UUID it points to.
func (idx *GlobalIndex) ResolveAlias(alias string) (uuid.UUID, bool) {
	id, ok := idx.Aliases[alias]
	return id, ok
}

// SetAlias points alias at id, validating that id exists (spec.md §3
// invariant: "aliases resolve to existing UUIDs").
func (idx *GlobalIndex) SetAlias(alias string, id uuid.UUID) error {
	if _, ok := idx.Projects[id]; !ok {
		return axerr.NewDataIntegrityError("cannot alias to unknown project %s", id)
	}
	idx.Aliases[alias] = id
	return nil
}

// UnsetAlias removes an alias, a no-op if it doesn't exist.
func (idx *GlobalIndex) UnsetAlias(alias string) {
	delete(idx.Aliases, alias)
}

// Validate checks the two cross-referential invariants that can't be
// enforced at mutation time alone: every non-root entry's parent exists, and
// every alias resolves. Returns the first violation found, naming the orphan
// (spec.md §6 "data integrity" diagnostics).
func (idx *GlobalIndex) Validate() error {
	for id, entry := range idx.Projects {
		if id == RootUUID {
			continue
		}
		if !entry.HasParent {
			return axerr.NewDataIntegrityError("non-root project %s (%s) has no parent", id, entry.Name)
		}
		if _, ok := idx.Projects[entry.Parent]; !ok {
			return axerr.NewDataIntegrityError("project %s (%s) has dangling parent %s", id, entry.Name, entry.Parent)
		}
	}
	for alias, id := range idx.Aliases {
		if _, ok := idx.Projects[id]; !ok {
			return axerr.NewDataIntegrityError("alias %q points to unknown project %s", alias, id)
		}
	}
	return nil
}

// AncestryChain walks parent UUIDs from id up to (and including) the root,
// returning them ordered [root, ..., id] — the shape the Config Loader needs
// (spec.md §4.4).
func (idx *GlobalIndex) AncestryChain(id uuid.UUID) ([]uuid.UUID, error) {
	var reversed []uuid.UUID
	cur := id
	for {
		entry, ok := idx.Projects[cur]
		if !ok {
			return nil, axerr.NewDataIntegrityError("project %s not found while walking ancestry", cur)
		}
		reversed = append(reversed, cur)
		if !entry.HasParent {
			break
		}
		cur = entry.Parent
	}

	chain := make([]uuid.UUID, len(reversed))
	for i, id := range reversed {
		chain[len(reversed)-1-i] = id
	}
	return chain, nil
}

// QualifiedName builds the `/`-delimited hierarchical name of id, walking
// its ancestry (spec.md §3 glossary "qualified name"). The root project's
// name is left out of every descendant's name (it's the implicit empty
// prefix); the root itself is named "global".
func (idx *GlobalIndex) QualifiedName(id uuid.UUID) (string, error) {
	chain, err := idx.AncestryChain(id)
	if err != nil {
		return "", err
	}
	if len(chain) == 1 {
		return "global", nil
	}
	names := make([]string, 0, len(chain)-1)
	for _, segID := range chain[1:] {
		names = append(names, idx.Projects[segID].Name)
	}
	return strings.Join(names, "/"), nil
}

// TouchLastUsed updates the global last_used pointer and, per the original's
// behavior of caching last_used_child up the entire ancestor chain on every
// context resolution (SPEC_FULL.md, original_source/core/index_manager.rs),
// walks from id to the root updating each ancestor's LastUsedChild.
func (idx *GlobalIndex) TouchLastUsed(id uuid.UUID) error {
	idx.LastUsed = id
	idx.HasLastUsed = true

	child := id
	for {
		entry, ok := idx.Projects[child]
		if !ok {
			return axerr.NewDataIntegrityError("project %s not found while updating last_used_child", child)
		}
		if !entry.HasParent {
			return nil
		}
		parent := idx.Projects[entry.Parent]
		parent.LastUsedChild = child
		parent.HasLastUsedChild = true
		child = entry.Parent
	}
}
