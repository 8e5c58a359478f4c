// Package stateguard implements the Journaling State Guard (spec.md §4.8): a
// Pristine/Dirty wrapper around the global index that defers cloning until a
// mutation is actually requested, and persists only when the final state
// differs from what was loaded.
package stateguard

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"reflect"

	"github.com/google/uuid"

	"axes/internal/axlog"
	"axes/internal/projectindex"
)

// Guard owns one process's view of the global index across its lifetime.
type Guard struct {
	path     string
	pristine *projectindex.GlobalIndex
	dirty    *projectindex.GlobalIndex
}

// Load reads the index file at path, or starts from an empty index (with
// only the reserved root project) if the file doesn't exist yet.
func Load(path, rootPath string) (*Guard, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Guard{path: path, pristine: projectindex.NewEmpty(rootPath)}, nil
	}
	if err != nil {
		return nil, err
	}

	var idx projectindex.GlobalIndex
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&idx); err != nil {
		return nil, err
	}
	return &Guard{path: path, pristine: &idx}, nil
}

// View returns a read-only view of the current index: the Dirty copy if a
// mutation has already been requested, otherwise the Pristine snapshot
// directly (no allocation).
func (g *Guard) View() *projectindex.GlobalIndex {
	if g.dirty != nil {
		return g.dirty
	}
	return g.pristine
}

// Mutate returns a mutable view of the index, lazily cloning the Pristine
// snapshot on the first call.
func (g *Guard) Mutate() *projectindex.GlobalIndex {
	if g.dirty == nil {
		g.dirty = g.pristine.Clone()
	}
	return g.dirty
}

// IsDirty reports whether a mutable view has been requested at all. This is
// weaker than "has real changes" — that's decided at Persist time by deep
// comparison.
func (g *Guard) IsDirty() bool {
	return g.dirty != nil
}

// TouchLastUsed is an "intelligent update" helper: it pre-checks whether the
// last-used pointer (and the last-used-child chain) would actually change,
// and only forces the Dirty transition when a real change would occur. This
// keeps read-only commands allocation-free (spec.md §4.8).
func (g *Guard) TouchLastUsed(id uuid.UUID) error {
	if g.View().HasLastUsed && g.View().LastUsed == id && chainAlreadyCurrent(g.View(), id) {
		return nil
	}
	return g.Mutate().TouchLastUsed(id)
}

func chainAlreadyCurrent(idx *projectindex.GlobalIndex, id uuid.UUID) bool {
	child := id
	for {
		entry, ok := idx.Projects[child]
		if !ok || !entry.HasParent {
			return true
		}
		parent := idx.Projects[entry.Parent]
		if !parent.HasLastUsedChild || parent.LastUsedChild != child {
			return false
		}
		child = entry.Parent
	}
}

// UpdateCacheMetadata is an "intelligent update" helper for the Config
// Loader's post-resolution IndexUpdate application (spec.md §4.4): it only
// forces the Dirty transition if the new hash or cache dir actually differs
// from what's recorded.
func (g *Guard) UpdateCacheMetadata(id uuid.UUID, newHash, newCacheDir string) error {
	current, ok := g.View().Projects[id]
	if !ok {
		return nil
	}
	if current.HasConfigHash && current.ConfigHash == newHash &&
		current.HasCacheDir && current.CacheDir == newCacheDir {
		return nil
	}

	mutable := g.Mutate()
	entry := mutable.Projects[id]
	entry.ConfigHash = newHash
	entry.HasConfigHash = true
	entry.CacheDir = newCacheDir
	entry.HasCacheDir = true
	return nil
}

// Persist writes the index to disk if (and only if) a mutation was requested
// and the resulting state is not deep-equal to what was loaded.
//
// Cancellation must never poison this: Persist is always safe to call even
// after an Interrupted error, so partial cache metadata updates survive a
// Ctrl-C (spec.md §4.7, §4.8).
func (g *Guard) Persist() error {
	if g.dirty == nil {
		return nil
	}
	if reflect.DeepEqual(g.pristine, g.dirty) {
		axlog.Tagged("stateguard", "index unchanged, skipping persist")
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(g.dirty); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(g.path), 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(g.path), ".tmp-index-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, g.path)
}
