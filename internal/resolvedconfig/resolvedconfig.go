// Package resolvedconfig implements the Config Loader & Inheritance Merge
// (spec.md §4.4): it walks a project's ancestor chain, loads (or compiles)
// each layer concurrently, and exposes a lazy, inheritance-merged façade.
package resolvedconfig

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"axes/internal/axerr"
	"axes/internal/compiler"
	"axes/internal/layercache"
	"axes/internal/projectindex"
	"axes/internal/rawconfig"
)

// sourceFile and defaultCacheDir locate a project's on-disk config relative
// to its registered path, per spec.md §6's `.axes/` layout.
func sourceFile(projectPath string) string {
	return filepath.Join(projectPath, ".axes", "axes.toml")
}

// defaultCacheDir is the fallback location for a project's compiled-layer
// cache when its IndexEntry has no explicit CacheDir recorded: under the OS
// cache dir, keyed by project UUID (spec.md §6 "Cache root ... cache/
// projects/<uuid>/"), not under the project's own directory.
func defaultCacheDir(cacheRoot string, id uuid.UUID) string {
	return filepath.Join(cacheRoot, id.String())
}

// IndexUpdate is what a layer-load task reports back after a cache miss, for
// the caller to apply to the global index once every task in the chain has
// completed (spec.md §4.4: "parallel tasks must not mutate the index
// directly").
type IndexUpdate struct {
	UUID        uuid.UUID
	NewHash     string
	NewCacheDir string
}

type loadResult struct {
	Layer  *compiler.CompiledLayer
	Update *IndexUpdate
}

// Loader loads or compiles layers, deduplicating concurrent requests for the
// same project within one process via singleflight — the in-process
// complement to the cache's cross-process atomic-rename safety (spec.md §5).
type Loader struct {
	// CacheRoot is the OS-cache-dir-rooted directory compiled layers are
	// stored under when a project has no explicit cache_dir (spec.md §6).
	CacheRoot string

	group singleflight.Group
}

func NewLoader(cacheRoot string) *Loader {
	return &Loader{CacheRoot: cacheRoot}
}

// LoadLayer hits the cache or compiles entry's source config.
func (l *Loader) LoadLayer(entry *projectindex.IndexEntry) (*compiler.CompiledLayer, *IndexUpdate, error) {
	v, err, _ := l.group.Do(entry.UUID.String(), func() (interface{}, error) {
		return l.loadOrCompile(entry)
	})
	if err != nil {
		return nil, nil, err
	}
	res := v.(loadResult)
	return res.Layer, res.Update, nil
}

func (l *Loader) loadOrCompile(entry *projectindex.IndexEntry) (loadResult, error) {
	src := sourceFile(entry.Path)
	cacheDir := entry.CacheDir
	if !entry.HasCacheDir || cacheDir == "" {
		cacheDir = defaultCacheDir(l.CacheRoot, entry.UUID)
	}
	cache := layercache.New(cacheDir)

	if layer, _, ok := cache.Load(src); ok {
		return loadResult{Layer: layer}, nil
	}

	raw, err := os.ReadFile(src)
	if err != nil {
		return loadResult{}, axerr.NewIOError(src, err)
	}

	cfg, err := rawconfig.Load(src, raw)
	if err != nil {
		return loadResult{}, axerr.NewConfigError(src, "", err)
	}

	layer, err := compiler.CompileLayer(src, cfg)
	if err != nil {
		return loadResult{}, axerr.NewConfigError(src, "", err)
	}

	hash, err := layercache.HashFile(src)
	if err != nil {
		return loadResult{}, axerr.NewIOError(src, err)
	}
	if err := cache.Store(src, hash, layer); err != nil {
		return loadResult{}, axerr.NewIOError(cacheDir, err)
	}

	update := &IndexUpdate{UUID: entry.UUID, NewHash: hash, NewCacheDir: cacheDir}
	return loadResult{Layer: layer, Update: update}, nil
}

// ResolvedConfig is the façade over one target project's full ancestry.
type ResolvedConfig struct {
	UUID          uuid.UUID
	QualifiedName string
	ProjectRoot   string
	// Hierarchy is ordered root → leaf (target last).
	Hierarchy []uuid.UUID
	layers    map[uuid.UUID]*compiler.CompiledLayer
}

// Resolve builds the ResolvedConfig for target, loading every ancestor layer
// concurrently (spec.md §4.4's "work-stealing thread pool", here an
// errgroup). Returns the façade and the IndexUpdates the caller must apply
// to the index after this call returns — resolution itself never mutates
// the index.
func Resolve(ctx context.Context, idx *projectindex.GlobalIndex, loader *Loader, target uuid.UUID) (*ResolvedConfig, []IndexUpdate, error) {
	chain, err := idx.AncestryChain(target)
	if err != nil {
		return nil, nil, err
	}

	layers := make([]*compiler.CompiledLayer, len(chain))
	updates := make([]*IndexUpdate, len(chain))

	g, _ := errgroup.WithContext(ctx)
	for i, id := range chain {
		i, id := i, id
		entry, ok := idx.Projects[id]
		if !ok {
			return nil, nil, axerr.NewDataIntegrityError("project %s not found while resolving config", id)
		}
		g.Go(func() error {
			layer, update, err := loader.LoadLayer(entry)
			if err != nil {
				return err
			}
			layers[i] = layer
			updates[i] = update
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	layerMap := make(map[uuid.UUID]*compiler.CompiledLayer, len(chain))
	var collected []IndexUpdate
	for i, id := range chain {
		layerMap[id] = layers[i]
		if updates[i] != nil {
			collected = append(collected, *updates[i])
		}
	}

	targetEntry := idx.Projects[target]
	qualifiedName, err := idx.QualifiedName(target)
	if err != nil {
		return nil, nil, err
	}
	rc := &ResolvedConfig{
		UUID:          target,
		QualifiedName: qualifiedName,
		ProjectRoot:   targetEntry.Path,
		Hierarchy:     chain,
		layers:        layerMap,
	}
	return rc, collected, nil
}

// reverseChain returns Hierarchy from leaf to root — the scan order the
// merge rules use (spec.md §4.4: "full-replace" and "last-writer-wins" both
// resolve by scanning leaf to root and taking the first hit).
func (rc *ResolvedConfig) reverseChain() []uuid.UUID {
	n := len(rc.Hierarchy)
	out := make([]uuid.UUID, n)
	for i, id := range rc.Hierarchy {
		out[n-1-i] = id
	}
	return out
}

// Script looks up a compiled script by name, returning the layer it
// originated in for source attribution (spec.md §4.4 "Source tracking").
func (rc *ResolvedConfig) Script(name string) (task *compiler.Task, source uuid.UUID, ok bool) {
	for _, id := range rc.reverseChain() {
		if t, found := rc.layers[id].Scripts[name]; found {
			return &t, id, true
		}
	}
	return nil, uuid.Nil, false
}

// ScriptNames returns every script name defined anywhere in rc's hierarchy,
// sorted, for listing purposes (e.g. `axes info`).
func (rc *ResolvedConfig) ScriptNames() []string {
	seen := map[string]struct{}{}
	for _, id := range rc.Hierarchy {
		for name := range rc.layers[id].Scripts {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Var looks up a compiled var by name.
func (rc *ResolvedConfig) Var(name string) (v *compiler.Var, source uuid.UUID, ok bool) {
	for _, id := range rc.reverseChain() {
		if found, ok := rc.layers[id].Vars[name]; ok {
			return &found, id, true
		}
	}
	return nil, uuid.Nil, false
}

// Env returns the fully merged environment map: each key takes the deepest
// layer's value, and keys a deeper layer leaves unset keep the value an
// ancestor gave them.
func (rc *ResolvedConfig) Env() map[string]string {
	merged := map[string]string{}
	for _, id := range rc.Hierarchy {
		for k, v := range rc.layers[id].Env {
			merged[k] = v
		}
	}
	return merged
}

// OpenWithCommand looks up one `open_with.commands` entry by name.
func (rc *ResolvedConfig) OpenWithCommand(name string) (task *compiler.Task, source uuid.UUID, ok bool) {
	for _, id := range rc.reverseChain() {
		if t, found := rc.layers[id].Options.OpenWithCommands[name]; found {
			return &t, id, true
		}
	}
	return nil, uuid.Nil, false
}

// Prompt, Shell, CacheDir, OpenWithDefault, Description, Version are the
// last-writer-wins scalar options (spec.md §4.4).
func (rc *ResolvedConfig) Prompt() *string   { return rc.firstScalar(func(l *compiler.CompiledLayer) *string { return l.Options.Prompt }) }
func (rc *ResolvedConfig) Shell() *string    { return rc.firstScalar(func(l *compiler.CompiledLayer) *string { return l.Options.Shell }) }
func (rc *ResolvedConfig) CacheDir() *string { return rc.firstScalar(func(l *compiler.CompiledLayer) *string { return l.Options.CacheDir }) }
func (rc *ResolvedConfig) OpenWithDefault() *string {
	return rc.firstScalar(func(l *compiler.CompiledLayer) *string { return l.Options.OpenWithDefault })
}
func (rc *ResolvedConfig) Description() *string {
	return rc.firstScalar(func(l *compiler.CompiledLayer) *string { return l.Description })
}
func (rc *ResolvedConfig) Version() *string {
	return rc.firstScalar(func(l *compiler.CompiledLayer) *string {
		if l.Version == nil {
			return nil
		}
		s := fmt.Sprintf("%d", *l.Version)
		return &s
	})
}

// AtStart and AtExit are last-writer-wins task-valued options.
func (rc *ResolvedConfig) AtStart() (*compiler.Task, uuid.UUID, bool) {
	return rc.firstTask(func(l *compiler.CompiledLayer) *compiler.Task { return l.Options.AtStart })
}
func (rc *ResolvedConfig) AtExit() (*compiler.Task, uuid.UUID, bool) {
	return rc.firstTask(func(l *compiler.CompiledLayer) *compiler.Task { return l.Options.AtExit })
}

func (rc *ResolvedConfig) firstScalar(get func(*compiler.CompiledLayer) *string) *string {
	for _, id := range rc.reverseChain() {
		if v := get(rc.layers[id]); v != nil {
			return v
		}
	}
	return nil
}

func (rc *ResolvedConfig) firstTask(get func(*compiler.CompiledLayer) *compiler.Task) (*compiler.Task, uuid.UUID, bool) {
	for _, id := range rc.reverseChain() {
		if t := get(rc.layers[id]); t != nil {
			return t, id, true
		}
	}
	return nil, uuid.Nil, false
}
