package main

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"

	axcontext "axes/internal/context"
	"axes/internal/projectindex"
	"axes/internal/resolvedconfig"
	"axes/internal/stateguard"
)

// targetProject resolves ctxStr (spec.md §6 context-resolution grammar)
// against the guard's current index view, touches last_used, and returns
// the fully inheritance-merged façade for the result (spec.md §4.4).
func targetProject(guard *stateguard.Guard, cacheRoot, ctxStr string) (*resolvedconfig.ResolvedConfig, error) {
	id, err := resolveUUID(guard, ctxStr)
	if err != nil {
		return nil, err
	}
	return resolveConfig(guard, cacheRoot, id)
}

func resolveUUID(guard *stateguard.Guard, ctxStr string) (uuid.UUID, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return uuid.Nil, err
	}
	return axcontext.Resolve(guard.View(), ctxStr, cwd)
}

func resolveConfig(guard *stateguard.Guard, cacheRoot string, id uuid.UUID) (*resolvedconfig.ResolvedConfig, error) {
	loader := resolvedconfig.NewLoader(cacheRoot)
	rc, updates, err := resolvedconfig.Resolve(context.Background(), guard.View(), loader, id)
	if err != nil {
		return nil, err
	}
	for _, u := range updates {
		if err := guard.UpdateCacheMetadata(u.UUID, u.NewHash, u.NewCacheDir); err != nil {
			return nil, err
		}
	}
	if err := guard.TouchLastUsed(id); err != nil {
		return nil, err
	}
	return rc, nil
}

// splitRunTarget splits the `ctx/script` argument the `run` dispatcher
// fallback passes in (spec.md §6): everything up to the last `/` is the
// project context (defaulting to `.`, the nearest enclosing project),
// the final segment is the script name (spec.md §8 scenario S5).
func splitRunTarget(target string) (ctxStr, script string) {
	idx := strings.LastIndex(target, "/")
	if idx < 0 {
		return ".", target
	}
	return target[:idx], target[idx+1:]
}

func resolveEntry(guard *stateguard.Guard, id uuid.UUID) (*projectindex.IndexEntry, bool) {
	entry, ok := guard.View().Projects[id]
	return entry, ok
}
