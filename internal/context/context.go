// Package context implements the context-resolution grammar consumed by the
// core from the (out-of-scope) dispatcher (spec.md §6): it turns a
// `/`-delimited path like `app/api/build` or `.` or `**` into a project
// UUID, walking the global index and, for the CWD-relative tokens, the
// on-disk project_ref.bin identity chain (internal/projectref).
package context

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"axes/internal/axerr"
	"axes/internal/projectindex"
	"axes/internal/projectref"
)

// sessionProjectUUID reports the project UUID of the enclosing interactive
// session, if any, read from AXES_PROJECT_UUID (spec.md §6): its presence
// signals "session mode" and changes how `..` resolves.
func sessionProjectUUID() (uuid.UUID, bool) {
	raw := os.Getenv("AXES_PROJECT_UUID")
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// Resolve walks raw against idx, returning the UUID it names. cwd is the
// directory `.`/`_`/`..` resolve relative to (normally os.Getwd()).
func Resolve(idx *projectindex.GlobalIndex, raw, cwd string) (uuid.UUID, error) {
	parts := splitNonEmpty(raw)
	if len(parts) == 0 {
		return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("empty context"))
	}

	current, err := resolveFirst(idx, parts[0], cwd)
	if err != nil {
		return uuid.Nil, err
	}

	for _, part := range parts[1:] {
		current, err = resolveSegment(idx, current, part)
		if err != nil {
			return uuid.Nil, err
		}
	}
	return current, nil
}

func resolveFirst(idx *projectindex.GlobalIndex, part, cwd string) (uuid.UUID, error) {
	switch {
	case part == ".":
		ref, _, ok := projectref.FindFromPath(cwd, false)
		if !ok {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("no axes project found in current directory or any parent directories"))
		}
		return ref.Self, nil

	case part == "_":
		ref, _, ok := projectref.FindFromPath(cwd, true)
		if !ok {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("no axes project found in current directory"))
		}
		return ref.Self, nil

	case part == "**":
		if !idx.HasLastUsed {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("no projects have been used recently"))
		}
		return idx.LastUsed, nil

	case part == "global":
		return projectindex.RootUUID, nil

	case strings.HasSuffix(part, "!"):
		alias := strings.TrimSuffix(part, "!")
		id, ok := idx.ResolveAlias(alias)
		if !ok {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("alias %q not found", alias))
		}
		return id, nil

	case part == "..":
		var focus uuid.UUID
		if sess, ok := sessionProjectUUID(); ok {
			focus = sess
		} else {
			ref, _, ok := projectref.FindFromPath(cwd, false)
			if !ok {
				return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("no axes project found in current directory or any parent directories"))
			}
			focus = ref.Self
		}
		entry, ok := idx.Projects[focus]
		if !ok {
			return uuid.Nil, axerr.NewDataIntegrityError("project %s not found", focus)
		}
		if !entry.HasParent {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("cannot go further up the hierarchy: already at a root project"))
		}
		return entry.Parent, nil

	default:
		// Bare first segment: resolve as a root-level child name, the same
		// way a later segment resolves a literal child name (spec.md §6).
		return resolveSegment(idx, projectindex.RootUUID, part)
	}
}

// resolveSegment resolves one non-first path segment relative to parent:
// `..` (parent), `*` (parent's last-used child), or a literal child name.
func resolveSegment(idx *projectindex.GlobalIndex, parent uuid.UUID, part string) (uuid.UUID, error) {
	entry, ok := idx.Projects[parent]
	if !ok {
		return uuid.Nil, axerr.NewDataIntegrityError("project %s not found", parent)
	}

	switch part {
	case "..":
		if !entry.HasParent {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("cannot go further up the hierarchy: already at a root project"))
		}
		return entry.Parent, nil

	case "*":
		if !entry.HasLastUsedChild {
			return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("parent project %q has not used any children recently", entry.Name))
		}
		return entry.LastUsedChild, nil

	default:
		children := idx.Children(parent)
		for _, childID := range children {
			if idx.Projects[childID].Name == part {
				return childID, nil
			}
		}
		names := make([]string, 0, len(children))
		for _, childID := range children {
			names = append(names, idx.Projects[childID].Name)
		}
		msg := fmt.Sprintf("child project %q not found for parent %q", part, entry.Name)
		if suggestion := Suggest(part, names); suggestion != "" {
			msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
		}
		return uuid.Nil, axerr.NewUserError("run", fmt.Errorf("%s", msg))
	}
}

func splitNonEmpty(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, "/") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
