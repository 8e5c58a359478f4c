// Package projectref reads and writes a project's `.axes/project_ref.bin`
// identity file (spec.md §6): the self/parent UUID pair and simple name a
// project carries on disk, independent of the global index, so a directory
// can be recognized as an axes project by walking up from the current
// working directory (spec.md §6 context-resolution grammar, tokens `.`/`_`).
package projectref

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Ref is the identity triple stored at `<project-root>/.axes/project_ref.bin`.
type Ref struct {
	Self      uuid.UUID
	Parent    uuid.UUID
	HasParent bool
	Name      string
}

func dir(projectRoot string) string  { return filepath.Join(projectRoot, ".axes") }
func path(projectRoot string) string { return filepath.Join(dir(projectRoot), "project_ref.bin") }

// Write persists ref under projectRoot/.axes/project_ref.bin.
func Write(projectRoot string, ref Ref) error {
	if err := os.MkdirAll(dir(projectRoot), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(ref); err != nil {
		return err
	}
	return os.WriteFile(path(projectRoot), buf.Bytes(), 0644)
}

// Read loads the identity triple for projectRoot. ok is false if the
// directory isn't an axes project at all (no project_ref.bin present).
func Read(projectRoot string) (ref Ref, ok bool) {
	data, err := os.ReadFile(path(projectRoot))
	if err != nil {
		return Ref{}, false
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&ref); err != nil {
		return Ref{}, false
	}
	return ref, true
}

// FindFromPath walks up from start looking for a directory carrying a
// project_ref.bin, returning the identity and the directory it was found in.
// If strict is false, any ancestor directory qualifies (token `.`); if
// strict is true, only start itself is checked (token `_`).
func FindFromPath(start string, strict bool) (ref Ref, root string, ok bool) {
	dirPath, err := filepath.Abs(start)
	if err != nil {
		return Ref{}, "", false
	}

	if r, found := Read(dirPath); found {
		return r, dirPath, true
	}
	if strict {
		return Ref{}, "", false
	}

	for {
		parent := filepath.Dir(dirPath)
		if parent == dirPath {
			return Ref{}, "", false
		}
		dirPath = parent
		if r, found := Read(dirPath); found {
			return r, dirPath, true
		}
	}
}
