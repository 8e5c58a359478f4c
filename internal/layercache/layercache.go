// Package layercache implements the Layer Cache (spec.md §4.3): a disk cache
// of compiled layers keyed by a content hash of the source axes.toml, with a
// cheap mtime/size pre-check and BLAKE3 as the definitive validator.
package layercache

import (
	"bytes"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"

	"github.com/pierrec/lz4/v4"

	"axes/internal/axlog"
	"axes/internal/compiler"
)

// hashSize is the truncated BLAKE3 digest length used as the cache key: the
// first 128 bits (spec.md §4.3), not the full 256-bit digest.
const hashSize = 16

// streamChunk is the read buffer size used while hashing, matching the
// streaming chunk size the concurrency model commits to (spec.md §5).
const streamChunk = 8 * 1024

// Manifest is the small sidecar persisted alongside the compressed layer so
// the fast-path check never needs to touch the (possibly large) cache blob.
type Manifest struct {
	SourceSize  int64
	SourceMtime int64
	ContentHash string
}

func init() {
	gob.Register(compiler.CompiledLayer{})
}

// HashFile computes the truncated, hex-encoded BLAKE3 content hash of path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(hashSize, nil)
	buf := make([]byte, streamChunk)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cache stores compiled layers on disk under a per-project cache directory.
type Cache struct {
	dir string
}

func New(dir string) *Cache {
	return &Cache{dir: dir}
}

func (c *Cache) manifestPath() string { return filepath.Join(c.dir, "layer.manifest.gob") }
func (c *Cache) blobPath() string     { return filepath.Join(c.dir, "layer.bin.lz4") }

// Load attempts to serve a cached CompiledLayer for sourcePath. ok is false
// on any miss (no entry, stale fast-path, hash mismatch, or corruption) —
// corruption is logged, never returned as an error, per spec.md §4.3.
func (c *Cache) Load(sourcePath string) (layer *compiler.CompiledLayer, hash string, ok bool) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, "", false
	}

	manifest, err := c.readManifest()
	if err != nil {
		return nil, "", false
	}

	if manifest.SourceSize == info.Size() && manifest.SourceMtime == info.ModTime().UnixNano() {
		// Fast path looks consistent; still recompute the hash to be certain
		// (spec.md §4.3: the fast path is a pre-check, the hash is
		// definitive).
		hash, err := HashFile(sourcePath)
		if err == nil && hash == manifest.ContentHash {
			if l, err := c.readBlob(); err == nil {
				return l, hash, true
			}
			axlog.Tagged("layercache", "corrupt cache blob at %s, discarding", c.blobPath())
		}
		return nil, hash, false
	}

	hash, err = HashFile(sourcePath)
	if err != nil {
		return nil, "", false
	}
	if hash != manifest.ContentHash {
		return nil, hash, false
	}
	l, err := c.readBlob()
	if err != nil {
		axlog.Tagged("layercache", "corrupt cache blob at %s, discarding", c.blobPath())
		return nil, hash, false
	}
	return l, hash, true
}

// Store atomically persists layer, keyed by the given content hash and the
// source file's current size/mtime.
func (c *Cache) Store(sourcePath, hash string, layer *compiler.CompiledLayer) error {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}

	var rawBuf bytes.Buffer
	if err := gob.NewEncoder(&rawBuf).Encode(layer); err != nil {
		return fmt.Errorf("encoding compiled layer: %w", err)
	}

	var compressed bytes.Buffer
	if err := writeLZ4(&compressed, rawBuf.Bytes()); err != nil {
		return fmt.Errorf("compressing compiled layer: %w", err)
	}

	if err := atomicWrite(c.blobPath(), compressed.Bytes()); err != nil {
		return err
	}

	var manifestBuf bytes.Buffer
	manifest := Manifest{
		SourceSize:  info.Size(),
		SourceMtime: info.ModTime().UnixNano(),
		ContentHash: hash,
	}
	if err := gob.NewEncoder(&manifestBuf).Encode(manifest); err != nil {
		return err
	}
	return atomicWrite(c.manifestPath(), manifestBuf.Bytes())
}

func (c *Cache) readManifest() (Manifest, error) {
	data, err := os.ReadFile(c.manifestPath())
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&m); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

func (c *Cache) readBlob() (*compiler.CompiledLayer, error) {
	compressed, err := os.ReadFile(c.blobPath())
	if err != nil {
		return nil, err
	}
	raw, err := readLZ4(compressed)
	if err != nil {
		return nil, err
	}
	var layer compiler.CompiledLayer
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&layer); err != nil {
		return nil, err
	}
	return &layer, nil
}

// writeLZ4 writes a 8-byte little-endian uncompressed-size prefix followed
// by the LZ4-compressed payload.
func writeLZ4(w io.Writer, raw []byte) error {
	sizePrefix := make([]byte, 8)
	for i := 0; i < 8; i++ {
		sizePrefix[i] = byte(len(raw) >> (8 * i))
	}
	if _, err := w.Write(sizePrefix); err != nil {
		return err
	}
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(raw); err != nil {
		return err
	}
	return zw.Close()
}

func readLZ4(compressed []byte) ([]byte, error) {
	if len(compressed) < 8 {
		return nil, fmt.Errorf("cache blob truncated: missing size prefix")
	}
	var size int
	for i := 0; i < 8; i++ {
		size |= int(compressed[i]) << (8 * i)
	}
	zr := lz4.NewReader(bytes.NewReader(compressed[8:]))
	raw := make([]byte, size)
	if _, err := io.ReadFull(zr, raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// atomicWrite writes data to a temp file in the same directory as path then
// renames it into place, so concurrent processes compiling the same layer
// converge safely (spec.md §5).
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
