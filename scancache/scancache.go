// Package scancache caches file SHA-1 checksums across scans, keyed by a
// cheap stat-based signature, so unchanged files are not re-read.
package scancache

import (
	"encoding/binary"
	"encoding/json"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/djherbis/times"
)

// Entry pairs a stat signature with the SHA-1 computed when that signature
// was current.
type Entry struct {
	Signature uint64 `json:"signature"`
	Sha1      string `json:"sha1"`
}

// Cache maps absolute file paths to entries. A Cache is an optimization
// only: any miss falls through to hashing.
type Cache struct {
	entries map[string]Entry
}

func New() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Load reads a cache file written by Save. A missing file yields an empty
// cache; a corrupt file is an error.
func Load(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Entry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

func (c *Cache) Save(path string) error {
	data, err := json.Marshal(c.entries)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Signature derives the change-detection key from file size, modification
// time and, where the platform records one, change time.
func Signature(info os.FileInfo) uint64 {
	d := xxhash.New()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(info.Size()))
	d.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(info.ModTime().UnixNano()))
	d.Write(buf[:])

	var ctime int64
	if ts := times.Get(info); ts.HasChangeTime() {
		ctime = ts.ChangeTime().UnixNano()
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(ctime))
	d.Write(buf[:])

	return d.Sum64()
}

// Lookup returns the cached SHA-1 when the stored signature matches.
func (c *Cache) Lookup(path string, signature uint64) (string, bool) {
	e, ok := c.entries[path]
	if !ok || e.Signature != signature {
		return "", false
	}
	return e.Sha1, true
}

func (c *Cache) Store(path string, signature uint64, sha1 string) {
	c.entries[path] = Entry{Signature: signature, Sha1: sha1}
}

// Len reports the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}
