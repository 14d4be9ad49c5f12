package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zstd"
)

const diskExt = ".zst"

// DiskCache stores zstd-compressed entries as files under a directory and
// evicts the least recently used files once the directory exceeds its
// capacity.
type DiskCache struct {
	dir      string
	capacity int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	mu    sync.Mutex
	size  int64
	stats Stats
}

// NewDiskCache opens or creates a disk cache in dir.
func NewDiskCache(dir string, capacity int64, level int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		encoder:  encoder,
		decoder:  decoder,
	}
	for _, f := range dc.files() {
		dc.size += f.size
	}
	return dc, nil
}

// Get reads and decompresses the entry for key.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	path := dc.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		dc.stats.Misses++
		return nil, false
	}

	value, err := dc.decoder.DecodeAll(data, nil)
	if err != nil {
		log.Warn("dropping corrupt cache entry", "key", key, "err", err)
		dc.removeFile(path, int64(len(data)))
		dc.stats.Misses++
		return nil, false
	}

	now := time.Now()
	_ = os.Chtimes(path, now, now)
	dc.stats.Hits++
	return value, true
}

// Put compresses value and writes it under key.
func (dc *DiskCache) Put(key string, value []byte) error {
	compressed := dc.encoder.EncodeAll(value, nil)
	n := int64(len(compressed))
	if n > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	path := dc.path(key)
	if info, err := os.Stat(path); err == nil {
		dc.removeFile(path, info.Size())
	}
	if dc.size+n > dc.capacity {
		dc.evict(dc.size + n - dc.capacity)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	dc.size += n
	return nil
}

// Stats returns usage counters. Size is the compressed size on disk.
func (dc *DiskCache) Stats() Stats {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	s := dc.stats
	s.Size = dc.size
	s.Items = len(dc.files())
	return s
}

// Clear removes every entry.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	var errs []error
	for _, f := range dc.files() {
		if err := os.Remove(f.path); err != nil {
			errs = append(errs, err)
		}
	}
	dc.size = 0
	return errors.Join(errs...)
}

func (dc *DiskCache) path(key string) string {
	prefix := key
	if len(prefix) > 2 {
		prefix = prefix[:2]
	}
	return filepath.Join(dc.dir, prefix, key+diskExt)
}

type diskFile struct {
	path    string
	size    int64
	modTime time.Time
}

func (dc *DiskCache) files() []diskFile {
	var out []diskFile
	_ = filepath.WalkDir(dc.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != diskExt {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		out = append(out, diskFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	return out
}

// evict removes least recently used files until at least need bytes are
// freed.
func (dc *DiskCache) evict(need int64) {
	files := dc.files()
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})
	var freed int64
	for _, f := range files {
		if freed >= need {
			return
		}
		dc.removeFile(f.path, f.size)
		dc.stats.Evictions++
		freed += f.size
	}
}

func (dc *DiskCache) removeFile(path string, size int64) {
	if err := os.Remove(path); err == nil {
		dc.size -= size
	}
}
