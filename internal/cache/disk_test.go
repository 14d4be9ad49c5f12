package cache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}

	value := bytes.Repeat([]byte("pcm"), 1000)
	key := Key("espeak", "hello", "en", 1, 1)
	if err := dc.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, ok := dc.Get(key)
	if !ok || !bytes.Equal(got, value) {
		t.Fatal("Expected cached value back")
	}

	// Reopening finds the existing entry.
	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reopened.Get(key); !ok {
		t.Error("Expected entry to persist across instances")
	}
	if s := reopened.Stats(); s.Items != 1 || s.Size == 0 {
		t.Errorf("Unexpected stats %+v", s)
	}
}

func TestDiskCacheCorruptEntry(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatal(err)
	}
	key := "abcdef"
	path := filepath.Join(dir, "ab", key+diskExt)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not zstd"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := dc.Get(key); ok {
		t.Error("Expected corrupt entry to miss")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected corrupt entry to be removed")
	}
}

func TestDiskCacheEvictsOldest(t *testing.T) {
	dir := t.TempDir()
	dc, err := NewDiskCache(dir, 1<<20, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Random-looking data so compression cannot shrink it much.
	value := make([]byte, 4096)
	for i := range value {
		value[i] = byte(i*7919 + i/13)
	}
	if err := dc.Put("old-key", value); err != nil {
		t.Fatal(err)
	}
	oldPath := dc.path("old-key")
	past := time.Now().Add(-time.Hour)
	_ = os.Chtimes(oldPath, past, past)

	info, err := os.Stat(oldPath)
	if err != nil {
		t.Fatal(err)
	}
	// Shrink capacity so only one entry fits.
	dc.capacity = info.Size() + info.Size()/2

	if err := dc.Put("new-key", value); err != nil {
		t.Fatal(err)
	}
	if _, ok := dc.Get("old-key"); ok {
		t.Error("Expected the oldest entry to be evicted")
	}
	if _, ok := dc.Get("new-key"); !ok {
		t.Error("Expected the new entry to be present")
	}
}

func TestCacheTiers(t *testing.T) {
	c, err := New(Config{MemoryCapacity: 4, Dir: t.TempDir(), DiskCapacity: 1 << 20, Level: 3})
	if err != nil {
		t.Fatal(err)
	}

	// Too large for memory, still stored on disk.
	if err := c.Put("k", []byte("larger than four")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if v, ok := c.Get("k"); !ok || string(v) != "larger than four" {
		t.Error("Expected disk tier to serve the value")
	}
	c.LogStats()
}

func TestCacheMemoryOnly(t *testing.T) {
	c, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss")
	}
	_ = c.Put("k", []byte("v"))
	if _, ok := c.Get("k"); !ok {
		t.Error("Expected hit")
	}
}

func TestKey(t *testing.T) {
	a := Key("espeak", "hello", "en", 1, 1)
	if a != Key("espeak", "hello", "en", 1, 1) {
		t.Error("Expected keys to be stable")
	}
	for _, other := range []string{
		Key("piper", "hello", "en", 1, 1),
		Key("espeak", "hello!", "en", 1, 1),
		Key("espeak", "hello", "fr", 1, 1),
		Key("espeak", "hello", "en", 1.5, 1),
		Key("espeak", "hello", "en", 1, 0.5),
	} {
		if other == a {
			t.Error("Expected every input to change the key")
		}
	}
}
