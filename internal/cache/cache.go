package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// ErrItemTooLarge is returned when an item exceeds the cache capacity.
var ErrItemTooLarge = errors.New("item too large for cache")

// Stats holds usage counters.
type Stats struct {
	Size      int64
	Items     int
	Hits      int64
	Misses    int64
	Evictions int64
}

// HitRate returns hits / (hits + misses).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String formats the stats for logs.
func (s Stats) String() string {
	return fmt.Sprintf("%d items, %s, %.0f%% hits", s.Items, humanize.IBytes(uint64(s.Size)), s.HitRate()*100)
}

// Config controls the cache tiers.
type Config struct {
	MemoryCapacity int64
	Dir            string
	DiskCapacity   int64
	Level          int
}

// DefaultConfig returns a cache with a 32 MiB memory tier and no disk tier.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity: 32 << 20,
		DiskCapacity:   256 << 20,
		Level:          3,
	}
}

// Cache checks memory first, then disk. Disk hits are promoted to memory.
type Cache struct {
	memory *MemoryCache
	disk   *DiskCache
}

// New creates a cache. The disk tier is used only if cfg.Dir is set.
func New(cfg Config) (*Cache, error) {
	c := &Cache{memory: NewMemoryCache(cfg.MemoryCapacity)}
	if cfg.Dir != "" {
		disk, err := NewDiskCache(cfg.Dir, cfg.DiskCapacity, cfg.Level)
		if err != nil {
			return nil, err
		}
		c.disk = disk
	}
	return c, nil
}

// Get looks key up in memory, then on disk.
func (c *Cache) Get(key string) ([]byte, bool) {
	if v, ok := c.memory.Get(key); ok {
		return v, true
	}
	if c.disk == nil {
		return nil, false
	}
	v, ok := c.disk.Get(key)
	if ok {
		_ = c.memory.Put(key, v)
	}
	return v, ok
}

// Put stores value in every tier. A value too large for memory may still
// be stored on disk.
func (c *Cache) Put(key string, value []byte) error {
	memErr := c.memory.Put(key, value)
	if c.disk == nil {
		return memErr
	}
	if err := c.disk.Put(key, value); err != nil {
		return err
	}
	if memErr != nil && !errors.Is(memErr, ErrItemTooLarge) {
		return memErr
	}
	return nil
}

// LogStats writes the tier statistics at debug level.
func (c *Cache) LogStats() {
	kv := []interface{}{"memory", c.memory.Stats().String()}
	if c.disk != nil {
		kv = append(kv, "disk", c.disk.Stats().String())
	}
	log.Debug("audio cache", kv...)
}

// Key derives a cache key from everything that affects synthesized audio.
func Key(engine, text, voice string, rate, pitch float64) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%.3f\x00%.3f", engine, voice, text, rate, pitch)
	return hex.EncodeToString(h.Sum(nil))
}
