// Package cache provides a data cache latency model using Akita cache
// components. The cache tracks tags only; values always live in the
// simulator's word-addressed memory, so enabling the cache changes timing
// and never results.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters. Sizes are in memory words.
type Config struct {
	// Size is the capacity in words
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize is the number of words per cache line
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultConfig returns a small 2-way data cache: 16 lines of 4 words,
// 1-cycle hits and 6-cycle misses.
func DefaultConfig() Config {
	return Config{
		Size:          64,
		Associativity: 2,
		BlockSize:     4,
		HitLatency:    1,
		MissLatency:   6,
	}
}

// Validate checks that the geometry divides evenly into sets.
func (c Config) Validate() error {
	if c.Size <= 0 || c.Associativity <= 0 || c.BlockSize <= 0 {
		return fmt.Errorf("cache size, associativity and block_size must be > 0")
	}
	if c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("cache size %d is not a multiple of associativity*block_size (%d)",
			c.Size, c.Associativity*c.BlockSize)
	}
	if c.HitLatency == 0 || c.MissLatency < c.HitLatency {
		return fmt.Errorf("hit_latency must be > 0 and miss_latency >= hit_latency")
	}
	return nil
}

// NumSets returns the number of sets.
func (c Config) NumSets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid line was replaced.
	Evicted bool
	// EvictedAddr is the first word of the evicted line.
	EvictedAddr int
	// WroteBack is true if the evicted line was dirty.
	WroteBack bool
}

// StoreForwardLatency is the extra latency (in cycles) when a load reads
// the word written by the most recent store.
const StoreForwardLatency uint64 = 1

// Cache is a tag-only data cache.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	stats Statistics

	recentStoreAddr  int
	recentStoreValid bool
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// New creates a new cache with the given configuration. The configuration
// must be valid.
func New(config Config) *Cache {
	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			config.NumSets(),
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// lineAddr returns the tag of the line holding addr. Negative addresses
// map through two's complement, which keeps them distinct.
func (c *Cache) lineAddr(addr int) uint64 {
	a := uint64(addr)
	return (a / uint64(c.config.BlockSize)) * uint64(c.config.BlockSize)
}

// Read performs a cache read of the word at addr.
func (c *Cache) Read(addr int) AccessResult {
	c.stats.Reads++

	block := c.directory.Lookup(0, c.lineAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)

		latency := c.config.HitLatency
		if c.recentStoreValid && c.recentStoreAddr == addr {
			latency += StoreForwardLatency
			c.recentStoreValid = false
		}

		return AccessResult{Hit: true, Latency: latency}
	}

	c.stats.Misses++
	return c.handleMiss(addr, false)
}

// Write performs a cache write of the word at addr. Uses write-allocate:
// on a miss, the line is brought in and marked dirty.
func (c *Cache) Write(addr int) AccessResult {
	c.stats.Writes++

	c.recentStoreAddr = addr
	c.recentStoreValid = true

	block := c.directory.Lookup(0, c.lineAddr(addr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		block.IsDirty = true

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	return c.handleMiss(addr, true)
}

// handleMiss installs the line holding addr, evicting the LRU way.
func (c *Cache) handleMiss(addr int, isWrite bool) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	lineAddr := c.lineAddr(addr)

	victim := c.directory.FindVictim(lineAddr)
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = int(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
			result.WroteBack = true
		}
	}

	victim.Tag = lineAddr
	victim.IsValid = true
	victim.IsDirty = isWrite

	c.directory.Visit(victim)

	return result
}

// Contains reports whether the line holding addr is cached.
func (c *Cache) Contains(addr int) bool {
	block := c.directory.Lookup(0, c.lineAddr(addr))
	return block != nil && block.IsValid
}

// Flush counts a writeback for every dirty line and invalidates all lines.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
	c.recentStoreValid = false
	c.recentStoreAddr = 0
}
