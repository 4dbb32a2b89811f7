// Package cache - Memoized detection results keyed by input identity.
package cache

import (
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/nvr-ai/go-speedsign/images"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gocv.io/x/gocv"
)

// Key identifies an input. Two inputs with the same Key are the same image.
type Key string

// PathKey keys an image file by its absolute, cleaned path.
func PathKey(path string) Key {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return Key("path:" + filepath.Clean(path))
}

// ContentKey keys an in-memory image by its pixel checksum.
func ContentKey(mat gocv.Mat) Key {
	return Key("md5:" + images.ComputeMatChecksum(mat))
}

// Detector produces results on a miss.
type Detector interface {
	Detect(img gocv.Mat, p detector.Params) detector.Result
}

// Options configures a Cache.
type Options struct {
	// MaxEntries bounds the cache with LRU eviction. 0 means unbounded.
	MaxEntries int
	Logger     *zap.Logger
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits         uint64
	Misses       uint64
	Computations uint64
	Entries      int
	Generation   uint64
}

// Cache memoizes detection results for the current detection parameters.
//
// Results handed out are clones the caller owns and must Close. Concurrent
// misses for one key and one Params share a single computation. An entry only
// answers requests made with the Params it was computed with. InvalidateAll
// starts a new generation; a computation begun before it is returned to its
// caller but never stored.
type Cache struct {
	engine Detector
	logger *zap.Logger

	mu      sync.RWMutex
	gen     uint64
	entries store

	group        singleflight.Group
	hits         atomic.Uint64
	misses       atomic.Uint64
	computations atomic.Uint64
}

// New creates a Cache that computes misses with engine.
func New(engine Detector, opts Options) (*Cache, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Cache{engine: engine, logger: logger}
	if opts.MaxEntries > 0 {
		s, err := newLRUStore(opts.MaxEntries)
		if err != nil {
			return nil, err
		}
		c.entries = s
	} else {
		c.entries = mapStore{}
	}
	return c, nil
}

// GetOrCompute returns the result for key, computing it from img on a miss.
//
// Arguments:
//   - key: The identity of img.
//   - img: The image, only read on a miss.
//   - p: The thresholds used on a miss.
//
// Returns:
//   - detector.Result: A clone owned by the caller.
//   - bool: True when the result was already cached.
func (c *Cache) GetOrCompute(key Key, img gocv.Mat, p detector.Params) (detector.Result, bool) {
	if res, ok := c.lookup(key, p); ok {
		c.hits.Add(1)
		return res, true
	}
	c.misses.Add(1)

	c.mu.RLock()
	gen := c.gen
	c.mu.RUnlock()

	var (
		own    detector.Result
		leader bool
	)
	flight := fmt.Sprintf("%d/%g/%g/%s", gen, p.Confidence, p.IoU, key)
	_, _, _ = c.group.Do(flight, func() (interface{}, error) {
		leader = true
		// A previous flight may have stored the key after our lookup.
		if res, ok := c.lookup(key, p); ok {
			own = res
			return nil, nil
		}
		own = c.compute(key, gen, img, p)
		return nil, nil
	})
	if leader {
		return own, false
	}

	// Joined another caller's computation; it stored the result unless the
	// cache was invalidated meanwhile.
	if res, ok := c.lookup(key, p); ok {
		return res, false
	}
	c.mu.RLock()
	gen = c.gen
	c.mu.RUnlock()
	return c.compute(key, gen, img, p), false
}

// compute runs the engine and stores the result if gen is still current.
func (c *Cache) compute(key Key, gen uint64, img gocv.Mat, p detector.Params) detector.Result {
	c.computations.Add(1)
	res := c.engine.Detect(img, p)
	out := res.Clone()

	c.mu.Lock()
	stored := gen == c.gen
	if stored {
		c.entries.add(key, entry{res: res, params: p})
	}
	c.mu.Unlock()

	if !stored {
		res.Close()
		c.logger.Sugar().Debugw("discarding result computed before invalidation", "key", key)
	}
	return out
}

// lookup returns a clone of the entry for key if it was computed with p.
func (c *Cache) lookup(key Key, p detector.Params) (detector.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries.get(key)
	if !ok || e.params != p {
		return detector.Result{}, false
	}
	return e.res.Clone(), true
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	n := c.entries.len()
	c.entries.purge()
	c.gen++
	gen := c.gen
	c.mu.Unlock()

	c.logger.Sugar().Debugw("cache invalidated", "dropped", n, "generation", gen)
}

// Len returns the number of stored results.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries.len()
}

// Stats returns the current counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Computations: c.computations.Load(),
		Entries:      c.entries.len(),
		Generation:   c.gen,
	}
}

// Close releases every stored result.
func (c *Cache) Close() error {
	c.InvalidateAll()
	return nil
}
