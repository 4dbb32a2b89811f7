package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nvr-ai/go-speedsign/detector"
	"github.com/pkg/errors"
)

// entry is an owned result and the thresholds it was computed with.
type entry struct {
	res    detector.Result
	params detector.Params
}

// store holds owned entries. Callers hold the Cache lock.
type store interface {
	get(key Key) (entry, bool)
	add(key Key, e entry)
	len() int
	// purge closes and drops every result.
	purge()
}

type mapStore map[Key]entry

func (m mapStore) get(key Key) (entry, bool) {
	e, ok := m[key]
	return e, ok
}

func (m mapStore) add(key Key, e entry) {
	if old, ok := m[key]; ok {
		old.res.Close()
	}
	m[key] = e
}

func (m mapStore) len() int { return len(m) }

func (m mapStore) purge() {
	for key, e := range m {
		e.res.Close()
		delete(m, key)
	}
}

type lruStore struct {
	entries *lru.Cache[Key, entry]
}

func newLRUStore(size int) (*lruStore, error) {
	entries, err := lru.NewWithEvict[Key, entry](size, func(_ Key, e entry) {
		e.res.Close()
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating lru")
	}
	return &lruStore{entries: entries}, nil
}

func (s *lruStore) get(key Key) (entry, bool) { return s.entries.Get(key) }

func (s *lruStore) add(key Key, e entry) {
	// Add replaces without invoking the evict callback.
	if old, ok := s.entries.Peek(key); ok {
		s.entries.Add(key, e)
		old.res.Close()
		return
	}
	s.entries.Add(key, e)
}

func (s *lruStore) len() int { return s.entries.Len() }

func (s *lruStore) purge() { s.entries.Purge() }
