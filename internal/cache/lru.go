package cache

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a bounded store for long-lived processes that run many sessions.
// Size it at least to the session's combination count (see query.Count) if
// the at-most-one-fetch-per-combination property must hold within a session.
type LRU struct {
	c *lru.Cache[string, []byte]
}

// NewLRU returns a store bounded to size entries.
func NewLRU(size int) (*LRU, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &LRU{c: c}, nil
}

func (s *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	return v, ok, nil
}

func (s *LRU) Set(_ context.Context, key string, val []byte) error {
	s.c.Add(key, val)
	return nil
}

func (s *LRU) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.c.Remove(k)
	}
	return nil
}
