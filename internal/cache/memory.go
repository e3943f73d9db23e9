package cache

import "context"

// Memory is the session-lifetime in-memory store. Entries are only ever
// appended, so with this store a distinct combination is fetched at most once
// per session. Not safe for concurrent use; sessions are single-threaded.
type Memory struct {
	m map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

func (s *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.m[key]
	return v, ok, nil
}

func (s *Memory) Set(_ context.Context, key string, val []byte) error {
	s.m[key] = val
	return nil
}

func (s *Memory) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(s.m, k)
	}
	return nil
}

// Len is the number of stored entries.
func (s *Memory) Len() int { return len(s.m) }
