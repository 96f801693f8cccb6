// Package cache holds the tag-invalidated read model that sits in front of
// the relational store.
package cache

import (
	"context"
	"sync"
	"time"
)

// Store keeps opaque values under string keys. Each value carries tags;
// invalidating a tag drops every value that carries it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error
	Invalidate(ctx context.Context, tags ...string) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// MemoryStore is a process-local Store.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	byTag   map[string]map[string]struct{}
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		byTag:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.removeLocked(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(key)
	s.entries[key] = memoryEntry{
		value:     value,
		expiresAt: s.now().Add(ttl),
		tags:      append([]string(nil), tags...),
	}
	for _, tag := range tags {
		keys, ok := s.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			s.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) Invalidate(_ context.Context, tags ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range tags {
		for key := range s.byTag[tag] {
			s.removeLocked(key)
		}
		delete(s.byTag, tag)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) removeLocked(key string) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	for _, tag := range e.tags {
		if keys, ok := s.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(s.byTag, tag)
			}
		}
	}
}
