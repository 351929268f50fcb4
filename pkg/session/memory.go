// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in a mutex-guarded map. A session expires when
// now - lastAccessed >= ttl; expiry is enforced by CleanupExpired and
// checked on read.
type MemoryStore struct {
	ttl      time.Duration
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

// NewMemoryStore returns an in-memory store with the given session TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		sessions: make(map[string]Session),
		now:      time.Now,
	}
}

func (m *MemoryStore) expired(s Session) bool {
	return m.now().Unix()-s.LastAccessed >= int64(m.ttl.Seconds())
}

func (m *MemoryStore) GetOrCreate(ctx context.Context, id, originURL string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok && !m.expired(s) {
		return s, nil
	}
	now := m.now().Unix()
	s := Session{
		SessionID:    id,
		OriginURL:    originURL,
		CreatedAt:    now,
		LastAccessed: now,
	}
	m.sessions[id] = s
	return s, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || m.expired(s) {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (m *MemoryStore) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastAccessed = m.now().Unix()
		m.sessions[id] = s
	}
	return nil
}

func (m *MemoryStore) Remove(ctx context.Context, id string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false, nil
	}
	delete(m.sessions, id)
	return s, true, nil
}

func (m *MemoryStore) CleanupExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if m.expired(s) {
			delete(m.sessions, id)
		}
	}
	return nil
}

func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, s := range m.sessions {
		if !m.expired(s) {
			count++
		}
	}
	return count, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !m.expired(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// StartCleanupLoop runs CleanupExpired periodically until ctx is done.
func (m *MemoryStore) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = m.CleanupExpired(ctx)
			}
		}
	}()
}
