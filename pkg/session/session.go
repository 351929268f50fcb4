// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package session tracks stitching sessions keyed by an opaque session ID.
// Two backends share one interface: an in-memory map and a Valkey/Redis
// store. The backend is chosen at startup and never switched.
package session

import (
	"context"
	"time"
)

// KeyPrefix namespaces all session keys in the remote KV.
const KeyPrefix = "ritcher:session"

// Session is one viewer session. OriginURL is captured on creation and
// never overwritten. LastAccessed is diagnostic only for the Valkey backend
// where liveness is the key TTL itself.
type Session struct {
	SessionID    string `json:"session_id"`
	OriginURL    string `json:"origin_url"`
	CreatedAt    int64  `json:"created_at"`
	LastAccessed int64  `json:"last_accessed"`
}

// Store is the common session store contract.
type Store interface {
	// GetOrCreate returns the existing session for id or creates one with
	// originURL. An existing session keeps its original origin URL.
	GetOrCreate(ctx context.Context, id, originURL string) (Session, error)
	// Get returns the session for id if present.
	Get(ctx context.Context, id string) (Session, bool, error)
	// Touch extends session liveness. O(1) for both backends.
	Touch(ctx context.Context, id string) error
	// Remove deletes the session and returns it if it existed.
	Remove(ctx context.Context, id string) (Session, bool, error)
	// CleanupExpired drops stale sessions. No-op for backends with
	// native key expiry.
	CleanupExpired(ctx context.Context) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
	// List returns all live sessions. Intended for the ops API, not the
	// request path.
	List(ctx context.Context) ([]Session, error)
	// Close releases backend resources.
	Close() error
}

func nowEpoch() int64 {
	return time.Now().Unix()
}
