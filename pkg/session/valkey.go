// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyStore keeps sessions in Valkey (or Redis) with native key expiry.
type ValkeyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewValkeyStore connects to the Valkey server given by a redis:// URL and
// verifies the connection with a ping.
func NewValkeyStore(url string, ttl time.Duration) (*ValkeyStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse valkey url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("valkey connection failed: %w", err)
	}
	return &ValkeyStore{client: client, ttl: ttl}, nil
}

// NewValkeyStoreWithClient wraps an existing client. Used in tests.
func NewValkeyStoreWithClient(client *redis.Client, ttl time.Duration) *ValkeyStore {
	return &ValkeyStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return fmt.Sprintf("%s:%s", KeyPrefix, id)
}

func (v *ValkeyStore) GetOrCreate(ctx context.Context, id, originURL string) (Session, error) {
	key := sessionKey(id)
	raw, err := v.client.Get(ctx, key).Bytes()
	if err == nil {
		var s Session
		if err := json.Unmarshal(raw, &s); err == nil {
			return s, nil
		}
		// Unreadable value, recreate below.
	} else if err != redis.Nil {
		return Session{}, fmt.Errorf("valkey get: %w", err)
	}

	now := nowEpoch()
	s := Session{
		SessionID:    id,
		OriginURL:    originURL,
		CreatedAt:    now,
		LastAccessed: now,
	}
	data, err := json.Marshal(s)
	if err != nil {
		return Session{}, fmt.Errorf("marshal session: %w", err)
	}
	if err := v.client.Set(ctx, key, data, v.ttl).Err(); err != nil {
		return Session{}, fmt.Errorf("valkey set: %w", err)
	}
	return s, nil
}

func (v *ValkeyStore) Get(ctx context.Context, id string) (Session, bool, error) {
	raw, err := v.client.Get(ctx, sessionKey(id)).Bytes()
	if err == redis.Nil {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, fmt.Errorf("valkey get: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false, fmt.Errorf("unmarshal session: %w", err)
	}
	return s, true, nil
}

// Touch refreshes the key TTL with a single EXPIRE command. The stored
// last_accessed field is not rewritten.
func (v *ValkeyStore) Touch(ctx context.Context, id string) error {
	if err := v.client.Expire(ctx, sessionKey(id), v.ttl).Err(); err != nil {
		return fmt.Errorf("valkey expire: %w", err)
	}
	return nil
}

func (v *ValkeyStore) Remove(ctx context.Context, id string) (Session, bool, error) {
	s, ok, err := v.Get(ctx, id)
	if err != nil || !ok {
		return Session{}, false, err
	}
	if err := v.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return Session{}, false, fmt.Errorf("valkey del: %w", err)
	}
	return s, true, nil
}

// CleanupExpired is a no-op since Valkey expires keys natively.
func (v *ValkeyStore) CleanupExpired(ctx context.Context) error {
	return nil
}

// Count iterates the session keyspace with cursor-based SCAN in bounded
// batches. Never uses KEYS, which would block the server.
func (v *ValkeyStore) Count(ctx context.Context) (int, error) {
	var cursor uint64
	count := 0
	match := KeyPrefix + ":*"
	for {
		keys, next, err := v.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return 0, fmt.Errorf("valkey scan: %w", err)
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			return count, nil
		}
	}
}

// List walks the session keyspace with SCAN and fetches each value. Keys
// that expire between the scan and the fetch are skipped.
func (v *ValkeyStore) List(ctx context.Context) ([]Session, error) {
	var cursor uint64
	var out []Session
	match := KeyPrefix + ":*"
	for {
		keys, next, err := v.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("valkey scan: %w", err)
		}
		for _, key := range keys {
			raw, err := v.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("valkey get: %w", err)
			}
			var s Session
			if err := json.Unmarshal(raw, &s); err != nil {
				continue
			}
			out = append(out, s)
		}
		cursor = next
		if cursor == 0 {
			return out, nil
		}
	}
}

func (v *ValkeyStore) Close() error {
	return v.client.Close()
}
