// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClientRetriesOnServerError(t *testing.T) {
	var calls int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("#EXTM3U"))
	}))
	defer ts.Close()

	c := NewClient(WithMaxAttempts(2), WithBackoff(time.Millisecond))
	body, err := c.GetBody(context.Background(), ts.URL)
	require.NoError(t, err)
	require.Equal(t, "#EXTM3U", string(body))
	require.Equal(t, int64(2), atomic.LoadInt64(&calls))
}

func TestClientSurfacesLastError(t *testing.T) {
	var calls int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c := NewClient(WithMaxAttempts(3), WithBackoff(time.Millisecond))
	_, err := c.GetBody(context.Background(), ts.URL)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
	require.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestClientZeroAttemptsCoercedToOne(t *testing.T) {
	var calls int64
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	c := NewClient(WithMaxAttempts(0), WithBackoff(time.Millisecond))
	_, err := c.GetBody(context.Background(), ts.URL)
	require.Error(t, err)
	require.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestClientContextCancelDuringBackoff(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c := NewClient(WithMaxAttempts(5), WithBackoff(time.Second))
	start := time.Now()
	_, err := c.GetBody(ctx, ts.URL)
	require.Error(t, err)
	require.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestManifestCache(t *testing.T) {
	c := NewManifestCache(50 * time.Millisecond)
	_, ok := c.Get("http://origin/playlist.m3u8")
	require.False(t, ok)

	c.Insert("http://origin/playlist.m3u8", "#EXTM3U\n")
	body, ok := c.Get("http://origin/playlist.m3u8")
	require.True(t, ok)
	require.Equal(t, "#EXTM3U\n", body)

	// Overwrite
	c.Insert("http://origin/playlist.m3u8", "#EXTM3U\n#EXT-X-VERSION:3\n")
	body, ok = c.Get("http://origin/playlist.m3u8")
	require.True(t, ok)
	require.Contains(t, body, "VERSION")

	time.Sleep(60 * time.Millisecond)
	_, ok = c.Get("http://origin/playlist.m3u8")
	require.False(t, ok)
	require.Equal(t, 0, c.Len(), "stale entry evicted on read")
}

func TestManifestCacheFakeClock(t *testing.T) {
	c := NewManifestCache(2 * time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }

	c.Insert("u", "b")
	now = now.Add(1999 * time.Millisecond)
	_, ok := c.Get("u")
	require.True(t, ok)

	now = now.Add(time.Millisecond)
	_, ok = c.Get("u")
	require.False(t, ok)
}
