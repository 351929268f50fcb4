// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRequestLimiterWindows(t *testing.T) {
	ltr := NewIPRequestLimiter(2, time.Minute)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	count, ok := ltr.Inc(start, "1.2.3.4")
	assert.Equal(t, 1, count)
	assert.True(t, ok)
	count, ok = ltr.Inc(start.Add(time.Second), "1.2.3.4")
	assert.Equal(t, 2, count)
	assert.True(t, ok)
	count, ok = ltr.Inc(start.Add(2*time.Second), "1.2.3.4")
	assert.Equal(t, 3, count)
	assert.False(t, ok)

	// Another client keeps its own window.
	_, ok = ltr.Inc(start.Add(3*time.Second), "5.6.7.8")
	assert.True(t, ok)

	// The window resets lazily after the interval.
	count, ok = ltr.Inc(start.Add(61*time.Second), "1.2.3.4")
	assert.Equal(t, 1, count)
	assert.True(t, ok)
}

func TestIPRequestLimiterCleanup(t *testing.T) {
	ltr := NewIPRequestLimiter(10, time.Minute)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ltr.Inc(start, "a")
	ltr.Inc(start.Add(30*time.Second), "b")

	ltr.Cleanup(start.Add(70 * time.Second))
	require.Len(t, ltr.windows, 1)
	_, kept := ltr.windows["b"]
	assert.True(t, kept)
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.9:4711"
	assert.Equal(t, "203.0.113.9", clientKey(r))

	r.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
	assert.Equal(t, "198.51.100.7", clientKey(r))

	r.RemoteAddr = "garbage"
	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "unknown", clientKey(r))
}
