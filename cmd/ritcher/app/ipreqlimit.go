// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// clientWindow is one fixed rate window for a client key.
type clientWindow struct {
	count       int
	windowStart time.Time
}

// IPRequestLimiter limits the number of requests per client per interval
// using fixed windows that reset lazily on access.
type IPRequestLimiter struct {
	maxNrRequests int
	interval      time.Duration
	windows       map[string]clientWindow
	mux           sync.Mutex
}

// NewIPRequestLimiter returns a limiter allowing maxNrRequests per interval.
func NewIPRequestLimiter(maxNrRequests int, interval time.Duration) *IPRequestLimiter {
	return &IPRequestLimiter{
		maxNrRequests: maxNrRequests,
		interval:      interval,
		windows:       make(map[string]clientWindow),
	}
}

// NewLimiterMiddleware returns a middleware enforcing the limiter.
//
// An HTTP response 429 Too Many Requests is generated if there are too many
// requests. hdrName carries the current count and the maximum.
func NewLimiterMiddleware(hdrName string, ltr *IPRequestLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			count, ok := ltr.Inc(time.Now(), clientKey(r))
			if hdrName != "" {
				w.Header().Set(hdrName, fmt.Sprintf("%d (max %d)", count, ltr.maxNrRequests))
			}
			if !ok {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}

// Inc counts a request for key and reports whether it is within the limit.
// The key's window restarts when the interval has fully elapsed.
func (il *IPRequestLimiter) Inc(now time.Time, key string) (int, bool) {
	il.mux.Lock()
	defer il.mux.Unlock()
	w := il.windows[key]
	if now.Sub(w.windowStart) >= il.interval {
		w = clientWindow{windowStart: now}
	}
	w.count++
	il.windows[key] = w
	return w.count, w.count <= il.maxNrRequests
}

// Cleanup drops windows that have fully elapsed.
func (il *IPRequestLimiter) Cleanup(now time.Time) {
	il.mux.Lock()
	defer il.mux.Unlock()
	for key, w := range il.windows {
		if now.Sub(w.windowStart) >= il.interval {
			delete(il.windows, key)
		}
	}
}

// clientKey identifies the client by the first X-Forwarded-For hop, falling
// back to the remote address and finally "unknown".
func clientKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if key := strings.TrimSpace(first); key != "" {
			return key
		}
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && ip != "" {
		return ip
	}
	return "unknown"
}
