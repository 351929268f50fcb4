// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package ads

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ritcher-io/ritcher/pkg/vast"
)

// DefaultResolutionTTL bounds how long a per-session VAST resolution is
// reused before a fresh ad request is made.
const DefaultResolutionTTL = 5 * time.Minute

type cachedResolution struct {
	creatives  []vast.ResolvedCreative
	resolvedAt time.Time
}

// VASTProvider decisions ads through a VAST endpoint. The resolved creative
// list is cached per session so that every segment of a break maps to the
// same decision. When the ad server returns nothing, slate content is used.
type VASTProvider struct {
	endpoint      string
	resolver      *vast.Resolver
	slate         *StaticProvider
	resolutionTTL time.Duration

	mu    sync.Mutex
	cache map[string]cachedResolution
	// fired records (session, ad name) pairs whose tracking has been handed
	// out, so a player retrying a segment GET does not refire beacons.
	fired map[string]struct{}
}

// NewVASTProvider returns a provider for the given VAST endpoint.
// slateURL may be empty, in which case exhausted resolutions yield no
// segments and the caller passes the break through.
func NewVASTProvider(endpoint, slateURL string, slateSegmentDuration float64) *VASTProvider {
	var slate *StaticProvider
	if slateURL != "" {
		slate = NewStaticProvider(slateURL, slateSegmentDuration)
	}
	return &VASTProvider{
		endpoint:      endpoint,
		resolver:      vast.NewResolver(),
		slate:         slate,
		resolutionTTL: DefaultResolutionTTL,
		cache:         make(map[string]cachedResolution),
		fired:         make(map[string]struct{}),
	}
}

// resolve returns the cached creative list for sessionID, fetching on miss.
func (p *VASTProvider) resolve(sessionID string) []vast.ResolvedCreative {
	p.mu.Lock()
	entry, ok := p.cache[sessionID]
	if ok && time.Since(entry.resolvedAt) < p.resolutionTTL {
		p.mu.Unlock()
		return entry.creatives
	}
	p.mu.Unlock()

	creatives, err := p.resolver.Resolve(context.Background(), p.endpoint, sessionID)
	if err != nil {
		slog.Warn("vast resolution failed", "session", sessionID, "err", err)
		creatives = nil
	}

	p.mu.Lock()
	p.cache[sessionID] = cachedResolution{creatives: creatives, resolvedAt: time.Now()}
	p.mu.Unlock()
	return creatives
}

func (p *VASTProvider) AdSegments(breakDuration float64, sessionID string) []AdSegment {
	creatives := p.resolve(sessionID)
	if len(creatives) == 0 {
		if p.slate != nil {
			return p.slate.AdSegments(breakDuration, sessionID)
		}
		return nil
	}

	// One segment per creative, cycling until the break is covered.
	var segments []AdSegment
	var total float64
	for i := 0; total < breakDuration || i == 0; i++ {
		c := creatives[i%len(creatives)]
		segments = append(segments, AdSegment{
			URI:             c.URI,
			DurationSeconds: c.DurationSeconds,
		})
		if c.DurationSeconds <= 0 {
			break
		}
		total += c.DurationSeconds
	}
	n := len(segments)
	for i := range segments {
		c := creatives[i%len(creatives)]
		segments[i].Tracking = trackingInfo(c, i, n)
	}
	return segments
}

func trackingInfo(c vast.ResolvedCreative, segIdx, total int) *AdTrackingInfo {
	events := make([]TrackingEvent, 0, len(c.TrackingEvents))
	for _, e := range c.TrackingEvents {
		events = append(events, TrackingEvent{Event: e.Event, URL: e.URL})
	}
	return &AdTrackingInfo{
		ImpressionURLs: c.ImpressionURLs,
		TrackingEvents: events,
		ErrorURL:       c.ErrorURL,
		TotalSegments:  total,
		SegmentIndex:   segIdx,
	}
}

func (p *VASTProvider) ResolveSegmentURL(adName, sessionID string) (string, bool) {
	url, _, ok := p.resolveSegment(adName, sessionID)
	return url, ok
}

// ResolveSegmentWithTracking maps the segment index onto the resolved
// creative list and attaches that creative's beacons. Tracking is handed out
// exactly once per (session, ad name); repeated calls return nil tracking.
func (p *VASTProvider) ResolveSegmentWithTracking(adName, sessionID string) (string, *AdTrackingInfo, bool) {
	url, tracking, ok := p.resolveSegment(adName, sessionID)
	if !ok || tracking == nil {
		return url, tracking, ok
	}
	key := sessionID + "/" + adName
	p.mu.Lock()
	_, seen := p.fired[key]
	p.fired[key] = struct{}{}
	p.mu.Unlock()
	if seen {
		return url, nil, true
	}
	return url, tracking, true
}

func (p *VASTProvider) resolveSegment(adName, sessionID string) (string, *AdTrackingInfo, bool) {
	_, segIdx, ok := ParseAdName(adName)
	if !ok {
		return "", nil, false
	}
	creatives := p.resolve(sessionID)
	if len(creatives) == 0 {
		if p.slate != nil {
			url, ok := p.slate.ResolveSegmentURL(adName, sessionID)
			return url, nil, ok
		}
		return "", nil, false
	}
	c := creatives[segIdx%len(creatives)]
	return c.URI, trackingInfo(c, segIdx, len(creatives)), true
}

func (p *VASTProvider) AdCreatives(breakDuration float64, sessionID string) []AdCreative {
	creatives := p.resolve(sessionID)
	if len(creatives) == 0 {
		if p.slate != nil {
			return p.slate.AdCreatives(breakDuration, sessionID)
		}
		return nil
	}
	out := make([]AdCreative, 0, len(creatives))
	for _, c := range creatives {
		out = append(out, AdCreative{URI: c.URI, DurationSeconds: c.DurationSeconds})
	}
	return out
}

// CleanupCache drops resolutions older than the resolution TTL, along with
// the fired-beacon markers of the expired sessions.
func (p *VASTProvider) CleanupCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.cache {
		if time.Since(entry.resolvedAt) >= p.resolutionTTL {
			delete(p.cache, id)
			for key := range p.fired {
				if strings.HasPrefix(key, id+"/") {
					delete(p.fired, key)
				}
			}
		}
	}
}
