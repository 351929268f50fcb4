// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package ads

import (
	"fmt"
	"strings"
)

// staticSegmentCount is the number of source segments the static provider
// cycles through under its base URL (out_000.ts .. out_009.ts).
const staticSegmentCount = 10

// StaticProvider serves ad segments from a fixed base URL, cycling segment
// indices over a known segment count. It is stateless.
type StaticProvider struct {
	baseURL         string
	segmentDuration float64
}

// NewStaticProvider returns a provider rooted at baseURL with the given
// per-segment duration.
func NewStaticProvider(baseURL string, segmentDuration float64) *StaticProvider {
	return &StaticProvider{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		segmentDuration: segmentDuration,
	}
}

func (p *StaticProvider) AdSegments(breakDuration float64, sessionID string) []AdSegment {
	n := segmentCount(breakDuration, p.segmentDuration)
	segments := make([]AdSegment, 0, n)
	for i := 0; i < n; i++ {
		segments = append(segments, AdSegment{
			URI:             fmt.Sprintf("%s/ad-segment-%d.ts", p.baseURL, i),
			DurationSeconds: p.segmentDuration,
		})
	}
	return segments
}

func (p *StaticProvider) ResolveSegmentURL(adName, sessionID string) (string, bool) {
	_, segIdx, ok := ParseAdName(adName)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s/out_%03d.ts", p.baseURL, segIdx%staticSegmentCount), true
}

func (p *StaticProvider) ResolveSegmentWithTracking(adName, sessionID string) (string, *AdTrackingInfo, bool) {
	url, ok := p.ResolveSegmentURL(adName, sessionID)
	return url, nil, ok
}

func (p *StaticProvider) AdCreatives(breakDuration float64, sessionID string) []AdCreative {
	segments := p.AdSegments(breakDuration, sessionID)
	creatives := make([]AdCreative, 0, len(segments))
	for _, s := range segments {
		creatives = append(creatives, AdCreative{URI: s.URI, DurationSeconds: s.DurationSeconds})
	}
	return creatives
}

func (p *StaticProvider) CleanupCache() {}
