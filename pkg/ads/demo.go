// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package ads

import (
	"fmt"
	"strings"
)

const (
	// demoNumCreatives is the number of creative directories under the
	// demo base URL (creative-1 .. creative-5).
	demoNumCreatives = 5
	// demoSegmentsPerCreative is the segment count inside each creative.
	demoSegmentsPerCreative = 10
)

// DemoProvider cycles over several creative directories so that successive
// ad breaks show different ads. The break index picks the creative, the
// segment index cycles within it.
type DemoProvider struct {
	baseURL         string
	segmentDuration float64
}

// NewDemoProvider returns a demo provider rooted at baseURL.
func NewDemoProvider(baseURL string, segmentDuration float64) *DemoProvider {
	return &DemoProvider{
		baseURL:         strings.TrimSuffix(baseURL, "/"),
		segmentDuration: segmentDuration,
	}
}

func (p *DemoProvider) creativeURL(breakIdx int) string {
	return fmt.Sprintf("%s/creative-%d", p.baseURL, breakIdx%demoNumCreatives+1)
}

func (p *DemoProvider) AdSegments(breakDuration float64, sessionID string) []AdSegment {
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

func (p *DemoProvider) ResolveSegmentURL(adName, sessionID string) (string, bool) {
	breakIdx, segIdx, ok := ParseAdName(adName)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s/out_%03d.ts", p.creativeURL(breakIdx), segIdx%demoSegmentsPerCreative), true
}

func (p *DemoProvider) ResolveSegmentWithTracking(adName, sessionID string) (string, *AdTrackingInfo, bool) {
	url, ok := p.ResolveSegmentURL(adName, sessionID)
	return url, nil, ok
}

func (p *DemoProvider) AdCreatives(breakDuration float64, sessionID string) []AdCreative {
	creatives := make([]AdCreative, 0, demoNumCreatives)
	n := segmentCount(breakDuration, p.segmentDuration)
	for i := 0; i < n; i++ {
		creatives = append(creatives, AdCreative{
			URI:             p.creativeURL(i),
			DurationSeconds: p.segmentDuration,
		})
	}
	return creatives
}

func (p *DemoProvider) CleanupCache() {}
