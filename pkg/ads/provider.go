// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package ads resolves ad slots to concrete ad media. Three provider
// variants share one interface: a static-cycling provider, a multi-creative
// demo provider, and a VAST-backed provider with per-session caching.
package ads

import (
	"math"
	"strconv"
	"strings"
)

// AdSegment is a single fill-in segment for SSAI splicing.
type AdSegment struct {
	URI             string
	DurationSeconds float64
	Tracking        *AdTrackingInfo
}

// AdCreative is a complete ad unit used for SGAI asset lists.
type AdCreative struct {
	URI             string
	DurationSeconds float64
}

// TrackingEvent is one progress beacon with its quartile label.
type TrackingEvent struct {
	Event string
	URL   string
}

// AdTrackingInfo carries the beacons belonging to one ad segment.
// SegmentIndex and TotalSegments map a sub-segment to quartile events.
type AdTrackingInfo struct {
	ImpressionURLs []string
	TrackingEvents []TrackingEvent
	ErrorURL       string
	TotalSegments  int
	SegmentIndex   int
}

// Provider resolves ad slots for a session.
type Provider interface {
	// AdSegments returns at least one segment whose total duration is at
	// least breakDuration.
	AdSegments(breakDuration float64, sessionID string) []AdSegment
	// ResolveSegmentURL maps an opaque break-{b}-seg-{s}.ts name to the
	// origin URL of the underlying media.
	ResolveSegmentURL(adName, sessionID string) (string, bool)
	// ResolveSegmentWithTracking is ResolveSegmentURL plus any tracking
	// metadata for the segment. Tracking may be nil.
	ResolveSegmentWithTracking(adName, sessionID string) (string, *AdTrackingInfo, bool)
	// AdCreatives returns the ad units for an SGAI asset list.
	AdCreatives(breakDuration float64, sessionID string) []AdCreative
	// CleanupCache evicts stale provider state. No-op for stateless
	// providers.
	CleanupCache()
}

// segmentCount returns how many segments of segDuration are needed to cover
// breakDuration, at least one.
func segmentCount(breakDuration, segDuration float64) int {
	if segDuration <= 0 {
		return 1
	}
	n := int(math.Ceil(breakDuration / segDuration))
	if n < 1 {
		n = 1
	}
	return n
}

// ParseAdName parses break-{b}-seg-{s}.ts into break and segment indices.
func ParseAdName(adName string) (breakIdx, segIdx int, ok bool) {
	rest, found := strings.CutPrefix(adName, "break-")
	if !found {
		return 0, 0, false
	}
	rest, found = strings.CutSuffix(rest, ".ts")
	if !found {
		return 0, 0, false
	}
	bStr, sStr, found := strings.Cut(rest, "-seg-")
	if !found {
		return 0, 0, false
	}
	b, err := strconv.Atoi(bStr)
	if err != nil || b < 0 {
		return 0, 0, false
	}
	s, err := strconv.Atoi(sStr)
	if err != nil || s < 0 {
		return 0, 0, false
	}
	return b, s, true
}
