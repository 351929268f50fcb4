// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package hls

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ritcher-io/ritcher/pkg/ads"
)

// Mode selects how detected ad breaks are rendered.
type Mode string

const (
	// ModeSSAI replaces placeholder segments with spliced-in ad segments.
	ModeSSAI Mode = "ssai"
	// ModeSGAI keeps content segments and injects interstitial markers.
	ModeSGAI Mode = "sgai"
)

// RewriteConfig is the per-request context for a playlist rewrite.
type RewriteConfig struct {
	BaseURL    string // proxy base URL, no trailing slash
	SessionID  string
	OriginBase string // origin URL stripped to its directory
	Mode       Mode
	Provider   ads.Provider
	// Now supplies the wall clock for SGAI start dates when the playlist
	// carries no program date time. Defaults to time.Now.
	Now func() time.Time
}

// SegmentProxyURL routes a segment name through the proxy.
func SegmentProxyURL(baseURL, sessionID, name, originBase string) string {
	return fmt.Sprintf("%s/stitch/%s/segment/%s?origin=%s",
		baseURL, sessionID, name, url.QueryEscape(originBase))
}

// AdProxyURL routes an opaque ad name through the proxy.
func AdProxyURL(baseURL, sessionID, adName string) string {
	return fmt.Sprintf("%s/stitch/%s/ad/%s", baseURL, sessionID, adName)
}

// AssetListURL is the SGAI indirection target for one break.
func AssetListURL(baseURL, sessionID string, breakIdx int, duration float64) string {
	return fmt.Sprintf("%s/stitch/%s/asset-list/%d?dur=%s",
		baseURL, sessionID, breakIdx, formatDuration(duration))
}

// PlaylistProxyURL routes a playlist through the proxy with an explicit
// origin.
func PlaylistProxyURL(baseURL, sessionID, origin string) string {
	return fmt.Sprintf("%s/stitch/%s/playlist.m3u8?origin=%s",
		baseURL, sessionID, url.QueryEscape(origin))
}

// segmentName returns the last path component of an URI without query.
func segmentName(uri string) string {
	if q := strings.IndexByte(uri, '?'); q >= 0 {
		uri = uri[:q]
	}
	if idx := strings.LastIndexByte(uri, '/'); idx >= 0 {
		return uri[idx+1:]
	}
	return uri
}

// originBaseFor returns the origin directory and the proxy path for a
// segment URI. Absolute URIs split at the last '/'. Relative URIs keep
// their full path so nested directories survive the proxy round trip.
func originBaseFor(uri, fallback string) (string, string) {
	name := uri
	if q := strings.IndexByte(name, '?'); q >= 0 {
		name = name[:q]
	}
	if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") {
		if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
			return name[:idx], name[idx+1:]
		}
	}
	return fallback, name
}

// Rewrite parses content, detects ad breaks, and rewrites the playlist for
// the configured mode. LL-HLS tags are preserved around the parse when the
// input carries them.
func Rewrite(content string, cfg RewriteConfig) (string, error) {
	llTags := CaptureLLHLSTags(content)

	p, err := Parse(content)
	if err != nil {
		return "", err
	}
	breaks := DetectBreaks(p)

	var rewritten *Playlist
	switch cfg.Mode {
	case ModeSGAI:
		rewritten, err = rewriteSGAI(p, breaks, cfg)
	default:
		rewritten, err = rewriteSSAI(p, breaks, cfg)
	}
	if err != nil {
		return "", err
	}

	out := rewritten.Serialize()
	if llTags != nil {
		out = RewritePartURIs(out, cfg)
		out = llTags.Reinject(out, cfg)
	}
	return out, nil
}

// rewriteSSAI replaces each break's placeholders with provider ad segments.
// The first ad segment of a group carries a discontinuity marker. Cue
// markers are dropped since the spliced output must not double-signal.
func rewriteSSAI(p *Playlist, breaks []AdBreak, cfg RewriteConfig) (*Playlist, error) {
	out := &Playlist{
		HeaderLines: p.HeaderLines,
		FooterLines: p.FooterLines,
	}
	skip := 0
	for i, seg := range p.Segments {
		if skip > 0 {
			skip--
			continue
		}
		if b := breakStartingAt(breaks, i); b >= 0 {
			br := breaks[b]
			adSegs := cfg.Provider.AdSegments(br.DurationSeconds, cfg.SessionID)
			if len(adSegs) == 0 {
				// No ads and no slate. The placeholder passes through, but
				// without its cue markers: the closing CUE-IN is stripped
				// below, and a lone CUE-OUT would signal a break that never
				// closes.
				cs := rewriteContentSegment(seg, cfg)
				cs.CueOut = false
				cs.CueOutDuration = 0
				cs.CueOutCont = false
				cs.CueIn = false
				out.Segments = append(out.Segments, cs)
				continue
			}
			for s, adSeg := range adSegs {
				out.Segments = append(out.Segments, Segment{
					URI:           AdProxyURL(cfg.BaseURL, cfg.SessionID, fmt.Sprintf("break-%d-seg-%d.ts", b, s)),
					Duration:      adSeg.DurationSeconds,
					Discontinuity: s == 0,
				})
			}
			skip = br.PlaceholderCount - 1
			continue
		}
		cs := rewriteContentSegment(seg, cfg)
		cs.CueOut = false
		cs.CueOutDuration = 0
		cs.CueOutCont = false
		cs.CueIn = false
		out.Segments = append(out.Segments, cs)
	}
	return out, nil
}

// rewriteSGAI keeps every content segment and injects one DATERANGE
// interstitial marker per break. No discontinuity markers are added.
func rewriteSGAI(p *Playlist, breaks []AdBreak, cfg RewriteConfig) (*Playlist, error) {
	now := time.Now
	if cfg.Now != nil {
		now = cfg.Now
	}
	startDates := breakStartDates(p, breaks, now)

	out := &Playlist{
		HeaderLines: p.HeaderLines,
		FooterLines: p.FooterLines,
	}
	for i, seg := range p.Segments {
		if b := breakStartingAt(breaks, i); b >= 0 {
			br := breaks[b]
			dateRange := fmt.Sprintf(
				`%sID="ad-break-%d",CLASS=%q,START-DATE=%q,DURATION=%s,X-ASSET-LIST=%q`,
				tagDateRange, b, interstitialClass, startDates[b],
				formatDuration(br.DurationSeconds),
				AssetListURL(cfg.BaseURL, cfg.SessionID, b, br.DurationSeconds))
			rewrittenSeg := rewriteContentSegment(seg, cfg)
			rewrittenSeg.ExtraTags = append([]string{dateRange}, rewrittenSeg.ExtraTags...)
			out.Segments = append(out.Segments, rewrittenSeg)
			continue
		}
		out.Segments = append(out.Segments, rewriteContentSegment(seg, cfg))
	}
	return out, nil
}

// rewriteContentSegment points a segment URI at the proxy, keeping all tags.
func rewriteContentSegment(seg Segment, cfg RewriteConfig) Segment {
	originBase, name := originBaseFor(seg.URI, cfg.OriginBase)
	seg.URI = SegmentProxyURL(cfg.BaseURL, cfg.SessionID, name, originBase)
	return seg
}

// breakStartDates computes an ISO 8601 start date per break by accumulating
// EXTINF durations from the closest preceding program date time. Without
// any program date time the current wall clock is used.
func breakStartDates(p *Playlist, breaks []AdBreak, now func() time.Time) []string {
	dates := make([]string, len(breaks))
	for b, br := range breaks {
		var base time.Time
		var offset float64
		found := false
		for i := br.StartSegmentIndex; i >= 0; i-- {
			if pdt := p.Segments[i].ProgramDateTime; pdt != "" {
				if t, err := time.Parse(time.RFC3339Nano, pdt); err == nil {
					base = t
					found = true
					break
				}
			}
			if i > 0 {
				offset += p.Segments[i-1].Duration
			}
		}
		if !found {
			base = now().UTC()
			offset = 0
		}
		start := base.Add(time.Duration(offset * float64(time.Second)))
		dates[b] = start.UTC().Format("2006-01-02T15:04:05.000Z")
	}
	return dates
}
