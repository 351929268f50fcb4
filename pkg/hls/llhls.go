// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package hls

import (
	"strings"
)

// LLHLSTags holds verbatim low-latency lines that the playlist parser does
// not model. They are captured before parsing and re-injected after
// serialization so that they round-trip byte for byte.
type LLHLSTags struct {
	ServerControl    string
	PartInf          string
	Skip             string
	PreloadHints     []string
	RenditionReports []string
	Parts            []string // EXT-X-PART lines in order, for URI rewrite
}

// IsLLHLS reports whether raw contains any low-latency indicator tag.
func IsLLHLS(raw string) bool {
	return strings.Contains(raw, tagServerControl) ||
		strings.Contains(raw, tagPartInf) ||
		strings.Contains(raw, tagPart)
}

// CaptureLLHLSTags extracts the low-latency lines from raw. It returns nil
// when raw is not a low-latency playlist.
func CaptureLLHLSTags(raw string) *LLHLSTags {
	if !IsLLHLS(raw) {
		return nil
	}
	var tags LLHLSTags
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case strings.HasPrefix(line, tagServerControl):
			tags.ServerControl = line
		case strings.HasPrefix(line, tagPartInf):
			tags.PartInf = line
		case strings.HasPrefix(line, tagSkip):
			tags.Skip = line
		case strings.HasPrefix(line, tagPreloadHint):
			tags.PreloadHints = append(tags.PreloadHints, line)
		case strings.HasPrefix(line, tagRenditionReport):
			tags.RenditionReports = append(tags.RenditionReports, line)
		case strings.HasPrefix(line, tagPart):
			tags.Parts = append(tags.Parts, line)
		}
	}
	return &tags
}

// Reinject inserts the captured lines into serialized output and rewrites
// the URIs they carry to the proxy. Playlist-level tags go after the first
// TARGETDURATION line, falling back to VERSION, then EXTM3U, in the order
// SERVER-CONTROL, PART-INF, SKIP. Preload hints and rendition reports are
// appended at the end in their original order.
func (t *LLHLSTags) Reinject(serialized string, cfg RewriteConfig) string {
	lines := strings.Split(strings.TrimRight(serialized, "\n"), "\n")

	insertAt := findInsertIndex(lines)
	var headTags []string
	if t.ServerControl != "" {
		headTags = append(headTags, t.ServerControl)
	}
	if t.PartInf != "" {
		headTags = append(headTags, t.PartInf)
	}
	if t.Skip != "" {
		headTags = append(headTags, t.Skip)
	}

	out := make([]string, 0, len(lines)+len(headTags)+len(t.PreloadHints)+len(t.RenditionReports))
	out = append(out, lines[:insertAt]...)
	out = append(out, headTags...)
	out = append(out, lines[insertAt:]...)

	for _, hint := range t.PreloadHints {
		out = append(out, rewriteTagURI(hint, cfg, false))
	}
	for _, report := range t.RenditionReports {
		out = append(out, rewriteTagURI(report, cfg, true))
	}
	return strings.Join(out, "\n") + "\n"
}

// RewritePartURIs rewrites the URI attribute of every EXT-X-PART line in
// serialized to the segment proxy.
func RewritePartURIs(serialized string, cfg RewriteConfig) string {
	if !strings.Contains(serialized, tagPart) {
		return serialized
	}
	lines := strings.Split(serialized, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, tagPart) {
			lines[i] = rewriteTagURI(line, cfg, false)
		}
	}
	return strings.Join(lines, "\n")
}

// findInsertIndex returns the line index directly after TARGETDURATION,
// VERSION, or EXTM3U, whichever is found first in that priority order.
func findInsertIndex(lines []string) int {
	for _, prefix := range []string{tagTargetDuration, tagVersion, tagExtM3U} {
		for i, line := range lines {
			if strings.HasPrefix(line, prefix) {
				return i + 1
			}
		}
	}
	return 0
}

// extractQuotedURI returns the value of the URI="..." attribute and its
// bounds within line. ok is false when there is no URI attribute.
func extractQuotedURI(line string) (uri string, start, end int, ok bool) {
	idx := strings.Index(line, `URI="`)
	if idx < 0 {
		return "", 0, 0, false
	}
	start = idx + len(`URI="`)
	rel := strings.IndexByte(line[start:], '"')
	if rel < 0 {
		return "", 0, 0, false
	}
	end = start + rel
	return line[start:end], start, end, true
}

// rewriteTagURI rewrites the URI attribute of a captured tag line. Parts
// and preload hints point at the segment proxy; rendition reports point at
// the playlist proxy. Absolute URIs carry their own origin, relative ones
// use the configured origin base.
func rewriteTagURI(line string, cfg RewriteConfig, isPlaylist bool) string {
	uri, start, end, ok := extractQuotedURI(line)
	if !ok {
		return line
	}
	var newURI string
	if isPlaylist {
		origin := uri
		if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
			origin = cfg.OriginBase + "/" + uri
		}
		newURI = PlaylistProxyURL(cfg.BaseURL, cfg.SessionID, origin)
	} else {
		originBase, name := originBaseFor(uri, cfg.OriginBase)
		newURI = SegmentProxyURL(cfg.BaseURL, cfg.SessionID, name, originBase)
	}
	return line[:start] + newURI + line[end:]
}
