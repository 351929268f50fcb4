// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package hls parses HLS media playlists, detects SCTE-35 ad breaks, and
// rewrites them for server-side or server-guided ad insertion.
package hls

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
)

// Playlist tags handled by the parser. Anything else is carried verbatim.
const (
	tagExtM3U           = "#EXTM3U"
	tagExtInf           = "#EXTINF:"
	tagDiscontinuity    = "#EXT-X-DISCONTINUITY"
	tagCueOut           = "#EXT-X-CUE-OUT"
	tagCueOutCont       = "#EXT-X-CUE-OUT-CONT"
	tagCueIn            = "#EXT-X-CUE-IN"
	tagProgramDateTime  = "#EXT-X-PROGRAM-DATE-TIME:"
	tagEndList          = "#EXT-X-ENDLIST"
	tagTargetDuration   = "#EXT-X-TARGETDURATION"
	tagVersion          = "#EXT-X-VERSION"
	tagServerControl    = "#EXT-X-SERVER-CONTROL:"
	tagPartInf          = "#EXT-X-PART-INF:"
	tagSkip             = "#EXT-X-SKIP:"
	tagPart             = "#EXT-X-PART:"
	tagPreloadHint      = "#EXT-X-PRELOAD-HINT:"
	tagRenditionReport  = "#EXT-X-RENDITION-REPORT:"
	tagDateRange        = "#EXT-X-DATERANGE:"
	interstitialClass   = "com.apple.hls.interstitial"
)

// Segment is one media segment with the tags that precede its URI line.
type Segment struct {
	URI             string
	Duration        float64
	DurationStr     string // original EXTINF duration text, kept verbatim
	Title           string
	Discontinuity   bool
	CueOut          bool
	CueOutDuration  float64 // duration signaled on the CUE-OUT, 0 if absent
	CueOutCont      bool
	CueIn           bool
	ProgramDateTime string   // verbatim RFC 3339 value, if present
	ExtraTags       []string // unrecognized segment-level tags, in order
}

// Playlist is a parsed media playlist. Header and footer lines are kept
// verbatim except for the segment-level tags the parser understands.
type Playlist struct {
	HeaderLines []string
	Segments    []Segment
	FooterLines []string
}

// Parse reads a media playlist. It returns an error when the input does not
// start with #EXTM3U.
func Parse(content string) (*Playlist, error) {
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var p Playlist
	var cur Segment
	var pending bool
	first := true

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if first {
			if !strings.HasPrefix(line, tagExtM3U) {
				return nil, fmt.Errorf("not an m3u8 playlist")
			}
			first = false
			p.HeaderLines = append(p.HeaderLines, line)
			continue
		}
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, tagExtInf):
			dur, durStr, title, err := parseExtInf(line)
			if err != nil {
				return nil, err
			}
			cur.Duration = dur
			cur.DurationStr = durStr
			cur.Title = title
			pending = true
		case line == tagDiscontinuity:
			cur.Discontinuity = true
			pending = true
		case strings.HasPrefix(line, tagCueOutCont):
			cur.CueOutCont = true
			pending = true
		case strings.HasPrefix(line, tagCueOut):
			cur.CueOut = true
			cur.CueOutDuration = parseCueOutDuration(line)
			pending = true
		case strings.HasPrefix(line, tagCueIn):
			cur.CueIn = true
			pending = true
		case strings.HasPrefix(line, tagProgramDateTime):
			cur.ProgramDateTime = strings.TrimPrefix(line, tagProgramDateTime)
			pending = true
		case strings.HasPrefix(line, tagServerControl),
			strings.HasPrefix(line, tagPartInf),
			strings.HasPrefix(line, tagSkip),
			strings.HasPrefix(line, tagPreloadHint),
			strings.HasPrefix(line, tagRenditionReport):
			// Captured and re-injected verbatim by the LL-HLS preserver.
		case strings.HasPrefix(line, tagPart):
			cur.ExtraTags = append(cur.ExtraTags, line)
			pending = true
		case line == tagEndList:
			p.FooterLines = append(p.FooterLines, line)
		case strings.HasPrefix(line, "#"):
			if pending {
				cur.ExtraTags = append(cur.ExtraTags, line)
			} else {
				p.HeaderLines = append(p.HeaderLines, line)
			}
		default:
			cur.URI = line
			p.Segments = append(p.Segments, cur)
			cur = Segment{}
			pending = false
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan playlist: %w", err)
	}
	if first {
		return nil, fmt.Errorf("empty playlist")
	}
	if pending && cur.URI == "" {
		// Trailing tags for a not yet complete segment, e.g. parts of the
		// in-progress low-latency segment.
		p.FooterLines = append(p.FooterLines, cur.ExtraTags...)
	}
	return &p, nil
}

func parseExtInf(line string) (float64, string, string, error) {
	val := strings.TrimPrefix(line, tagExtInf)
	durStr, title, _ := strings.Cut(val, ",")
	dur, err := strconv.ParseFloat(strings.TrimSpace(durStr), 64)
	if err != nil {
		return 0, "", "", fmt.Errorf("bad EXTINF %q: %w", line, err)
	}
	return dur, durStr, title, nil
}

// parseCueOutDuration handles both #EXT-X-CUE-OUT:10 and
// #EXT-X-CUE-OUT:DURATION=10. A missing or unparsable duration yields 0,
// which still opens a break.
func parseCueOutDuration(line string) float64 {
	_, val, found := strings.Cut(line, ":")
	if !found {
		return 0
	}
	val = strings.TrimSpace(val)
	if eq := strings.TrimPrefix(val, "DURATION="); eq != val {
		val = eq
	}
	dur, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return dur
}

// formatDuration renders seconds without a trailing .0 for whole values.
func formatDuration(d float64) string {
	return strconv.FormatFloat(d, 'f', -1, 64)
}

// writeSegment serializes one segment with its tags.
func writeSegment(b *strings.Builder, seg Segment) {
	for _, tag := range seg.ExtraTags {
		b.WriteString(tag)
		b.WriteByte('\n')
	}
	if seg.ProgramDateTime != "" {
		b.WriteString(tagProgramDateTime)
		b.WriteString(seg.ProgramDateTime)
		b.WriteByte('\n')
	}
	if seg.Discontinuity {
		b.WriteString(tagDiscontinuity)
		b.WriteByte('\n')
	}
	if seg.CueOut {
		if seg.CueOutDuration > 0 {
			fmt.Fprintf(b, "%s:%s\n", tagCueOut, formatDuration(seg.CueOutDuration))
		} else {
			b.WriteString(tagCueOut)
			b.WriteByte('\n')
		}
	}
	if seg.CueOutCont {
		b.WriteString(tagCueOutCont)
		b.WriteByte('\n')
	}
	if seg.CueIn {
		b.WriteString(tagCueIn)
		b.WriteByte('\n')
	}
	durStr := seg.DurationStr
	if durStr == "" {
		durStr = formatDuration(seg.Duration)
	}
	fmt.Fprintf(b, "%s%s,%s\n", tagExtInf, durStr, seg.Title)
	b.WriteString(seg.URI)
	b.WriteByte('\n')
}

// Serialize renders the playlist back to m3u8 text.
func (p *Playlist) Serialize() string {
	var b strings.Builder
	for _, line := range p.HeaderLines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, seg := range p.Segments {
		writeSegment(&b, seg)
	}
	for _, line := range p.FooterLines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
