// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package hls

// AdBreak is one detected ad break in segment-index terms.
type AdBreak struct {
	// StartSegmentIndex is the first placeholder segment.
	StartSegmentIndex int
	// PlaceholderCount is the number of segments up to the matching
	// CUE-IN, or to the end of the playlist for a still-open break.
	PlaceholderCount int
	DurationSeconds  float64
	// Closed reports whether the matching CUE-IN was seen.
	Closed bool
}

// DetectBreaks scans segments in order. A CUE-OUT opens a break at that
// segment; following segments are placeholders until a CUE-IN. A
// CUE-OUT-CONT inside a break is advisory only. A playlist ending mid-break
// leaves the break open (live case).
func DetectBreaks(p *Playlist) []AdBreak {
	var breaks []AdBreak
	open := -1 // index into breaks of the currently open break

	for i, seg := range p.Segments {
		if seg.CueIn && open >= 0 {
			breaks[open].PlaceholderCount = i - breaks[open].StartSegmentIndex
			breaks[open].Closed = true
			open = -1
		}
		if seg.CueOut && open < 0 {
			breaks = append(breaks, AdBreak{
				StartSegmentIndex: i,
				DurationSeconds:   seg.CueOutDuration,
			})
			open = len(breaks) - 1
		}
	}
	if open >= 0 {
		breaks[open].PlaceholderCount = len(p.Segments) - breaks[open].StartSegmentIndex
	}
	return breaks
}

// breakStartingAt returns the index of the break whose placeholders begin
// at segment index i, or -1.
func breakStartingAt(breaks []AdBreak, i int) int {
	for b, br := range breaks {
		if br.StartSegmentIndex == i {
			return b
		}
	}
	return -1
}
