// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package hls

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const simplePlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:10
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PROGRAM-DATE-TIME:2026-01-01T00:00:00.000Z
#EXTINF:10.0,
segment-0.ts
#EXTINF:10.0,
segment-1.ts
#EXT-X-CUE-OUT:10
#EXTINF:10.0,
segment-2.ts
#EXT-X-CUE-IN
#EXTINF:10.0,
segment-3.ts
#EXT-X-ENDLIST
`

func TestParse(t *testing.T) {
	p, err := Parse(simplePlaylist)
	require.NoError(t, err)
	require.Len(t, p.Segments, 4)
	require.Equal(t, "segment-0.ts", p.Segments[0].URI)
	require.Equal(t, 10.0, p.Segments[0].Duration)
	require.Equal(t, "2026-01-01T00:00:00.000Z", p.Segments[0].ProgramDateTime)
	require.True(t, p.Segments[2].CueOut)
	require.Equal(t, 10.0, p.Segments[2].CueOutDuration)
	require.True(t, p.Segments[3].CueIn)
	require.Equal(t, []string{"#EXT-X-ENDLIST"}, p.FooterLines)
	require.Contains(t, p.HeaderLines, "#EXT-X-TARGETDURATION:10")
}

func TestParseRejectsNonM3U8(t *testing.T) {
	_, err := Parse("<html>not a playlist</html>")
	require.Error(t, err)
	_, err = Parse("")
	require.Error(t, err)
}

func TestParseCueOutVariants(t *testing.T) {
	p, err := Parse("#EXTM3U\n#EXT-X-CUE-OUT:DURATION=30\n#EXTINF:6.0,\ns.ts\n")
	require.NoError(t, err)
	require.True(t, p.Segments[0].CueOut)
	require.Equal(t, 30.0, p.Segments[0].CueOutDuration)

	p, err = Parse("#EXTM3U\n#EXT-X-CUE-OUT\n#EXTINF:6.0,\ns.ts\n")
	require.NoError(t, err)
	require.True(t, p.Segments[0].CueOut)
	require.Equal(t, 0.0, p.Segments[0].CueOutDuration)
}

func TestSerializeRoundTrip(t *testing.T) {
	p, err := Parse(simplePlaylist)
	require.NoError(t, err)
	out := p.Serialize()
	require.Equal(t, simplePlaylist, out)
}

func TestDetectBreaks(t *testing.T) {
	p, err := Parse(simplePlaylist)
	require.NoError(t, err)
	breaks := DetectBreaks(p)
	require.Len(t, breaks, 1)
	require.Equal(t, 2, breaks[0].StartSegmentIndex)
	require.Equal(t, 1, breaks[0].PlaceholderCount)
	require.Equal(t, 10.0, breaks[0].DurationSeconds)
	require.True(t, breaks[0].Closed)
}

func TestDetectBreaksOpenEnded(t *testing.T) {
	playlist := `#EXTM3U
#EXTINF:6.0,
a.ts
#EXT-X-CUE-OUT:30
#EXTINF:6.0,
b.ts
#EXT-X-CUE-OUT-CONT
#EXTINF:6.0,
c.ts
`
	p, err := Parse(playlist)
	require.NoError(t, err)
	breaks := DetectBreaks(p)
	require.Len(t, breaks, 1, "CUE-OUT-CONT does not open a new break")
	require.Equal(t, 1, breaks[0].StartSegmentIndex)
	require.Equal(t, 2, breaks[0].PlaceholderCount)
	require.False(t, breaks[0].Closed)
}

func TestDetectBreaksMultiple(t *testing.T) {
	playlist := `#EXTM3U
#EXT-X-CUE-OUT:10
#EXTINF:10.0,
a.ts
#EXT-X-CUE-IN
#EXTINF:10.0,
b.ts
#EXT-X-CUE-OUT:20
#EXTINF:10.0,
c.ts
#EXTINF:10.0,
d.ts
#EXT-X-CUE-IN
#EXTINF:10.0,
e.ts
`
	p, err := Parse(playlist)
	require.NoError(t, err)
	breaks := DetectBreaks(p)
	require.Len(t, breaks, 2)
	require.Equal(t, 0, breaks[0].StartSegmentIndex)
	require.Equal(t, 1, breaks[0].PlaceholderCount)
	require.Equal(t, 2, breaks[1].StartSegmentIndex)
	require.Equal(t, 2, breaks[1].PlaceholderCount)
	require.Equal(t, 20.0, breaks[1].DurationSeconds)
}

func TestSegmentName(t *testing.T) {
	require.Equal(t, "seg.ts", segmentName("seg.ts"))
	require.Equal(t, "seg.ts", segmentName("media/seg.ts"))
	require.Equal(t, "seg.ts", segmentName("http://origin.example.com/live/seg.ts"))
	require.Equal(t, "seg.ts", segmentName("http://origin.example.com/live/seg.ts?token=abc"))
}

func TestOriginBaseFor(t *testing.T) {
	base, name := originBaseFor("seg.ts", "http://origin.example.com/live")
	require.Equal(t, "http://origin.example.com/live", base)
	require.Equal(t, "seg.ts", name)

	base, name = originBaseFor("media/seg.ts", "http://origin.example.com/live")
	require.Equal(t, "http://origin.example.com/live", base)
	require.Equal(t, "media/seg.ts", name, "nested relative path kept intact")

	base, name = originBaseFor("http://other.example.com/path/seg.ts", "http://origin.example.com/live")
	require.Equal(t, "http://other.example.com/path", base)
	require.Equal(t, "seg.ts", name)
}

func TestParseKeepsUnknownSegmentTags(t *testing.T) {
	playlist := "#EXTM3U\n#EXT-X-KEY:METHOD=NONE\n#EXTINF:6.0,\na.ts\n"
	p, err := Parse(playlist)
	require.NoError(t, err)
	out := p.Serialize()
	require.Contains(t, out, "#EXT-X-KEY:METHOD=NONE")
	require.True(t, strings.Index(out, "#EXT-X-KEY") < strings.Index(out, "a.ts"))
}
