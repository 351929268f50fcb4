// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package hls

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ritcher-io/ritcher/pkg/ads"
	"github.com/stretchr/testify/require"
)

func testConfig(mode Mode, segDur float64) RewriteConfig {
	return RewriteConfig{
		BaseURL:    "http://stitcher.example.com",
		SessionID:  "S",
		OriginBase: "http://origin.example.com/live",
		Mode:       mode,
		Provider:   ads.NewStaticProvider("http://ads.example.com/spots", segDur),
		Now:        func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	}
}

func uriLines(out string) []string {
	var uris []string
	for _, line := range strings.Split(out, "\n") {
		if line != "" && !strings.HasPrefix(line, "#") {
			uris = append(uris, line)
		}
	}
	return uris
}

func TestRewriteSSAISingleBreak(t *testing.T) {
	out, err := Rewrite(simplePlaylist, testConfig(ModeSSAI, 1.0))
	require.NoError(t, err)

	// Ten one second ad segments replace the placeholder.
	for s := 0; s < 10; s++ {
		require.Contains(t, out,
			fmt.Sprintf("http://stitcher.example.com/stitch/S/ad/break-0-seg-%d.ts", s))
	}
	require.Equal(t, 1, strings.Count(out, "#EXT-X-DISCONTINUITY"))
	require.NotContains(t, out, "segment-2.ts", "placeholder replaced")
	require.NotContains(t, out, "CUE-OUT")
	require.NotContains(t, out, "CUE-IN")
	require.NotContains(t, out, interstitialClass)

	// The discontinuity comes directly before the first ad segment.
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if line == "#EXT-X-DISCONTINUITY" {
			require.Contains(t, lines[i+2], "ad/break-0-seg-0.ts")
		}
	}

	// Every URI points back at the proxy.
	for _, uri := range uriLines(out) {
		require.True(t, strings.HasPrefix(uri, "http://stitcher.example.com/stitch/S/"), uri)
	}
	require.Contains(t, out, "#EXT-X-ENDLIST")
}

func TestRewriteSSAIMultipleBreaks(t *testing.T) {
	playlist := `#EXTM3U
#EXTINF:10.0,
a.ts
#EXT-X-CUE-OUT:10
#EXTINF:10.0,
b.ts
#EXT-X-CUE-IN
#EXTINF:10.0,
c.ts
#EXT-X-CUE-OUT:10
#EXTINF:10.0,
d.ts
#EXT-X-CUE-IN
#EXTINF:10.0,
e.ts
`
	out, err := Rewrite(playlist, testConfig(ModeSSAI, 10.0))
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(out, "#EXT-X-DISCONTINUITY"))
	require.Contains(t, out, "ad/break-0-seg-0.ts")
	require.Contains(t, out, "ad/break-1-seg-0.ts")
}

func TestRewriteSGAISingleBreak(t *testing.T) {
	out, err := Rewrite(simplePlaylist, testConfig(ModeSGAI, 1.0))
	require.NoError(t, err)

	require.Equal(t, 1, strings.Count(out, "#EXT-X-DATERANGE:"))
	require.Contains(t, out, `CLASS="com.apple.hls.interstitial"`)
	require.Contains(t, out, `ID="ad-break-0"`)
	require.Contains(t, out, `X-ASSET-LIST="http://stitcher.example.com/stitch/S/asset-list/0?dur=10"`)
	require.Contains(t, out, "DURATION=10")
	require.NotContains(t, out, "#EXT-X-DISCONTINUITY")

	// The placeholder segment survives, routed through the proxy.
	require.Contains(t, out, "/stitch/S/segment/segment-2.ts")
	for _, uri := range uriLines(out) {
		require.True(t, strings.HasPrefix(uri, "http://stitcher.example.com/stitch/S/"), uri)
	}
}

func TestRewriteSGAIStartDateFromProgramDateTime(t *testing.T) {
	// PDT at the first segment, break starts 20 s in.
	out, err := Rewrite(simplePlaylist, testConfig(ModeSGAI, 1.0))
	require.NoError(t, err)
	require.Contains(t, out, `START-DATE="2026-01-01T00:00:20.000Z"`)
}

func TestRewriteSGAIStartDateFallsBackToWallClock(t *testing.T) {
	playlist := `#EXTM3U
#EXT-X-CUE-OUT:10
#EXTINF:10.0,
a.ts
`
	out, err := Rewrite(playlist, testConfig(ModeSGAI, 1.0))
	require.NoError(t, err)
	require.Contains(t, out, `START-DATE="2026-03-01T12:00:00.000Z"`)
}

func TestRewriteNoBreaksPassesThrough(t *testing.T) {
	playlist := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
a.ts
#EXTINF:6.0,
b.ts
`
	for _, mode := range []Mode{ModeSSAI, ModeSGAI} {
		out, err := Rewrite(playlist, testConfig(mode, 1.0))
		require.NoError(t, err)
		require.NotContains(t, out, "DATERANGE")
		require.NotContains(t, out, "DISCONTINUITY")
		require.Contains(t, out, "/stitch/S/segment/a.ts?origin=")
		require.Contains(t, out, "/stitch/S/segment/b.ts?origin=")
	}
}

// noAdsProvider has no ads and no slate.
type noAdsProvider struct{}

func (noAdsProvider) AdSegments(float64, string) []ads.AdSegment { return nil }
func (noAdsProvider) ResolveSegmentURL(string, string) (string, bool) {
	return "", false
}
func (noAdsProvider) ResolveSegmentWithTracking(string, string) (string, *ads.AdTrackingInfo, bool) {
	return "", nil, false
}
func (noAdsProvider) AdCreatives(float64, string) []ads.AdCreative { return nil }
func (noAdsProvider) CleanupCache()                                {}

func TestRewriteSSAIEmptyProviderStripsCues(t *testing.T) {
	cfg := testConfig(ModeSSAI, 1.0)
	cfg.Provider = noAdsProvider{}
	out, err := Rewrite(simplePlaylist, cfg)
	require.NoError(t, err)

	// The placeholder survives through the proxy, but no half-open break
	// signal may remain.
	require.Contains(t, out, "/stitch/S/segment/segment-2.ts")
	require.NotContains(t, out, "CUE-OUT")
	require.NotContains(t, out, "CUE-IN")
	require.NotContains(t, out, "/ad/")
	require.NotContains(t, out, "#EXT-X-DISCONTINUITY")
}

func TestRewritePassThroughURIList(t *testing.T) {
	playlist := `#EXTM3U
#EXT-X-TARGETDURATION:6
#EXTINF:6.0,
a.ts
#EXTINF:6.0,
b.ts
`
	out, err := Rewrite(playlist, testConfig(ModeSSAI, 1.0))
	require.NoError(t, err)

	want := []string{
		"http://stitcher.example.com/stitch/S/segment/a.ts?origin=http%3A%2F%2Forigin.example.com%2Flive",
		"http://stitcher.example.com/stitch/S/segment/b.ts?origin=http%3A%2F%2Forigin.example.com%2Flive",
	}
	if d := cmp.Diff(want, uriLines(out)); d != "" {
		t.Errorf("segment URIs differ: %s", d)
	}
}

func TestRewriteAbsoluteSegmentURIs(t *testing.T) {
	playlist := `#EXTM3U
#EXTINF:6.0,
https://other-cdn.example.com/live/stream/a.ts
`
	out, err := Rewrite(playlist, testConfig(ModeSSAI, 1.0))
	require.NoError(t, err)
	require.Contains(t, out, "/stitch/S/segment/a.ts?origin=")
	require.Contains(t, out, "other-cdn.example.com")
	require.NotContains(t, out, "\nhttps://other-cdn.example.com")
}
