// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package ads

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseAdName(t *testing.T) {
	cases := []struct {
		name string
		b, s int
		ok   bool
	}{
		{"break-0-seg-0.ts", 0, 0, true},
		{"break-1-seg-15.ts", 1, 15, true},
		{"break-12-seg-345.ts", 12, 345, true},
		{"break-1-seg-15", 0, 0, false},
		{"seg-1-break-2.ts", 0, 0, false},
		{"break--1-seg-2.ts", 0, 0, false},
		{"break-a-seg-2.ts", 0, 0, false},
		{"break-1-seg-b.ts", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		b, s, ok := ParseAdName(c.name)
		require.Equal(t, c.ok, ok, c.name)
		if c.ok {
			require.Equal(t, c.b, b, c.name)
			require.Equal(t, c.s, s, c.name)
		}
	}
}

func TestStaticProviderSegments(t *testing.T) {
	p := NewStaticProvider("http://ads.example.com/spots/", 1.0)

	segments := p.AdSegments(10, "sess")
	require.Len(t, segments, 10)
	require.Equal(t, "http://ads.example.com/spots/ad-segment-0.ts", segments[0].URI)
	require.Equal(t, 1.0, segments[0].DurationSeconds)

	// Always at least one segment.
	segments = p.AdSegments(0.5, "sess")
	require.Len(t, segments, 1)

	// 10.5s with 10s segments needs two.
	p2 := NewStaticProvider("http://ads.example.com/spots", 10.0)
	require.Len(t, p2.AdSegments(10.5, "sess"), 2)
}

func TestStaticProviderResolve(t *testing.T) {
	p := NewStaticProvider("http://ads.example.com/spots", 1.0)

	url, ok := p.ResolveSegmentURL("break-0-seg-3.ts", "sess")
	require.True(t, ok)
	require.Equal(t, "http://ads.example.com/spots/out_003.ts", url)

	// Segment index cycles over the source segment count.
	url, ok = p.ResolveSegmentURL("break-2-seg-13.ts", "sess")
	require.True(t, ok)
	require.Equal(t, "http://ads.example.com/spots/out_003.ts", url)

	_, ok = p.ResolveSegmentURL("not-an-ad-name", "sess")
	require.False(t, ok)

	url, tracking, ok := p.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess")
	require.True(t, ok)
	require.NotEmpty(t, url)
	require.Nil(t, tracking)
}

func TestStaticProviderCreatives(t *testing.T) {
	p := NewStaticProvider("http://ads.example.com/spots", 1.0)
	creatives := p.AdCreatives(30, "sess")
	require.Len(t, creatives, 30)
	require.Equal(t, "http://ads.example.com/spots/ad-segment-0.ts", creatives[0].URI)
}

func TestDemoProviderResolve(t *testing.T) {
	p := NewDemoProvider("http://demo.example.com/ads", 10.0)

	// break 1 selects creative-2, segment 15 cycles to out_005.
	url, ok := p.ResolveSegmentURL("break-1-seg-15.ts", "sess")
	require.True(t, ok)
	require.Equal(t, "http://demo.example.com/ads/creative-2/out_005.ts", url)

	// break 5 wraps around to creative-1.
	url, ok = p.ResolveSegmentURL("break-5-seg-0.ts", "sess")
	require.True(t, ok)
	require.Equal(t, "http://demo.example.com/ads/creative-1/out_000.ts", url)
}

func TestVASTProviderSlateFallback(t *testing.T) {
	// Endpoint that always fails.
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	p := NewVASTProvider(ts.URL, "http://slate.example.com/loop", 2.0)
	segments := p.AdSegments(10, "sess")
	require.Len(t, segments, 5)
	require.Equal(t, "http://slate.example.com/loop/ad-segment-0.ts", segments[0].URI)

	url, _, ok := p.ResolveSegmentWithTracking("break-0-seg-1.ts", "sess")
	require.True(t, ok)
	require.Equal(t, "http://slate.example.com/loop/out_001.ts", url)
}

func TestVASTProviderResolvesOncePerSession(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = fmt.Fprint(w, `<VAST version="3.0"><Ad><InLine>
			<Impression><![CDATA[http://beacons.example.com/imp]]></Impression>
			<Creatives><Creative><Linear>
				<Duration>00:00:10</Duration>
				<MediaFiles><MediaFile delivery="progressive" type="video/mp4"><![CDATA[http://cdn.example.com/ad.mp4]]></MediaFile></MediaFiles>
			</Linear></Creative></Creatives>
		</InLine></Ad></VAST>`)
	}))
	defer ts.Close()

	p := NewVASTProvider(ts.URL, "", 0)

	segments := p.AdSegments(10, "sess-1")
	require.Len(t, segments, 1)
	require.Equal(t, "http://cdn.example.com/ad.mp4", segments[0].URI)
	require.NotNil(t, segments[0].Tracking)
	require.Equal(t, 0, segments[0].Tracking.SegmentIndex)

	url, tracking, ok := p.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess-1")
	require.True(t, ok)
	require.Equal(t, "http://cdn.example.com/ad.mp4", url)
	require.NotNil(t, tracking)
	require.Equal(t, []string{"http://beacons.example.com/imp"}, tracking.ImpressionURLs)

	require.Equal(t, 1, calls, "resolution cached per session")

	_ = p.AdSegments(10, "sess-2")
	require.Equal(t, 2, calls, "new session resolves again")
}

func TestVASTProviderTracksOncePerSegment(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<VAST version="3.0"><Ad><InLine>
			<Impression><![CDATA[http://beacons.example.com/imp]]></Impression>
			<Creatives><Creative><Linear>
				<Duration>00:00:10</Duration>
				<MediaFiles><MediaFile delivery="progressive" type="video/mp4"><![CDATA[http://cdn.example.com/ad.mp4]]></MediaFile></MediaFiles>
			</Linear></Creative></Creatives>
		</InLine></Ad></VAST>`)
	}))
	defer ts.Close()

	p := NewVASTProvider(ts.URL, "", 0)

	url, tracking, ok := p.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess-1")
	require.True(t, ok)
	require.Equal(t, "http://cdn.example.com/ad.mp4", url)
	require.NotNil(t, tracking)

	// A retried GET for the same segment still resolves but must not carry
	// tracking again, or the player retry would refire the beacons.
	url, tracking, ok = p.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess-1")
	require.True(t, ok)
	require.Equal(t, "http://cdn.example.com/ad.mp4", url)
	require.Nil(t, tracking)

	// Other segments and other sessions keep their own first access.
	_, tracking, ok = p.ResolveSegmentWithTracking("break-0-seg-1.ts", "sess-1")
	require.True(t, ok)
	require.NotNil(t, tracking)

	_, tracking, ok = p.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess-2")
	require.True(t, ok)
	require.NotNil(t, tracking)

	// ResolveSegmentURL is a lookup, not an access; it must not consume the
	// one-shot tracking.
	p2 := NewVASTProvider(ts.URL, "", 0)
	_, ok = p2.ResolveSegmentURL("break-0-seg-0.ts", "sess-1")
	require.True(t, ok)
	_, tracking, ok = p2.ResolveSegmentWithTracking("break-0-seg-0.ts", "sess-1")
	require.True(t, ok)
	require.NotNil(t, tracking)
}
