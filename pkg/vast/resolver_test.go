// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package vast

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ritcher-io/ritcher/pkg/fetch"
	"github.com/stretchr/testify/require"
)

const inlineVAST = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0">
  <Ad id="ad-1">
    <InLine>
      <AdSystem>TestAdServer</AdSystem>
      <AdTitle>Sample Ad</AdTitle>
      <Impression><![CDATA[ http://beacons.example.com/imp?id=1 ]]></Impression>
      <Impression><![CDATA[http://beacons.example.com/imp?id=2]]></Impression>
      <Error><![CDATA[http://beacons.example.com/error?code=[ERRORCODE]]]></Error>
      <Creatives>
        <Creative id="c1">
          <Linear>
            <Duration>00:00:15</Duration>
            <TrackingEvents>
              <Tracking event="start"><![CDATA[http://beacons.example.com/start]]></Tracking>
              <Tracking event="firstQuartile"><![CDATA[http://beacons.example.com/q1]]></Tracking>
              <Tracking event="complete"><![CDATA[http://beacons.example.com/complete]]></Tracking>
            </TrackingEvents>
            <MediaFiles>
              <MediaFile delivery="streaming" type="application/x-mpegURL"><![CDATA[http://ads.example.com/creative.m3u8]]></MediaFile>
              <MediaFile delivery="progressive" type="video/mp4" width="1280" height="720"><![CDATA[http://ads.example.com/creative.mp4]]></MediaFile>
            </MediaFiles>
          </Linear>
        </Creative>
      </Creatives>
    </InLine>
  </Ad>
</VAST>`

func TestParseDuration(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		err  bool
	}{
		{"00:00:15", 15, false},
		{"00:01:30", 90, false},
		{"01:00:00.500", 3600.5, false},
		{" 00:00:10 ", 10, false},
		{"15", 0, true},
		{"00:xx:15", 0, true},
	}
	for _, c := range cases {
		got, err := ParseDuration(c.in)
		if c.err {
			require.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got, c.in)
	}
}

func TestResolveInLine(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "sess-1", r.URL.Query().Get("session"))
		_, _ = w.Write([]byte(inlineVAST))
	}))
	defer ts.Close()

	r := NewResolver()
	creatives, err := r.Resolve(context.Background(), ts.URL+"/vast", "sess-1")
	require.NoError(t, err)
	require.Len(t, creatives, 1)

	c := creatives[0]
	require.Equal(t, "http://ads.example.com/creative.mp4", c.URI, "progressive MP4 preferred")
	require.Equal(t, 15.0, c.DurationSeconds)
	require.Equal(t, []string{
		"http://beacons.example.com/imp?id=1",
		"http://beacons.example.com/imp?id=2",
	}, c.ImpressionURLs)
	require.Len(t, c.TrackingEvents, 3)
	require.Equal(t, "firstQuartile", c.TrackingEvents[1].Event)
	require.Contains(t, c.ErrorURL, "[ERRORCODE]")
}

func TestResolveWrapperChain(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	wrapper := func(next string) string {
		return fmt.Sprintf(`<VAST version="3.0"><Ad id="w"><Wrapper>
			<AdSystem>Wrapping</AdSystem>
			<VASTAdTagURI><![CDATA[%s]]></VASTAdTagURI>
			<Impression><![CDATA[http://beacons.example.com/wrapper-imp]]></Impression>
		</Wrapper></Ad></VAST>`, next)
	}
	mux.HandleFunc("/wrap1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(wrapper(ts.URL + "/wrap2")))
	})
	mux.HandleFunc("/wrap2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(wrapper(ts.URL + "/inline")))
	})
	mux.HandleFunc("/inline", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(inlineVAST))
	})

	r := NewResolver()
	creatives, err := r.Resolve(context.Background(), ts.URL+"/wrap1", "sess-1")
	require.NoError(t, err)
	require.Len(t, creatives, 1)
	// Wrapper impressions precede the inline ones.
	require.Equal(t, "http://beacons.example.com/wrapper-imp", creatives[0].ImpressionURLs[0])
	require.Len(t, creatives[0].ImpressionURLs, 4)
}

func TestResolveWrapperCycle(t *testing.T) {
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		// Strip query so the URL matches the visited set exactly.
		_, _ = fmt.Fprintf(w, `<VAST version="3.0"><Ad><Wrapper>
			<VASTAdTagURI><![CDATA[%s/loop2]]></VASTAdTagURI>
		</Wrapper></Ad></VAST>`, ts.URL)
	})
	mux.HandleFunc("/loop2", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintf(w, `<VAST version="3.0"><Ad><Wrapper>
			<VASTAdTagURI><![CDATA[%s/loop2]]></VASTAdTagURI>
		</Wrapper></Ad></VAST>`, ts.URL)
	})

	r := NewResolver()
	_, err := r.Resolve(context.Background(), ts.URL+"/loop", "sess-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestResolveWrapperDepthLimit(t *testing.T) {
	var hop atomic.Int64
	mux := http.NewServeMux()
	ts := httptest.NewServer(mux)
	defer ts.Close()

	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		n := hop.Add(1)
		_, _ = fmt.Fprintf(w, `<VAST version="3.0"><Ad><Wrapper>
			<VASTAdTagURI><![CDATA[%s/hop?n=%d]]></VASTAdTagURI>
		</Wrapper></Ad></VAST>`, ts.URL, n)
	})

	r := NewResolverWithClient(fetch.NewClient(fetch.WithMaxAttempts(1)), 3, time.Second)
	_, err := r.Resolve(context.Background(), ts.URL+"/hop", "sess-1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "depth")
}

func TestResolveEmptyAndErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<VAST version="3.0"></VAST>`))
	}))
	defer ts.Close()

	r := NewResolver()
	creatives, err := r.Resolve(context.Background(), ts.URL, "sess-1")
	require.NoError(t, err)
	require.Empty(t, creatives)
}

func TestResolveBadXML(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`this is not xml <`))
	}))
	defer ts.Close()

	r := NewResolver()
	_, err := r.Resolve(context.Background(), ts.URL, "sess-1")
	require.Error(t, err)
}
