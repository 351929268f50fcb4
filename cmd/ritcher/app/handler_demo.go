// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Eyevinn/dash-mpd/mpd"
	"github.com/beevik/etree"

	"github.com/ritcher-io/ritcher/pkg/scte35"
)

// Demo origin constants. The media points at a public test stream so that a
// local run plays real video without any origin setup.
const (
	muxBase         = "https://test-streams.mux.dev/x36xhzz/url_0"
	demoSegmentName = "193039199_mp4_h264_aac_hd_7.ts"
	demoStartIndex  = 462
	demoSegDurS     = 10
	demoBreakDurS   = 10
	demoPDT         = "2026-01-01T00:00:00.000Z"

	maxDemoBreaks = 5

	defaultAdSourceURL = "https://ads.ritcher.io/demo"
)

// demoBreakCount reads ?breaks= clamped to 1..5.
func demoBreakCount(r *http.Request) int {
	breaks := 1
	if v, err := strconv.Atoi(r.URL.Query().Get("breaks")); err == nil {
		breaks = v
	}
	if breaks < 1 {
		breaks = 1
	}
	if breaks > maxDemoBreaks {
		breaks = maxDemoBreaks
	}
	return breaks
}

// demoIntervalS reads ?interval= snapped to the segment grid: at most 12
// becomes 10, 13 through 17 becomes 15, anything larger becomes 20.
func demoIntervalS(r *http.Request) int {
	interval := 15
	if v, err := strconv.Atoi(r.URL.Query().Get("interval")); err == nil {
		interval = v
	}
	switch {
	case interval <= 12:
		return 10
	case interval <= 17:
		return 15
	default:
		return 20
	}
}

func (s *Server) demoPlaylistHandlerFunc(w http.ResponseWriter, r *http.Request) {
	out := demoHLSPlaylist(demoBreakCount(r), demoIntervalS(r), false)
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	_, _ = w.Write([]byte(out))
}

func (s *Server) demoLLHLSHandlerFunc(w http.ResponseWriter, r *http.Request) {
	out := demoHLSPlaylist(demoBreakCount(r), demoIntervalS(r), true)
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	_, _ = w.Write([]byte(out))
}

func (s *Server) demoManifestHandlerFunc(w http.ResponseWriter, r *http.Request) {
	out, err := demoMPD(demoBreakCount(r), demoIntervalS(r))
	if err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errPlaylistModify, err))
		return
	}
	// The typed MPD parser catches malformed fixture output before a
	// player sees it.
	if _, err := mpd.ReadFromString(out); err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errPlaylistModify, err))
		return
	}
	w.Header().Set("Content-Type", "application/dash+xml")
	_, _ = w.Write([]byte(out))
}

func demoSegmentURI(idx int) string {
	return fmt.Sprintf("url_%d/%s", idx, demoSegmentName)
}

// demoHLSPlaylist renders a playlist with SCTE-35 cue markers every
// intervalS seconds. Each break is one placeholder segment of 10 s. With
// lowLatency the low latency tags and a partial tail are added.
func demoHLSPlaylist(breaks, intervalS int, lowLatency bool) string {
	contentPerBreak := intervalS / demoSegDurS
	if contentPerBreak < 1 {
		contentPerBreak = 1
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	if lowLatency {
		b.WriteString("#EXT-X-VERSION:9\n")
	} else {
		b.WriteString("#EXT-X-VERSION:3\n")
	}
	b.WriteString("#EXT-X-TARGETDURATION:10\n")
	if lowLatency {
		b.WriteString("#EXT-X-SERVER-CONTROL:CAN-BLOCK-RELOAD=YES,PART-HOLD-BACK=3.0\n")
		b.WriteString("#EXT-X-PART-INF:PART-TARGET=1.0\n")
	}
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")

	idx := demoStartIndex
	writeSeg := func() {
		if idx == demoStartIndex {
			b.WriteString("#EXT-X-PROGRAM-DATE-TIME:" + demoPDT + "\n")
		}
		fmt.Fprintf(&b, "#EXTINF:10.0,\n%s\n", demoSegmentURI(idx))
		idx++
	}

	for n := 0; n < breaks; n++ {
		for i := 0; i < contentPerBreak; i++ {
			writeSeg()
		}
		fmt.Fprintf(&b, "#EXT-X-CUE-OUT:%d\n", demoBreakDurS)
		b.WriteString("#EXT-X-CUE-OUT-CONT:ElapsedTime=0,Duration=10\n")
		writeSeg()
		b.WriteString("#EXT-X-CUE-IN\n")
	}
	for i := 0; i < 3; i++ {
		writeSeg()
	}

	if lowLatency {
		fmt.Fprintf(&b, "#EXT-X-PART:DURATION=1.0,URI=\"%s\"\n", demoSegmentURI(idx))
		fmt.Fprintf(&b, "#EXT-X-PRELOAD-HINT:TYPE=PART,URI=\"%s\"\n", demoSegmentURI(idx+1))
		fmt.Fprintf(&b, "#EXT-X-RENDITION-REPORT:URI=\"playlist.m3u8\",LAST-MSN=%d\n", idx-1)
	} else {
		b.WriteString("#EXT-X-ENDLIST\n")
	}
	return b.String()
}

// demoMPD renders a static MPD with one content Period per ad break, each
// carrying an SCTE-35 EventStream with a binary splice_insert payload, plus
// a trailing Period without markers.
func demoMPD(breaks, intervalS int) (string, error) {
	contentPerBreak := intervalS / demoSegDurS
	if contentPerBreak < 1 {
		contentPerBreak = 1
	}
	periodDurS := intervalS + demoBreakDurS
	totalDurS := breaks*periodDurS + 30

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement("MPD")
	root.CreateAttr("xmlns", "urn:mpeg:dash:schema:mpd:2011")
	root.CreateAttr("profiles", "urn:mpeg:dash:profile:isoff-live:2011")
	root.CreateAttr("type", "static")
	root.CreateAttr("minBufferTime", "PT2S")
	root.CreateAttr("mediaPresentationDuration", fmt.Sprintf("PT%dS", totalDurS))

	segIdx := demoStartIndex
	for n := 0; n < breaks; n++ {
		period := root.CreateElement("Period")
		period.CreateAttr("id", fmt.Sprintf("content-%d", n))
		period.CreateAttr("duration", fmt.Sprintf("PT%dS", periodDurS))
		period.CreateElement("BaseURL").SetText(muxBase + "/")

		es := period.CreateElement("EventStream")
		es.CreateAttr("schemeIdUri", scte35.SchemeIDURI)
		es.CreateAttr("timescale", "1")
		event := es.CreateElement("Event")
		event.CreateAttr("id", fmt.Sprintf("ad-%d", n))
		event.CreateAttr("presentationTime", strconv.Itoa(intervalS))
		event.CreateAttr("duration", strconv.Itoa(demoBreakDurS))
		event.SetText(scte35.SpliceOutPayload(uint32(n+1), float64(intervalS), demoBreakDurS))

		addDemoAdaptationSets(period, segIdx)
		// Content segments plus the placeholder covered by the break.
		segIdx += contentPerBreak + 1
	}

	trailer := root.CreateElement("Period")
	trailer.CreateAttr("id", fmt.Sprintf("content-%d", breaks))
	trailer.CreateAttr("duration", "PT30S")
	trailer.CreateElement("BaseURL").SetText(muxBase + "/")
	addDemoAdaptationSets(trailer, segIdx)

	doc.Indent(2)
	return doc.WriteToString()
}

func addDemoAdaptationSets(period *etree.Element, startNumber int) {
	video := period.CreateElement("AdaptationSet")
	video.CreateAttr("contentType", "video")
	video.CreateAttr("mimeType", "video/MP2T")
	video.CreateAttr("segmentAlignment", "true")
	vst := video.CreateElement("SegmentTemplate")
	vst.CreateAttr("media", "url_$Number$/"+demoSegmentName)
	vst.CreateAttr("timescale", "1")
	vst.CreateAttr("duration", strconv.Itoa(demoSegDurS))
	vst.CreateAttr("startNumber", strconv.Itoa(startNumber))
	vrep := video.CreateElement("Representation")
	vrep.CreateAttr("id", "video-1")
	vrep.CreateAttr("codecs", "avc1.64001f")
	vrep.CreateAttr("bandwidth", "800000")

	audio := period.CreateElement("AdaptationSet")
	audio.CreateAttr("contentType", "audio")
	audio.CreateAttr("mimeType", "video/MP2T")
	ast := audio.CreateElement("SegmentTemplate")
	ast.CreateAttr("media", "url_$Number$/"+demoSegmentName)
	ast.CreateAttr("timescale", "1")
	ast.CreateAttr("duration", strconv.Itoa(demoSegDurS))
	ast.CreateAttr("startNumber", strconv.Itoa(startNumber))
	arep := audio.CreateElement("Representation")
	arep.CreateAttr("id", "audio-1")
	arep.CreateAttr("codecs", "mp4a.40.2")
	arep.CreateAttr("bandwidth", "128000")
}
