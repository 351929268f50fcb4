// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package ads

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// quartileTriggers maps VAST progress event labels to their normalized
// playback position.
var quartileTriggers = map[string]float64{
	"start":         0.0,
	"firstQuartile": 0.25,
	"midpoint":      0.5,
	"thirdQuartile": 0.75,
	"complete":      1.0,
}

// EventsForSegment returns the tracking events that fire while segment
// SegmentIndex out of TotalSegments plays. An event fires when its trigger
// position falls in [i/n, (i+1)/n). The last segment also fires events at
// position 1.0 so that complete is never lost.
func EventsForSegment(info *AdTrackingInfo) []TrackingEvent {
	if info == nil || info.TotalSegments <= 0 {
		return nil
	}
	n := float64(info.TotalSegments)
	lo := float64(info.SegmentIndex) / n
	hi := float64(info.SegmentIndex+1) / n
	last := info.SegmentIndex == info.TotalSegments-1

	var out []TrackingEvent
	for _, e := range info.TrackingEvents {
		trigger, known := quartileTriggers[e.Event]
		if !known {
			continue
		}
		if (trigger >= lo && trigger < hi) || (last && trigger == 1.0) {
			out = append(out, e)
		}
	}
	return out
}

// Firer sends tracking beacons as fire-and-forget GETs detached from the
// request that triggered them.
type Firer struct {
	client *http.Client
}

// NewFirer returns a Firer with the given beacon timeout.
func NewFirer(timeout time.Duration) *Firer {
	return &Firer{client: &http.Client{Timeout: timeout}}
}

func (f *Firer) fire(url, kind string) {
	go func() {
		resp, err := f.client.Get(url)
		if err != nil {
			slog.Debug("tracking beacon failed", "kind", kind, "url", url, "err", err)
			return
		}
		_ = resp.Body.Close()
		slog.Debug("tracking beacon fired", "kind", kind, "url", url)
	}()
}

// FireImpressions fires all impression beacons.
func (f *Firer) FireImpressions(urls []string) {
	for _, u := range urls {
		f.fire(u, "impression")
	}
}

// FireEvents fires the given progress beacons.
func (f *Firer) FireEvents(events []TrackingEvent) {
	for _, e := range events {
		f.fire(e.URL, e.Event)
	}
}

// FireError fires an error beacon with the VAST [ERRORCODE] macro replaced.
func (f *Firer) FireError(errorURL string, code int) {
	if errorURL == "" {
		return
	}
	f.fire(strings.ReplaceAll(errorURL, "[ERRORCODE]", fmt.Sprintf("%d", code)), "error")
}
