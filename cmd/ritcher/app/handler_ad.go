// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/pkg/ads"
)

// vastErrLinear is the VAST error code for a failing linear creative fetch.
const vastErrLinear = 400

// adHandlerFunc proxies one ad segment and fires the beacons that belong to
// it. Impressions fire only for the first segment of a creative.
func (s *Server) adHandlerFunc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := chi.URLParam(r, "sessionID")
	adName := chi.URLParam(r, "adName")

	upstream, tracking, ok := s.provider.ResolveSegmentWithTracking(adName, sid)
	if !ok {
		s.errorResponse(w, r, fmt.Errorf("%w: ad %s", errNotFound, adName))
		return
	}
	if tracking != nil {
		if tracking.SegmentIndex == 0 {
			s.firer.FireImpressions(tracking.ImpressionURLs)
		}
		s.firer.FireEvents(ads.EventsForSegment(tracking))
	}
	_ = s.store.Touch(ctx, sid)

	resp, err := s.fetcher.Get(ctx, upstream)
	if err != nil {
		if tracking != nil {
			s.firer.FireError(tracking.ErrorURL, vastErrLinear)
		}
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errAdResolution, err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/MP2T"
	}
	w.Header().Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		w.Header().Set("Content-Length", cl)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Debug("ad segment copy aborted", "ad", adName, "err", err)
	}
}
