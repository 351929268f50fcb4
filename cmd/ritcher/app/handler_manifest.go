// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/pkg/dash"
	"github.com/ritcher-io/ritcher/pkg/hls"
)

// manifestHandlerFunc serves a stitched DASH MPD.
func (s *Server) manifestHandlerFunc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := chi.URLParam(r, "sessionID")

	originURL, err := s.resolveOrigin(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	sess, err := s.store.GetOrCreate(ctx, sid, originURL)
	if err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errSessionUnavailable, err))
		return
	}
	_ = s.store.Touch(ctx, sid)

	body, err := s.fetchManifest(ctx, sess.OriginURL)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	out, err := dash.Rewrite([]byte(body), dash.RewriteConfig{
		BaseURL:           s.baseURL(r),
		SessionID:         sid,
		OriginBase:        manifestBase(sess.OriginURL),
		SSAI:              s.stitchingMode(r) == hls.ModeSSAI,
		Provider:          s.provider,
		AdSegmentDuration: s.Cfg.AdSegmentDurS,
	})
	if err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errPlaylistParse, err))
		return
	}

	w.Header().Set("Content-Type", "application/dash+xml")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(out))
}
