// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/pkg/hls"
	"github.com/ritcher-io/ritcher/pkg/safeurl"
)

// playlistHandlerFunc serves a stitched HLS media playlist. The session is
// created on the first request and keeps its origin URL for its lifetime.
func (s *Server) playlistHandlerFunc(w http.ResponseWriter, r *http.Request) {
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

	out, err := hls.Rewrite(body, hls.RewriteConfig{
		BaseURL:    s.baseURL(r),
		SessionID:  sid,
		OriginBase: manifestBase(sess.OriginURL),
		Mode:       s.stitchingMode(r),
		Provider:   s.provider,
	})
	if err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errPlaylistParse, err))
		return
	}

	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(out))
}

// resolveOrigin returns the origin manifest URL for a request. A user
// supplied ?origin= override passes the SSRF guard; the configured origin is
// trusted as is.
func (s *Server) resolveOrigin(r *http.Request) (string, error) {
	if origin := r.URL.Query().Get("origin"); origin != "" {
		if err := safeurl.Validate(origin); err != nil {
			return "", fmt.Errorf("%w: %v", errInvalidOrigin, err)
		}
		return origin, nil
	}
	if s.Cfg.OriginURL == "" {
		return "", fmt.Errorf("%w: no origin configured", errInvalidOrigin)
	}
	return s.Cfg.OriginURL, nil
}

// stitchingMode returns the configured mode with an optional per-request
// ?mode= override.
func (s *Server) stitchingMode(r *http.Request) hls.Mode {
	switch r.URL.Query().Get("mode") {
	case "ssai":
		return hls.ModeSSAI
	case "sgai":
		return hls.ModeSGAI
	}
	if s.Cfg.StitchingMode == "sgai" {
		return hls.ModeSGAI
	}
	return hls.ModeSSAI
}

// fetchManifest returns the manifest body for url, going through the short
// TTL cache so that a request herd at the live edge coalesces.
func (s *Server) fetchManifest(ctx context.Context, url string) (string, error) {
	if body, ok := s.manifests.Get(url); ok {
		return body, nil
	}
	raw, err := s.fetcher.GetBody(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errOriginFetch, err)
	}
	body := string(raw)
	s.manifests.Insert(url, body)
	return body, nil
}

// manifestBase strips the manifest file name, leaving the directory against
// which relative segment URIs resolve.
func manifestBase(manifestURL string) string {
	if q := strings.IndexByte(manifestURL, '?'); q >= 0 {
		manifestURL = manifestURL[:q]
	}
	if idx := strings.LastIndexByte(manifestURL, '/'); idx > len("https://") {
		return manifestURL[:idx]
	}
	return manifestURL
}
