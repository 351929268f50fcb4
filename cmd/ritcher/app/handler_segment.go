// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/pkg/safeurl"
)

// segmentHandlerFunc proxies a content segment from the origin. The origin
// directory comes from the ?origin= query written during the rewrite, with
// the session origin as fallback for manifests that resolve against a
// rewritten BaseURL.
func (s *Server) segmentHandlerFunc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := chi.URLParam(r, "sessionID")
	segmentPath := chi.URLParam(r, "*")
	if segmentPath == "" {
		s.errorResponse(w, r, fmt.Errorf("%w: empty segment path", errNotFound))
		return
	}

	originBase := r.URL.Query().Get("origin")
	if originBase != "" {
		if err := safeurl.Validate(originBase); err != nil {
			s.errorResponse(w, r, fmt.Errorf("%w: %v", errInvalidOrigin, err))
			return
		}
	} else {
		sess, found, err := s.store.Get(ctx, sid)
		if err != nil {
			s.errorResponse(w, r, fmt.Errorf("%w: %v", errSessionUnavailable, err))
			return
		}
		if !found {
			s.errorResponse(w, r, fmt.Errorf("%w: session %s", errNotFound, sid))
			return
		}
		originBase = manifestBase(sess.OriginURL)
	}
	_ = s.store.Touch(ctx, sid)

	upstream := strings.TrimSuffix(originBase, "/") + "/" + segmentPath
	resp, err := s.fetcher.Get(ctx, upstream)
	if err != nil {
		s.errorResponse(w, r, fmt.Errorf("%w: %v", errOriginFetch, err))
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
		slog.Debug("segment copy aborted", "path", segmentPath, "err", err)
	}
}
