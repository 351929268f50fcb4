// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// Asset list JSON uses the field names players expect for HLS interstitials.
type assetListEntry struct {
	URI             string  `json:"URI"`
	DurationSeconds float64 `json:"DURATION"`
}

type assetListResponse struct {
	Assets []assetListEntry `json:"ASSETS"`
}

// assetListHandlerFunc serves the SGAI asset list for one ad break.
func (s *Server) assetListHandlerFunc(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionID")

	breakDur := s.Cfg.AdSegmentDurS
	if durStr := r.URL.Query().Get("dur"); durStr != "" {
		if dur, err := strconv.ParseFloat(durStr, 64); err == nil && dur > 0 {
			breakDur = dur
		}
	}
	_ = s.store.Touch(r.Context(), sid)

	resp := assetListResponse{Assets: []assetListEntry{}}
	for _, c := range s.provider.AdCreatives(breakDur, sid) {
		resp.Assets = append(resp.Assets, assetListEntry{
			URI:             c.URI,
			DurationSeconds: c.DurationSeconds,
		})
	}
	s.jsonResponse(w, resp, http.StatusOK)
}
