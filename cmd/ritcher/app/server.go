// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/internal"
	"github.com/ritcher-io/ritcher/pkg/ads"
	"github.com/ritcher-io/ritcher/pkg/fetch"
	"github.com/ritcher-io/ritcher/pkg/session"
)

type Server struct {
	Router       *chi.Mux
	StitchRouter *chi.Mux
	Cfg          *ServerConfig
	store        session.Store
	provider     ads.Provider
	fetcher      *fetch.Client
	manifests    *fetch.ManifestCache
	firer        *ads.Firer
	reqLimiter   *IPRequestLimiter
	startTime    time.Time
}

type healthResponse struct {
	Status         string  `json:"status"`
	Version        string  `json:"version"`
	ActiveSessions int     `json:"active_sessions"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

func (s *Server) indexHandlerFunc(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Ritcher stitching proxy is running\n"))
}

func (s *Server) healthHandlerFunc(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		slog.Error("session count failed", "err", err)
		count = 0
	}
	s.jsonResponse(w, healthResponse{
		Status:         "ok",
		Version:        internal.ShortVersion(),
		ActiveSessions: count,
		UptimeSeconds:  time.Since(s.startTime).Seconds(),
	}, http.StatusOK)
}

// jsonResponse marshals message and give response with code
//
// Don't add any more content after this since Content-Length is set
func (s *Server) jsonResponse(w http.ResponseWriter, message any, code int) {
	raw, err := json.Marshal(message)
	if err != nil {
		http.Error(w, fmt.Sprintf("{message: \"%s\"}", err), http.StatusInternalServerError)
		slog.Error(err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(code)
	_, err = w.Write(raw)
	if err != nil {
		slog.Error("could not write HTTP response", "err", err)
	}
}

// errorResponse logs the error and writes a terse text body with the status
// from the error taxonomy.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	slog.Error("request failed", "url", r.URL.Path, "status", code, "err", err)
	http.Error(w, err.Error(), code)
}

// baseURL returns the externally visible base URL for links in rewritten
// manifests.
func (s *Server) baseURL(r *http.Request) string {
	if s.Cfg.BaseURL != "" {
		return s.Cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
