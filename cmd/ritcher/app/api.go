// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"

	"github.com/ritcher-io/ritcher/pkg/session"
)

type SessionInfo struct {
	SessionID    string `json:"session_id" doc:"Opaque session identifier"`
	OriginURL    string `json:"origin_url" doc:"Origin manifest URL captured at creation"`
	CreatedAt    int64  `json:"created_at" doc:"Creation time in epoch seconds"`
	LastAccessed int64  `json:"last_accessed" doc:"Last access time in epoch seconds"`
}

type SessionListResponse struct {
	Body struct {
		Sessions []SessionInfo `json:"sessions"`
		Count    int           `json:"count" doc:"Number of live sessions"`
	}
}

type SessionDeleteResponse struct {
	Body SessionInfo
}

type ConfigResponse struct {
	Body struct {
		StitchingMode  string  `json:"stitching_mode"`
		AdProviderType string  `json:"ad_provider_type"`
		AdSegmentDurS  float64 `json:"ad_segment_duration"`
		SessionStore   string  `json:"session_store"`
		SessionTTLSecs int     `json:"session_ttl_secs"`
		RateLimitRPM   int     `json:"rate_limit_rpm"`
	}
}

func sessionInfo(s session.Session) SessionInfo {
	return SessionInfo{
		SessionID:    s.SessionID,
		OriginURL:    s.OriginURL,
		CreatedAt:    s.CreatedAt,
		LastAccessed: s.LastAccessed,
	}
}

func createListSessionsHdlr(s *Server) func(ctx context.Context, _ *struct{}) (*SessionListResponse, error) {
	return func(ctx context.Context, _ *struct{}) (*SessionListResponse, error) {
		sessions, err := s.store.List(ctx)
		if err != nil {
			return nil, huma.Error502BadGateway("session store unavailable")
		}
		resp := &SessionListResponse{}
		resp.Body.Sessions = make([]SessionInfo, 0, len(sessions))
		for _, sess := range sessions {
			resp.Body.Sessions = append(resp.Body.Sessions, sessionInfo(sess))
		}
		resp.Body.Count = len(resp.Body.Sessions)
		return resp, nil
	}
}

type sessionIDInput struct {
	Id string `path:"id" maxLength:"128" example:"abc123" doc:"Session ID"`
}

func createDeleteSessionHdlr(s *Server) func(ctx context.Context, input *sessionIDInput) (*SessionDeleteResponse, error) {
	return func(ctx context.Context, input *sessionIDInput) (*SessionDeleteResponse, error) {
		sess, found, err := s.store.Remove(ctx, input.Id)
		if err != nil {
			return nil, huma.Error502BadGateway("session store unavailable")
		}
		if !found {
			return nil, huma.Error404NotFound("session " + input.Id + " not found")
		}
		return &SessionDeleteResponse{Body: sessionInfo(sess)}, nil
	}
}

func createGetConfigHdlr(s *Server) func(ctx context.Context, _ *struct{}) (*ConfigResponse, error) {
	return func(ctx context.Context, _ *struct{}) (*ConfigResponse, error) {
		resp := &ConfigResponse{}
		resp.Body.StitchingMode = s.Cfg.StitchingMode
		resp.Body.AdProviderType = s.Cfg.AdProviderType
		resp.Body.AdSegmentDurS = s.Cfg.AdSegmentDurS
		resp.Body.SessionStore = s.Cfg.SessionStore
		resp.Body.SessionTTLSecs = s.Cfg.SessionTTLSecs
		resp.Body.RateLimitRPM = s.Cfg.RateLimitRPM
		return resp, nil
	}
}

func createRouteAPI(s *Server) func(r chi.Router) {
	return func(r chi.Router) {
		config := huma.DefaultConfig("Ritcher ops API", "1.0.0")
		config.Servers = []*huma.Server{
			{URL: "/api"},
		}
		config.Info.Description = `Operational API for inspecting and managing stitching sessions.`

		api := humachi.New(r, config)

		huma.Register(api, huma.Operation{
			OperationID: "list-sessions",
			Method:      http.MethodGet,
			Path:        "/sessions",
			Summary:     "List live stitching sessions",
			Tags:        []string{"sessions"},
			Errors:      []int{502},
		}, createListSessionsHdlr(s))

		huma.Register(api, huma.Operation{
			OperationID: "delete-session",
			Method:      http.MethodDelete,
			Path:        "/sessions/{id}",
			Summary:     "Delete a stitching session",
			Description: "Remove the session with the given ID. Its viewers fall back to a fresh session on the next request.",
			Tags:        []string{"sessions"},
			Errors:      []int{404, 502},
		}, createDeleteSessionHdlr(s))

		huma.Register(api, huma.Operation{
			OperationID: "get-config",
			Method:      http.MethodGet,
			Path:        "/config",
			Summary:     "Show the effective stitching configuration",
			Tags:        []string{"config"},
		}, createGetConfigHdlr(s))
	}
}
