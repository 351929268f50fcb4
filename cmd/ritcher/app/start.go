// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritcher-io/ritcher/internal"
	"github.com/ritcher-io/ritcher/pkg/ads"
	"github.com/ritcher-io/ritcher/pkg/fetch"
	"github.com/ritcher-io/ritcher/pkg/logging"
	"github.com/ritcher-io/ritcher/pkg/session"
)

const (
	sessionCleanupInterval  = 60 * time.Second
	providerCleanupInterval = 60 * time.Second
	rateWindow              = 60 * time.Second
	beaconTimeout           = 5 * time.Second
)

// SetupServer sets up router, middleware, and server, given koanf configuration.
func SetupServer(ctx context.Context, cfg *ServerConfig) (*Server, error) {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logging.SlogMiddleWare(slog.Default()))
	r.Use(middleware.Recoverer)
	r.Use(addVersionAndCORSHeaders)
	var reqLimiter *IPRequestLimiter
	if cfg.RateLimitRPM > 0 {
		reqLimiter = NewIPRequestLimiter(cfg.RateLimitRPM, rateWindow)
		r.Use(NewLimiterMiddleware("Ritcher-Requests", reqLimiter))
	}
	r.Use(NewPrometheusMiddleware())

	// Set a timeout value on the request context (ctx), that will signal
	// through ctx.Done() that the request has timed out and further
	// processing should be stopped.
	if cfg.TimeoutS > 0 {
		r.Use(middleware.Timeout(time.Duration(cfg.TimeoutS) * time.Second))
	}

	r.Mount("/metrics", promhttp.Handler())

	st := chi.NewRouter()
	r.Mount("/stitch", st)

	store, err := newSessionStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	if mem, ok := store.(*session.MemoryStore); ok {
		mem.StartCleanupLoop(ctx, sessionCleanupInterval)
	}

	provider := newAdProvider(cfg)

	server := Server{
		Router:       r,
		StitchRouter: st,
		Cfg:          cfg,
		store:        store,
		provider:     provider,
		fetcher:      fetch.NewClient(),
		manifests:    fetch.NewManifestCache(fetch.DefaultManifestTTL),
		firer:        ads.NewFirer(beaconTimeout),
		reqLimiter:   reqLimiter,
		startTime:    time.Now(),
	}

	if err := server.Routes(ctx); err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	go server.cleanupLoop(ctx)

	slog.Info("ritcher starting", "version", internal.GetVersion(), "port", cfg.Port,
		"mode", cfg.StitchingMode, "provider", cfg.AdProviderType, "store", cfg.SessionStore)

	return &server, nil
}

// cleanupLoop periodically evicts stale provider and limiter state.
func (s *Server) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(providerCleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.provider.CleanupCache()
			if s.reqLimiter != nil {
				s.reqLimiter.Cleanup(now)
			}
		}
	}
}

func newSessionStore(cfg *ServerConfig) (session.Store, error) {
	ttl := time.Duration(cfg.SessionTTLSecs) * time.Second
	switch cfg.SessionStore {
	case "valkey", "redis":
		return session.NewValkeyStore(cfg.ValkeyURL, ttl)
	default:
		return session.NewMemoryStore(ttl), nil
	}
}

// newAdProvider picks the configured provider variant. Auto selects VAST
// when an endpoint is configured and the static/demo chain otherwise.
func newAdProvider(cfg *ServerConfig) ads.Provider {
	providerType := cfg.AdProviderType
	if providerType == "auto" {
		if cfg.VASTEndpoint != "" {
			providerType = "vast"
		} else {
			providerType = "static"
		}
	}
	switch providerType {
	case "vast":
		return ads.NewVASTProvider(cfg.VASTEndpoint, cfg.SlateURL, cfg.SlateSegDurS)
	case "demo":
		return ads.NewDemoProvider(cfg.AdSourceURL, cfg.AdSegmentDurS)
	default:
		if cfg.AdSourceURL == "" {
			// Without an ad source the multi-creative demo provider still
			// yields deterministic ad media for local runs.
			return ads.NewDemoProvider(defaultAdSourceURL, cfg.AdSegmentDurS)
		}
		return ads.NewStaticProvider(cfg.AdSourceURL, cfg.AdSegmentDurS)
	}
}
