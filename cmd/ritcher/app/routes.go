// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"context"

	"github.com/ritcher-io/ritcher/pkg/logging"
)

// Routes defines dispatches for all routes.
func (s *Server) Routes(ctx context.Context) error {
	for _, route := range logging.LogRoutes {
		s.Router.MethodFunc(route.Method, route.Path, route.Handler)
	}
	s.Router.MethodFunc("GET", "/", s.indexHandlerFunc)
	s.Router.MethodFunc("GET", "/health", s.healthHandlerFunc)
	s.Router.MethodFunc("GET", "/healthz", s.healthHandlerFunc)

	// Demo origin with synthetic SCTE-35 markers.
	s.Router.MethodFunc("GET", "/demo/playlist.m3u8", s.demoPlaylistHandlerFunc)
	s.Router.MethodFunc("GET", "/demo/manifest.mpd", s.demoManifestHandlerFunc)
	s.Router.MethodFunc("GET", "/demo/ll-hls/playlist.m3u8", s.demoLLHLSHandlerFunc)

	s.Router.Route("/api", createRouteAPI(s))

	// StitchRouter is mounted at /stitch.
	s.StitchRouter.MethodFunc("GET", "/{sessionID}/playlist.m3u8", s.playlistHandlerFunc)
	s.StitchRouter.MethodFunc("GET", "/{sessionID}/manifest.mpd", s.manifestHandlerFunc)
	s.StitchRouter.MethodFunc("GET", "/{sessionID}/segment/*", s.segmentHandlerFunc)
	s.StitchRouter.MethodFunc("GET", "/{sessionID}/ad/{adName}", s.adHandlerFunc)
	s.StitchRouter.MethodFunc("GET", "/{sessionID}/asset-list/{breakIndex}", s.assetListHandlerFunc)

	return nil
}
