// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"errors"
	"net/http"
)

// Stitching error taxonomy. Handlers wrap the underlying cause and the
// mapping to an HTTP status happens in one place.
var (
	errInvalidOrigin      = errors.New("invalid origin URL")
	errOriginFetch        = errors.New("origin fetch failed")
	errPlaylistParse      = errors.New("playlist parse failed")
	errPlaylistModify     = errors.New("playlist rewrite failed")
	errAdResolution       = errors.New("ad resolution failed")
	errSessionUnavailable = errors.New("session store unavailable")
	errNotFound           = errors.New("not found")
)

// statusFor maps a wrapped stitching error to its HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalidOrigin):
		return http.StatusBadRequest
	case errors.Is(err, errOriginFetch), errors.Is(err, errPlaylistParse),
		errors.Is(err, errAdResolution):
		return http.StatusBadGateway
	case errors.Is(err, errNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
