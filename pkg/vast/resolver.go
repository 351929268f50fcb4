// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package vast

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ritcher-io/ritcher/pkg/fetch"
)

const (
	// DefaultMaxWrapperDepth bounds the wrapper chain even without a cycle.
	DefaultMaxWrapperDepth = 5
	// DefaultHopTimeout limits each single VAST fetch.
	DefaultHopTimeout = 3 * time.Second
	// DefaultWalkTimeout limits a complete wrapper resolution.
	DefaultWalkTimeout = 8 * time.Second
)

// VAST error codes fired through the Error beacon [ERRORCODE] macro.
const (
	ErrCodeXMLParse     = 100
	ErrCodeWrapperFetch = 301
	ErrCodeWrapperLimit = 302
	ErrCodeNoAds        = 303
	ErrCodeUndefined    = 900
)

// ResolvedCreative is one playable ad after wrapper resolution, with all
// beacons merged from every wrapper level above it.
type ResolvedCreative struct {
	URI             string
	DurationSeconds float64
	ImpressionURLs  []string
	TrackingEvents  []Tracking
	ErrorURL        string
}

// Resolver fetches a VAST endpoint and follows wrapper chains with depth
// and cycle limits.
type Resolver struct {
	client      *fetch.Client
	maxDepth    int
	walkTimeout time.Duration
}

// NewResolver returns a Resolver with the given hop timeout applied per
// fetch attempt.
func NewResolver() *Resolver {
	return &Resolver{
		client:      fetch.NewClient(fetch.WithMaxAttempts(1), fetch.WithTimeout(DefaultHopTimeout)),
		maxDepth:    DefaultMaxWrapperDepth,
		walkTimeout: DefaultWalkTimeout,
	}
}

// NewResolverWithClient is used in tests to control fetching.
func NewResolverWithClient(client *fetch.Client, maxDepth int, walkTimeout time.Duration) *Resolver {
	return &Resolver{client: client, maxDepth: maxDepth, walkTimeout: walkTimeout}
}

// Resolve issues the ad request for sessionID and returns the resolved
// creatives in document order. On a hard failure it fires the error beacons
// collected so far and returns an empty list together with the error.
func (r *Resolver) Resolve(ctx context.Context, endpoint, sessionID string) ([]ResolvedCreative, error) {
	ctx, cancel := context.WithTimeout(ctx, r.walkTimeout)
	defer cancel()

	reqURL, err := withSessionParam(endpoint, sessionID)
	if err != nil {
		return nil, err
	}

	walk := &wrapperWalk{
		resolver: r,
		visited:  map[string]struct{}{},
	}
	creatives, err := walk.fetchAndExtract(ctx, reqURL, 0, nil, nil, "")
	if err != nil {
		fireErrorBeacons(walk.errorURLs, errCodeFor(err))
		return nil, err
	}
	if len(creatives) == 0 {
		fireErrorBeacons(walk.errorURLs, ErrCodeNoAds)
	}
	return creatives, nil
}

func withSessionParam(endpoint, sessionID string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse vast endpoint: %w", err)
	}
	q := u.Query()
	q.Set("session", sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type wrapperWalk struct {
	resolver  *Resolver
	visited   map[string]struct{}
	errorURLs []string
}

type walkError struct {
	code int
	err  error
}

func (e *walkError) Error() string { return e.err.Error() }
func (e *walkError) Unwrap() error { return e.err }

func errCodeFor(err error) int {
	if we, ok := err.(*walkError); ok {
		return we.code
	}
	return ErrCodeUndefined
}

// fetchAndExtract downloads one VAST document and recurses into wrappers.
// impressions, tracking, and errorURL accumulate beacons from outer levels.
func (w *wrapperWalk) fetchAndExtract(ctx context.Context, vastURL string, depth int,
	impressions []string, tracking []Tracking, errorURL string) ([]ResolvedCreative, error) {

	if depth > w.resolver.maxDepth {
		return nil, &walkError{ErrCodeWrapperLimit, fmt.Errorf("wrapper depth %d exceeds limit", depth)}
	}
	if _, seen := w.visited[vastURL]; seen {
		return nil, &walkError{ErrCodeWrapperLimit, fmt.Errorf("wrapper cycle at %s", vastURL)}
	}
	w.visited[vastURL] = struct{}{}

	body, err := w.resolver.client.GetBody(ctx, vastURL)
	if err != nil {
		return nil, &walkError{ErrCodeWrapperFetch, fmt.Errorf("fetch vast: %w", err)}
	}
	doc, err := Parse(body)
	if err != nil {
		return nil, &walkError{ErrCodeXMLParse, err}
	}

	var out []ResolvedCreative
	for _, ad := range doc.Ads {
		switch {
		case ad.InLine != nil:
			out = append(out, w.extractInLine(ad.InLine, impressions, tracking, errorURL)...)
		case ad.Wrapper != nil:
			wrapped, err := w.followWrapper(ctx, ad.Wrapper, depth, impressions, tracking, errorURL)
			if err != nil {
				return nil, err
			}
			out = append(out, wrapped...)
		}
	}
	return out, nil
}

func (w *wrapperWalk) extractInLine(in *InLine, impressions []string, tracking []Tracking,
	errorURL string) []ResolvedCreative {

	localImpressions := appendURLs(impressions, in.Impressions)
	localErrorURL := errorURL
	if u := in.Error.Trimmed(); u != "" {
		localErrorURL = u
		w.errorURLs = append(w.errorURLs, u)
	}

	var out []ResolvedCreative
	for _, creative := range in.Creatives {
		if creative.Linear == nil {
			continue
		}
		mf, ok := pickMediaFile(creative.Linear.MediaFiles)
		if !ok {
			continue
		}
		dur, err := ParseDuration(creative.Linear.Duration)
		if err != nil {
			slog.Debug("skipping creative with bad duration", "err", err)
			continue
		}
		out = append(out, ResolvedCreative{
			URI:             strings.TrimSpace(mf.URL),
			DurationSeconds: dur,
			ImpressionURLs:  localImpressions,
			TrackingEvents:  trimTracking(append(append([]Tracking{}, tracking...), creative.Linear.TrackingEvents...)),
			ErrorURL:        localErrorURL,
		})
	}
	return out
}

func (w *wrapperWalk) followWrapper(ctx context.Context, wr *Wrapper, depth int,
	impressions []string, tracking []Tracking, errorURL string) ([]ResolvedCreative, error) {

	next := wr.VASTAdTagURI.Trimmed()
	if next == "" {
		return nil, &walkError{ErrCodeUndefined, fmt.Errorf("wrapper without VASTAdTagURI")}
	}
	mergedImpressions := appendURLs(impressions, wr.Impressions)
	mergedTracking := append(append([]Tracking{}, tracking...), wrapperTracking(wr)...)
	if u := wr.Error.Trimmed(); u != "" {
		errorURL = u
		w.errorURLs = append(w.errorURLs, u)
	}
	return w.fetchAndExtract(ctx, next, depth+1, mergedImpressions, mergedTracking, errorURL)
}

func wrapperTracking(wr *Wrapper) []Tracking {
	var out []Tracking
	for _, c := range wr.Creatives {
		if c.Linear != nil {
			out = append(out, c.Linear.TrackingEvents...)
		}
	}
	return out
}

func appendURLs(base []string, urls []CDataURL) []string {
	out := append([]string{}, base...)
	for _, u := range urls {
		if t := u.Trimmed(); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func trimTracking(events []Tracking) []Tracking {
	out := make([]Tracking, 0, len(events))
	for _, e := range events {
		e.URL = strings.TrimSpace(e.URL)
		if e.URL != "" {
			out = append(out, e)
		}
	}
	return out
}

// fireErrorBeacons substitutes the [ERRORCODE] macro and fires each beacon
// in a detached goroutine so the serving path is never delayed.
func fireErrorBeacons(urls []string, code int) {
	for _, raw := range urls {
		beaconURL := strings.ReplaceAll(raw, "[ERRORCODE]", fmt.Sprintf("%d", code))
		go func(u string) {
			client := http.Client{Timeout: 2 * time.Second}
			resp, err := client.Get(u)
			if err != nil {
				slog.Debug("error beacon failed", "url", u, "err", err)
				return
			}
			_ = resp.Body.Close()
		}(beaconURL)
	}
}
