// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package dash detects SCTE-35 ad signals in MPD manifests and rewrites
// them for server-side or server-guided ad insertion. The manifest is
// manipulated as an XML tree so that elements and attributes the rewriter
// does not know about survive untouched.
package dash

import (
	"fmt"
	"math"
	"strconv"

	"github.com/beevik/etree"

	"github.com/ritcher-io/ritcher/pkg/ads"
)

// CallbackScheme identifies the SGAI event callback stream.
const CallbackScheme = "urn:mpeg:dash:event:callback:2015"

// scte35Schemes are the EventStream schemes that signal ad breaks.
var scte35Schemes = map[string]struct{}{
	"urn:scte:scte35:2013:xml":     {},
	"urn:scte:scte35:2013:bin":     {},
	"urn:scte:scte35:2014:xml+bin": {},
}

// AdBreak is one SCTE-35 Event in period terms.
type AdBreak struct {
	PeriodIndex             int
	PresentationTimeSeconds float64
	DurationSeconds         float64
	Scheme                  string
}

// RewriteConfig is the per-request context for an MPD rewrite.
type RewriteConfig struct {
	BaseURL    string // proxy base URL, no trailing slash
	SessionID  string
	OriginBase string // origin manifest URL stripped to its directory
	SSAI       bool
	Provider   ads.Provider
	// AdSegmentDuration is the SegmentTemplate duration for spliced-in
	// ad periods.
	AdSegmentDuration float64
}

// Rewrite parses the MPD, detects ad breaks, and applies the configured
// insertion mode. Content period BaseURLs are pointed at the proxy.
func Rewrite(content []byte, cfg RewriteConfig) (string, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return "", fmt.Errorf("parse mpd: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "MPD" {
		return "", fmt.Errorf("not an MPD document")
	}

	breaks := detectBreaks(root)

	if cfg.SSAI {
		insertAdPeriods(root, breaks, cfg)
	} else {
		injectCallbackStreams(root, breaks, cfg)
	}
	stripSCTE35Streams(root)
	rewriteBaseURLs(root, cfg)

	doc.Indent(2)
	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("serialize mpd: %w", err)
	}
	return out, nil
}

// DetectBreaks parses content and returns the SCTE-35 signaled breaks.
func DetectBreaks(content []byte) ([]AdBreak, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(content); err != nil {
		return nil, fmt.Errorf("parse mpd: %w", err)
	}
	root := doc.Root()
	if root == nil || root.Tag != "MPD" {
		return nil, fmt.Errorf("not an MPD document")
	}
	return detectBreaks(root), nil
}

// detectBreaks walks every Period's EventStreams and converts SCTE-35
// Events to seconds using the stream timescale.
func detectBreaks(root *etree.Element) []AdBreak {
	var breaks []AdBreak
	for periodIdx, period := range root.SelectElements("Period") {
		for _, es := range period.SelectElements("EventStream") {
			scheme := es.SelectAttrValue("schemeIdUri", "")
			if _, ok := scte35Schemes[scheme]; !ok {
				continue
			}
			timescale := attrFloat(es, "timescale", 1)
			if timescale <= 0 {
				timescale = 1
			}
			for _, event := range es.SelectElements("Event") {
				breaks = append(breaks, AdBreak{
					PeriodIndex:             periodIdx,
					PresentationTimeSeconds: attrFloat(event, "presentationTime", 0) / timescale,
					DurationSeconds:         attrFloat(event, "duration", 0) / timescale,
					Scheme:                  scheme,
				})
			}
		}
	}
	return breaks
}

func attrFloat(el *etree.Element, name string, def float64) float64 {
	val := el.SelectAttrValue(name, "")
	if val == "" {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return def
	}
	return f
}

// insertAdPeriods splices one ad Period directly after each break's host
// Period. Breaks are applied in reverse so earlier insertions do not shift
// the host indices.
func insertAdPeriods(root *etree.Element, breaks []AdBreak, cfg RewriteConfig) {
	periods := root.SelectElements("Period")
	for b := len(breaks) - 1; b >= 0; b-- {
		br := breaks[b]
		if br.PeriodIndex < 0 || br.PeriodIndex >= len(periods) {
			continue
		}
		host := periods[br.PeriodIndex]
		adPeriod := buildAdPeriod(b, br, cfg)
		root.InsertChildAt(host.Index()+1, adPeriod)
	}
}

// buildAdPeriod creates the spliced-in Period for break b. Its segments are
// served through the ad proxy route so the player never reaches the ad
// server directly.
func buildAdPeriod(b int, br AdBreak, cfg RewriteConfig) *etree.Element {
	segDur := cfg.AdSegmentDuration
	if segDur <= 0 {
		segDur = br.DurationSeconds
	}

	period := etree.NewElement("Period")
	period.CreateAttr("id", fmt.Sprintf("ad-%d", b))
	period.CreateAttr("duration", xsDuration(br.DurationSeconds))

	baseURL := period.CreateElement("BaseURL")
	baseURL.SetText(fmt.Sprintf("%s/stitch/%s/ad/", cfg.BaseURL, cfg.SessionID))

	as := period.CreateElement("AdaptationSet")
	as.CreateAttr("contentType", "video")
	as.CreateAttr("mimeType", "video/MP2T")

	st := as.CreateElement("SegmentTemplate")
	st.CreateAttr("media", fmt.Sprintf("break-%d-seg-$Number$.ts", b))
	st.CreateAttr("timescale", "1")
	st.CreateAttr("duration", strconv.Itoa(int(math.Round(segDur))))
	st.CreateAttr("startNumber", "0")

	return period
}

// injectCallbackStreams adds one callback EventStream per Period holding
// breaks, with one Event per break pointing at the asset-list endpoint.
func injectCallbackStreams(root *etree.Element, breaks []AdBreak, cfg RewriteConfig) {
	periods := root.SelectElements("Period")
	byPeriod := map[int][]int{}
	for b, br := range breaks {
		byPeriod[br.PeriodIndex] = append(byPeriod[br.PeriodIndex], b)
	}
	for periodIdx, breakIdxs := range byPeriod {
		if periodIdx < 0 || periodIdx >= len(periods) {
			continue
		}
		es := etree.NewElement("EventStream")
		es.CreateAttr("schemeIdUri", CallbackScheme)
		es.CreateAttr("timescale", "1")
		for _, b := range breakIdxs {
			br := breaks[b]
			event := es.CreateElement("Event")
			event.CreateAttr("id", fmt.Sprintf("ad-break-%d", b))
			event.CreateAttr("presentationTime", strconv.FormatInt(int64(math.Round(br.PresentationTimeSeconds)), 10))
			event.CreateAttr("duration", strconv.FormatInt(int64(math.Round(br.DurationSeconds)), 10))
			event.SetText(assetListURL(cfg, b, br.DurationSeconds))
		}
		period := periods[periodIdx]
		if firstAS := period.SelectElement("AdaptationSet"); firstAS != nil {
			period.InsertChildAt(firstAS.Index(), es)
		} else {
			period.AddChild(es)
		}
	}
}

func assetListURL(cfg RewriteConfig, b int, duration float64) string {
	return fmt.Sprintf("%s/stitch/%s/asset-list/%d?dur=%d",
		cfg.BaseURL, cfg.SessionID, b, int64(math.Round(duration)))
}

// stripSCTE35Streams removes every SCTE-35 EventStream so the rewritten
// manifest does not double-signal the breaks.
func stripSCTE35Streams(root *etree.Element) {
	for _, period := range root.SelectElements("Period") {
		for _, es := range period.SelectElements("EventStream") {
			scheme := es.SelectAttrValue("schemeIdUri", "")
			if _, ok := scte35Schemes[scheme]; ok {
				period.RemoveChild(es)
			}
		}
	}
}

// rewriteBaseURLs points every content Period BaseURL at the segment proxy.
// Relative SegmentTemplate media and initialization values then resolve
// against the proxy at fetch time. Ad periods carry the ad proxy base and
// are left alone.
func rewriteBaseURLs(root *etree.Element, cfg RewriteConfig) {
	proxyBase := fmt.Sprintf("%s/stitch/%s/segment/", cfg.BaseURL, cfg.SessionID)
	adBase := fmt.Sprintf("%s/stitch/%s/ad/", cfg.BaseURL, cfg.SessionID)
	for _, period := range root.SelectElements("Period") {
		baseURLs := period.SelectElements("BaseURL")
		if len(baseURLs) == 0 {
			if mpdLevelBase := root.SelectElement("BaseURL"); mpdLevelBase == nil {
				// BaseURL comes first in the Period content model.
				bu := etree.NewElement("BaseURL")
				bu.SetText(proxyBase)
				period.InsertChildAt(0, bu)
			}
			continue
		}
		for _, bu := range baseURLs {
			if bu.Text() == adBase {
				continue
			}
			bu.SetText(proxyBase)
		}
	}
	// An MPD-level BaseURL would bypass the per-period rewrite.
	for _, bu := range root.SelectElements("BaseURL") {
		bu.SetText(proxyBase)
	}
}

// xsDuration renders seconds as an XSD duration, e.g. PT10S or PT10.5S.
func xsDuration(seconds float64) string {
	if seconds == math.Trunc(seconds) {
		return fmt.Sprintf("PT%dS", int64(seconds))
	}
	return fmt.Sprintf("PT%sS", strconv.FormatFloat(seconds, 'f', -1, 64))
}
