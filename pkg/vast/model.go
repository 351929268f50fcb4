// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package vast implements the subset of VAST 3/4 needed for ad decisioning:
// parsing responses, following wrapper chains, and extracting creative URLs
// together with their tracking beacons.
package vast

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// VAST is the document root of an ad server response.
type VAST struct {
	XMLName xml.Name `xml:"VAST"`
	Version string   `xml:"version,attr"`
	Ads     []Ad     `xml:"Ad"`
}

// Ad holds either an InLine creative or a Wrapper redirect.
type Ad struct {
	ID      string   `xml:"id,attr"`
	InLine  *InLine  `xml:"InLine"`
	Wrapper *Wrapper `xml:"Wrapper"`
}

type InLine struct {
	AdSystem    string     `xml:"AdSystem"`
	AdTitle     string     `xml:"AdTitle"`
	Impressions []CDataURL `xml:"Impression"`
	Error       CDataURL   `xml:"Error"`
	Creatives   []Creative `xml:"Creatives>Creative"`
}

type Wrapper struct {
	AdSystem     string     `xml:"AdSystem"`
	VASTAdTagURI CDataURL   `xml:"VASTAdTagURI"`
	Impressions  []CDataURL `xml:"Impression"`
	Error        CDataURL   `xml:"Error"`
	Creatives    []Creative `xml:"Creatives>Creative"`
}

type Creative struct {
	ID     string  `xml:"id,attr"`
	Linear *Linear `xml:"Linear"`
}

type Linear struct {
	Duration       string      `xml:"Duration"`
	MediaFiles     []MediaFile `xml:"MediaFiles>MediaFile"`
	TrackingEvents []Tracking  `xml:"TrackingEvents>Tracking"`
}

type MediaFile struct {
	Delivery string `xml:"delivery,attr"`
	Type     string `xml:"type,attr"`
	Width    int    `xml:"width,attr"`
	Height   int    `xml:"height,attr"`
	URL      string `xml:",cdata"`
}

// Tracking is a single progress beacon, e.g. event="firstQuartile".
type Tracking struct {
	Event string `xml:"event,attr"`
	URL   string `xml:",cdata"`
}

// CDataURL is a URL carried as (possibly whitespace-padded) CDATA text.
type CDataURL struct {
	URL string `xml:",cdata"`
}

// Trimmed returns the URL with surrounding whitespace removed.
func (c CDataURL) Trimmed() string {
	return strings.TrimSpace(c.URL)
}

// Parse decodes a VAST document.
func Parse(data []byte) (*VAST, error) {
	var v VAST
	if err := xml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("parse vast: %w", err)
	}
	return &v, nil
}

// ParseDuration converts a VAST HH:MM:SS or HH:MM:SS.mmm duration to seconds.
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, fmt.Errorf("bad duration %q: %w", s, err)
	}
	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}

// pickMediaFile prefers progressive MP4, then HLS, then the first entry.
func pickMediaFile(files []MediaFile) (MediaFile, bool) {
	for _, f := range files {
		if strings.EqualFold(f.Delivery, "progressive") && strings.EqualFold(f.Type, "video/mp4") {
			return f, true
		}
	}
	for _, f := range files {
		t := strings.ToLower(f.Type)
		if t == "application/x-mpegurl" || t == "application/vnd.apple.mpegurl" {
			return f, true
		}
	}
	if len(files) > 0 {
		return files[0], true
	}
	return MediaFile{}, false
}
