// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

// Package safeurl validates user-supplied origin URLs before they are fetched.
//
// Only http and https schemes are accepted, and IP-literal hosts inside
// private or reserved ranges are rejected. Hostnames pass without DNS
// resolution, so DNS rebinding is not covered by this guard.
package safeurl

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var blockedV4 = []string{
	"0.0.0.0/8",
	"10.0.0.0/8",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

var blockedV6 = []string{
	"::1/128",
	"fe80::/10",
	"fc00::/7",
}

var blockedNets []*net.IPNet

func init() {
	for _, cidr := range append(append([]string{}, blockedV4...), blockedV6...) {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("bad blocked CIDR %q: %v", cidr, err))
		}
		blockedNets = append(blockedNets, ipNet)
	}
}

// Validate checks that raw is an acceptable origin URL.
// It returns a descriptive error when the URL must not be fetched.
func Validate(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("scheme %q not allowed", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("empty host")
	}
	ip := net.ParseIP(host)
	if ip == nil {
		// Hostname. No DNS lookup is done here.
		return nil
	}
	for _, ipNet := range blockedNets {
		if ipNet.Contains(ip) {
			return fmt.Errorf("host %s is in blocked range %s", host, ipNet.String())
		}
	}
	return nil
}
