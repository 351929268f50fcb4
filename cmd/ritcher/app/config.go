// Copyright 2025, Ritcher Media. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/providers/structs"
	"github.com/spf13/pflag"

	"github.com/ritcher-io/ritcher/internal"
	"github.com/ritcher-io/ritcher/pkg/logging"
)

type ServerConfig struct {
	LogFormat string `json:"logformat"`
	LogLevel  string `json:"loglevel"`
	Port      int    `json:"port"`
	// BaseURL is the externally visible URL of this proxy. When empty the
	// request Host header is used.
	BaseURL   string `json:"baseurl"`
	OriginURL string `json:"originurl"`
	// StitchingMode is ssai or sgai.
	StitchingMode string `json:"stitchingmode"`
	// AdProviderType is static, vast, demo, or auto. Auto picks vast when a
	// VAST endpoint is configured and static otherwise.
	AdProviderType string  `json:"adprovidertype"`
	AdSourceURL    string  `json:"adsourceurl"`
	AdSegmentDurS  float64 `json:"adsegmentduration"`
	VASTEndpoint   string  `json:"vastendpoint"`
	SlateURL       string  `json:"slateurl"`
	SlateSegDurS   float64 `json:"slatesegmentduration"`
	// SessionStore is memory, valkey, or redis (alias for valkey).
	SessionStore   string `json:"sessionstore"`
	ValkeyURL      string `json:"valkeyurl"`
	SessionTTLSecs int    `json:"sessionttlsecs"`
	// RateLimitRPM is requests per minute per client. Zero disables limiting.
	RateLimitRPM int `json:"ratelimitrpm"`
	TimeoutS     int `json:"timeoutsecs"`
}

var DefaultConfig = ServerConfig{
	LogFormat:      logging.LogPretty,
	LogLevel:       "INFO",
	Port:           8484,
	OriginURL:      "http://localhost:8484/demo/playlist.m3u8",
	StitchingMode:  "ssai",
	AdProviderType: "auto",
	AdSegmentDurS:  10,
	SlateSegDurS:   10,
	SessionStore:   "memory",
	ValkeyURL:      "redis://localhost:6379",
	SessionTTLSecs: 1800,
	RateLimitRPM:   0,
	TimeoutS:       60,
}

// envKeys maps bare environment variable names to config keys.
var envKeys = map[string]string{
	"PORT":                   "port",
	"BASE_URL":               "baseurl",
	"ORIGIN_URL":             "originurl",
	"STITCHING_MODE":         "stitchingmode",
	"AD_PROVIDER_TYPE":       "adprovidertype",
	"AD_SOURCE_URL":          "adsourceurl",
	"AD_SEGMENT_DURATION":    "adsegmentduration",
	"VAST_ENDPOINT":          "vastendpoint",
	"SLATE_URL":              "slateurl",
	"SLATE_SEGMENT_DURATION": "slatesegmentduration",
	"SESSION_STORE":          "sessionstore",
	"VALKEY_URL":             "valkeyurl",
	"SESSION_TTL_SECS":       "sessionttlsecs",
	"RATE_LIMIT_RPM":         "ratelimitrpm",
	"LOG_LEVEL":              "loglevel",
	"LOG_FORMAT":             "logformat",
	"TIMEOUT_SECS":           "timeoutsecs",
}

// LoadConfig loads defaults, config file, command line, and finally applies
// environment variables.
func LoadConfig(args []string, cwd string) (*ServerConfig, error) {
	k := koanf.New(".")
	defaults := DefaultConfig
	k.Load(structs.Provider(defaults, "json"), nil)

	f := pflag.NewFlagSet("ritcher", pflag.ContinueOnError)
	f.Usage = func() {
		parts := strings.Split(args[0], "/")
		name := parts[len(parts)-1]
		fmt.Fprintf(os.Stderr, "Run as %s [options]:\n", name)
		f.PrintDefaults()
	}
	cfgFile := f.String("cfg", "", "path to a JSON config file")
	showVersion := f.Bool("version", false, "print version and exit")
	f.Int("port", k.Int("port"), "HTTP port")
	f.String("baseurl", k.String("baseurl"), "external base URL of this proxy")
	f.String("originurl", k.String("originurl"), "default origin manifest URL")
	f.String("stitchingmode", k.String("stitchingmode"), "stitching mode [ssai, sgai]")
	f.String("adprovidertype", k.String("adprovidertype"), "ad provider [static, vast, demo, auto]")
	f.String("adsourceurl", k.String("adsourceurl"), "static ad source base URL")
	f.Float64("adsegmentduration", k.Float64("adsegmentduration"), "ad segment duration (seconds)")
	f.String("vastendpoint", k.String("vastendpoint"), "VAST ad decision endpoint URL")
	f.String("slateurl", k.String("slateurl"), "slate content base URL")
	f.Float64("slatesegmentduration", k.Float64("slatesegmentduration"), "slate segment duration (seconds)")
	f.String("sessionstore", k.String("sessionstore"), "session store backend [memory, valkey]")
	f.String("valkeyurl", k.String("valkeyurl"), "Valkey/Redis URL for the session store")
	f.Int("sessionttlsecs", k.Int("sessionttlsecs"), "session idle TTL (seconds)")
	f.Int("ratelimitrpm", k.Int("ratelimitrpm"), "requests per minute per client (0 = disabled)")
	lf := strings.Join(logging.LogFormats, ", ")
	f.String("logformat", k.String("logformat"), fmt.Sprintf("log format [%s]", lf))
	ll := strings.Join(logging.LogLevels, ", ")
	f.String("loglevel", k.String("loglevel"), fmt.Sprintf("log level [%s]", ll))
	f.Int("timeoutsecs", k.Int("timeoutsecs"), "timeout for all requests (seconds)")
	if err := f.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("command line parse: %w", err)
	}
	if *showVersion {
		internal.PrintVersion()
		os.Exit(0)
	}

	if *cfgFile != "" {
		cf := file.Provider(*cfgFile)
		if err := k.Load(cf, json.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	// Possibly override config file with commandline parameters
	if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
		return nil, fmt.Errorf("parsing cli: %v", err)
	}

	// Overload with prefixed environment variables
	k.Load(env.Provider("RITCHER_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "RITCHER_")), "_", ".", -1)
	}), nil)

	// Bare environment variable names take the highest precedence.
	k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[s]
	}), nil)

	var cfg ServerConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validateConfig(cfg *ServerConfig) error {
	switch cfg.StitchingMode {
	case "ssai", "sgai":
	default:
		return fmt.Errorf("stitchingmode %q not known", cfg.StitchingMode)
	}
	switch cfg.AdProviderType {
	case "static", "vast", "demo", "auto":
	default:
		return fmt.Errorf("adprovidertype %q not known", cfg.AdProviderType)
	}
	switch cfg.SessionStore {
	case "memory", "valkey", "redis":
	default:
		return fmt.Errorf("sessionstore %q not known", cfg.SessionStore)
	}
	if cfg.AdProviderType == "vast" && cfg.VASTEndpoint == "" {
		return fmt.Errorf("adprovidertype vast requires a vastendpoint")
	}
	return nil
}
