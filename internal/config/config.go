// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a Go duration string ("90s", "5m").
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

type RPCConfig struct {
	URL       string `toml:"url"`
	Retries   int    `toml:"retries"`
	CacheSize int    `toml:"cache_size"`
}

type ScanConfig struct {
	Limit    int      `toml:"limit"`
	Interval Duration `toml:"interval"`
	// Factory is the Uniswap V2 factory walked for candidates; empty means
	// the mainnet factory.
	Factory         string   `toml:"factory,omitempty"`
	MaxPairs        int      `toml:"max_pairs"`
	ExcludedSymbols []string `toml:"excluded_symbols,omitempty"`
}

type DBConfig struct {
	Path string `toml:"path"`
	// Retention bounds how long audit reports are kept by "report prune".
	Retention Duration `toml:"retention"`
}

// WebhookConfig is one [[webhooks]] entry.
type WebhookConfig struct {
	Type    string   `toml:"type"`
	URL     string   `toml:"url"`
	Retries int      `toml:"retries"`
	Timeout Duration `toml:"timeout"`
}

type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	Endpoint    string `toml:"endpoint"`
	ServiceName string `toml:"service_name"`
}

type DaemonConfig struct {
	Addr string `toml:"addr"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Config is the complete scalewatch configuration.
type Config struct {
	RPC       RPCConfig       `toml:"rpc"`
	Scan      ScanConfig      `toml:"scan"`
	DB        DBConfig        `toml:"db"`
	Webhooks  []WebhookConfig `toml:"webhooks"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Daemon    DaemonConfig    `toml:"daemon"`
	Log       LogConfig       `toml:"log"`

	// Source is the file the configuration was read from, empty when only
	// defaults and environment were used.
	Source string `toml:"-"`
}

const envPrefix = "SCALEWATCH_"

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RPC: RPCConfig{
			URL:       "http://localhost:8545",
			Retries:   3,
			CacheSize: 512,
		},
		Scan: ScanConfig{
			Limit:    20,
			Interval: Duration{time.Minute},
			MaxPairs: 200,
		},
		DB: DBConfig{
			Path:      filepath.Join(os.ExpandEnv("$HOME"), ".scalewatch", "scalewatch.db"),
			Retention: Duration{30 * 24 * time.Hour},
		},
		Telemetry: TelemetryConfig{
			Endpoint:    "http://localhost:4318",
			ServiceName: "scalewatch",
		},
		Daemon: DaemonConfig{Addr: "127.0.0.1:8645"},
		Log:    LogConfig{Level: "info"},
	}
}

// SearchPaths lists the files Load consults, in order. The first one that
// exists wins.
func SearchPaths() []string {
	return []string{
		".scalewatch.toml",
		filepath.Join(os.ExpandEnv("$HOME"), ".scalewatch.toml"),
		"/etc/scalewatch/config.toml",
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (or the first of SearchPaths when path is empty), then SCALEWATCH_*
// environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := cfg.loadTOML(path); err != nil {
			return nil, err
		}
	} else {
		for _, p := range SearchPaths() {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := cfg.loadTOML(p); err != nil {
				return nil, err
			}
			break
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadTOML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WrapConfigError("failed to read config file", err)
	}
	if err := c.parseTOML(data); err != nil {
		return errors.WrapConfigError(fmt.Sprintf("failed to parse %s", path), err)
	}
	c.Source = path
	return nil
}

func (c *Config) parseTOML(data []byte) error {
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	return dec.Decode(c)
}

func (c *Config) applyEnv() error {
	setString(&c.RPC.URL, "RPC_URL")
	setString(&c.DB.Path, "DB_PATH")
	setString(&c.Daemon.Addr, "DAEMON_ADDR")
	setString(&c.Log.Level, "LOG_LEVEL")
	setString(&c.Telemetry.Endpoint, "OTLP_ENDPOINT")

	if err := setInt(&c.RPC.Retries, "RPC_RETRIES"); err != nil {
		return err
	}
	if err := setInt(&c.Scan.Limit, "SCAN_LIMIT"); err != nil {
		return err
	}
	if err := setDuration(&c.Scan.Interval, "SCAN_INTERVAL"); err != nil {
		return err
	}
	if err := setBool(&c.Log.JSON, "LOG_JSON"); err != nil {
		return err
	}
	if err := setBool(&c.Telemetry.Enabled, "TELEMETRY"); err != nil {
		return err
	}

	if v := os.Getenv(envPrefix + "EXCLUDED_SYMBOLS"); v != "" {
		c.Scan.ExcludedSymbols = splitList(v)
	}

	// Hooks from the environment are added to the ones in the file.
	for _, typ := range []string{"slack", "discord"} {
		for _, u := range splitList(os.Getenv(envPrefix + strings.ToUpper(typ) + "_WEBHOOK")) {
			c.Webhooks = append(c.Webhooks, WebhookConfig{Type: typ, URL: u})
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return errors.WrapConfigError(envPrefix+key+" must be an integer", err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return errors.WrapConfigError(envPrefix+key+" must be a boolean", fmt.Errorf("got %q", v))
	}
	return nil
}

func setDuration(dst *Duration, key string) error {
	v := os.Getenv(envPrefix + key)
	if v == "" {
		return nil
	}
	if err := dst.UnmarshalText([]byte(v)); err != nil {
		return errors.WrapConfigError(envPrefix+key+" must be a duration", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate runs DefaultValidators.
func (c *Config) Validate() error {
	return RunValidators(c, DefaultValidators())
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	return toml.Marshal(c)
}

// Save writes the configuration as TOML with owner-only permissions.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return errors.WrapConfigError("failed to create config directory", err)
	}
	data, err := c.Encode()
	if err != nil {
		return errors.WrapConfigError("failed to marshal config", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.WrapConfigError("failed to write config file", err)
	}
	return nil
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{RPC: %s, Limit: %d, Interval: %s, DB: %s, Webhooks: %d}",
		c.RPC.URL, c.Scan.Limit, c.Scan.Interval, c.DB.Path, len(c.Webhooks),
	)
}
