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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dotandev/scalewatch/internal/errors"
)

var envKeys = []string{
	"RPC_URL", "RPC_RETRIES", "DB_PATH", "DAEMON_ADDR", "LOG_LEVEL", "LOG_JSON",
	"OTLP_ENDPOINT", "TELEMETRY", "SCAN_LIMIT", "SCAN_INTERVAL", "EXCLUDED_SYMBOLS",
	"SLACK_WEBHOOK", "DISCORD_WEBHOOK",
}

// isolate points HOME and the working directory at empty temp dirs and
// clears every SCALEWATCH_ variable.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(envPrefix+k, "")
	}
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Chdir(t.TempDir())
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.RPC.URL == "" {
		t.Error("expected non-empty rpc url")
	}
	if cfg.Scan.Limit != 20 {
		t.Errorf("expected scan limit 20, got %d", cfg.Scan.Limit)
	}
	if cfg.Scan.Interval.Duration != time.Minute {
		t.Errorf("expected one minute interval, got %s", cfg.Scan.Interval)
	}
	if !strings.HasSuffix(cfg.DB.Path, filepath.Join(".scalewatch", "scalewatch.db")) {
		t.Errorf("unexpected db path %s", cfg.DB.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("expected no source file, got %s", cfg.Source)
	}
	if cfg.RPC.URL != DefaultConfig().RPC.URL {
		t.Errorf("expected default rpc url, got %s", cfg.RPC.URL)
	}
}

func TestLoad_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "scalewatch.toml")
	writeFile(t, path, `
[rpc]
url = "https://eth.example.com"
retries = 5

[scan]
limit = 7
interval = "90s"
excluded_symbols = ["WETH", "FRAX"]

[db]
path = "/tmp/sw.db"

[[webhooks]]
type = "slack"
url = "https://hooks.slack.com/services/x"

[[webhooks]]
type = "discord"
url = "https://discord.com/api/webhooks/y"
timeout = "5s"

[log]
level = "debug"
json = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Source != path {
		t.Errorf("expected source %s, got %s", path, cfg.Source)
	}
	if cfg.RPC.URL != "https://eth.example.com" || cfg.RPC.Retries != 5 {
		t.Errorf("unexpected rpc section %+v", cfg.RPC)
	}
	if cfg.RPC.CacheSize != 512 {
		t.Errorf("unset fields keep their defaults, got cache size %d", cfg.RPC.CacheSize)
	}
	if cfg.Scan.Limit != 7 || cfg.Scan.Interval.Duration != 90*time.Second {
		t.Errorf("unexpected scan section %+v", cfg.Scan)
	}
	if len(cfg.Scan.ExcludedSymbols) != 2 || cfg.Scan.ExcludedSymbols[1] != "FRAX" {
		t.Errorf("unexpected excluded symbols %v", cfg.Scan.ExcludedSymbols)
	}
	if cfg.DB.Path != "/tmp/sw.db" {
		t.Errorf("unexpected db path %s", cfg.DB.Path)
	}
	if len(cfg.Webhooks) != 2 || cfg.Webhooks[1].Timeout.Duration != 5*time.Second {
		t.Errorf("unexpected webhooks %+v", cfg.Webhooks)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.JSON {
		t.Errorf("unexpected log section %+v", cfg.Log)
	}
}

func TestLoad_SearchesWorkingDirectoryThenHome(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, ".scalewatch.toml"), "[scan]\nlimit = 3\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.Limit != 3 {
		t.Errorf("expected home file to apply, got limit %d", cfg.Scan.Limit)
	}

	writeFile(t, ".scalewatch.toml", "[scan]\nlimit = 4\n")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scan.Limit != 4 {
		t.Errorf("expected working directory file to win, got limit %d", cfg.Scan.Limit)
	}
	if cfg.Source != ".scalewatch.toml" {
		t.Errorf("unexpected source %s", cfg.Source)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	writeFile(t, ".scalewatch.toml", "[rpc]\nurl = \"https://file.example.com\"\n[scan]\nlimit = 3\n")

	t.Setenv("SCALEWATCH_RPC_URL", "wss://env.example.com")
	t.Setenv("SCALEWATCH_SCAN_LIMIT", "11")
	t.Setenv("SCALEWATCH_SCAN_INTERVAL", "2m")
	t.Setenv("SCALEWATCH_LOG_JSON", "yes")
	t.Setenv("SCALEWATCH_EXCLUDED_SYMBOLS", "weth, usdc ,")
	t.Setenv("SCALEWATCH_SLACK_WEBHOOK", "https://hooks.slack.com/a,https://hooks.slack.com/b")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.URL != "wss://env.example.com" {
		t.Errorf("expected env rpc url, got %s", cfg.RPC.URL)
	}
	if cfg.Scan.Limit != 11 || cfg.Scan.Interval.Duration != 2*time.Minute {
		t.Errorf("unexpected scan section %+v", cfg.Scan)
	}
	if !cfg.Log.JSON {
		t.Error("expected json logging from env")
	}
	if strings.Join(cfg.Scan.ExcludedSymbols, "|") != "weth|usdc" {
		t.Errorf("unexpected excluded symbols %v", cfg.Scan.ExcludedSymbols)
	}
	if len(cfg.Webhooks) != 2 || cfg.Webhooks[0].Type != "slack" {
		t.Errorf("unexpected webhooks %+v", cfg.Webhooks)
	}
}

func TestLoad_BadEnvironment(t *testing.T) {
	cases := map[string]string{
		"SCALEWATCH_SCAN_LIMIT":    "many",
		"SCALEWATCH_SCAN_INTERVAL": "soon",
		"SCALEWATCH_TELEMETRY":     "maybe",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			isolate(t)
			t.Setenv(key, val)
			_, err := Load("")
			if !errors.Is(err, errors.ErrConfig) {
				t.Fatalf("expected config error, got %v", err)
			}
		})
	}
}

func TestLoad_FileErrors(t *testing.T) {
	isolate(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("missing explicit file should be a config error, got %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.toml")
	writeFile(t, bad, "[scan\nlimit = 1\n")
	if _, err := Load(bad); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("malformed file should be a config error, got %v", err)
	}

	unknown := filepath.Join(t.TempDir(), "unknown.toml")
	writeFile(t, unknown, "[scan]\nlimt = 1\n")
	if _, err := Load(unknown); !errors.Is(err, errors.ErrConfig) {
		t.Errorf("unknown keys should be rejected, got %v", err)
	}

	invalid := filepath.Join(t.TempDir(), "invalid.toml")
	writeFile(t, invalid, "[scan]\nlimit = 0\n")
	if _, err := Load(invalid); !errors.Is(err, errors.ErrValidation) {
		t.Errorf("zero limit should fail validation, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := DefaultConfig()
	cfg.Scan.Interval = Duration{45 * time.Second}
	cfg.Webhooks = []WebhookConfig{{Type: "slack", URL: "https://hooks.slack.com/z", Timeout: Duration{time.Second}}}
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600, got %o", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Scan.Interval.Duration != 45*time.Second {
		t.Errorf("interval did not survive, got %s", loaded.Scan.Interval)
	}
	if len(loaded.Webhooks) != 1 || loaded.Webhooks[0].URL != "https://hooks.slack.com/z" {
		t.Errorf("webhooks did not survive: %+v", loaded.Webhooks)
	}
}

func TestConfigString(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.String()
	if !strings.Contains(s, cfg.RPC.URL) || !strings.Contains(s, "1m0s") {
		t.Errorf("unexpected string %s", s)
	}
}
