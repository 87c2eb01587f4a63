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
	"strings"
	"testing"

	"github.com/dotandev/scalewatch/internal/errors"
)

func validConfig() *Config {
	return DefaultConfig()
}

// --- RPCValidator ---

func TestRPCValidator_ValidURL(t *testing.T) {
	v := RPCValidator{}
	for _, u := range []string{"https://eth.example.com", "http://localhost:8545", "wss://node.example.com/ws"} {
		cfg := validConfig()
		cfg.RPC.URL = u
		if err := v.Validate(cfg); err != nil {
			t.Errorf("rpc.url %q should be valid: %v", u, err)
		}
	}
}

func TestRPCValidator_Rejects(t *testing.T) {
	v := RPCValidator{}
	cases := map[string]func(*Config){
		"empty url":      func(c *Config) { c.RPC.URL = "" },
		"ftp scheme":     func(c *Config) { c.RPC.URL = "ftp://node.example.com" },
		"missing scheme": func(c *Config) { c.RPC.URL = "node.example.com" },
		"neg retries":    func(c *Config) { c.RPC.Retries = -1 },
		"neg cache":      func(c *Config) { c.RPC.CacheSize = -5 },
	}
	for name, mutate := range cases {
		cfg := validConfig()
		mutate(cfg)
		err := v.Validate(cfg)
		if !errors.Is(err, errors.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
			continue
		}
		if !strings.Contains(err.Error(), "rpc.") {
			t.Errorf("%s: error should name the rpc section, got %v", name, err)
		}
	}
}

// --- ScanValidator ---

func TestScanValidator(t *testing.T) {
	v := ScanValidator{}
	if err := v.Validate(validConfig()); err != nil {
		t.Fatalf("defaults should pass: %v", err)
	}

	cfg := validConfig()
	cfg.Scan.Limit = 0
	if err := v.Validate(cfg); err == nil {
		t.Error("zero limit should be rejected")
	}

	cfg = validConfig()
	cfg.Scan.Interval = Duration{}
	if err := v.Validate(cfg); err == nil {
		t.Error("zero interval should be rejected")
	}

	cfg = validConfig()
	cfg.Scan.Factory = "uniswap"
	if err := v.Validate(cfg); err == nil {
		t.Error("malformed factory should be rejected")
	}

	cfg = validConfig()
	cfg.Scan.MaxPairs = -1
	if err := v.Validate(cfg); err == nil {
		t.Error("negative max_pairs should be rejected")
	}
}

// --- WebhookValidator ---

func TestWebhookValidator(t *testing.T) {
	v := WebhookValidator{}

	cfg := validConfig()
	cfg.Webhooks = []WebhookConfig{
		{Type: "slack", URL: "https://hooks.slack.com/x"},
		{Type: "Discord", URL: "http://localhost:9000/hook"},
	}
	if err := v.Validate(cfg); err != nil {
		t.Fatalf("valid hooks rejected: %v", err)
	}

	cfg.Webhooks = append(cfg.Webhooks, WebhookConfig{Type: "teams", URL: "https://example.com"})
	err := v.Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "webhooks[2].type") {
		t.Errorf("expected webhooks[2].type error, got %v", err)
	}

	cfg.Webhooks = []WebhookConfig{{Type: "slack", URL: "hooks.slack.com/x"}}
	if err := v.Validate(cfg); err == nil {
		t.Error("schemeless url should be rejected")
	}
}

// --- DaemonValidator ---

func TestDaemonValidator(t *testing.T) {
	v := DaemonValidator{}
	cfg := validConfig()
	cfg.Daemon.Addr = ":9000"
	if err := v.Validate(cfg); err != nil {
		t.Errorf(":9000 should be valid: %v", err)
	}
	cfg.Daemon.Addr = "localhost"
	if err := v.Validate(cfg); err == nil {
		t.Error("address without port should be rejected")
	}
	cfg.Daemon.Addr = ""
	if err := v.Validate(cfg); err != nil {
		t.Errorf("empty address is allowed: %v", err)
	}
}

// --- LogLevelValidator ---

func TestLogLevelValidator(t *testing.T) {
	v := LogLevelValidator{}
	for _, lvl := range []string{"debug", "INFO", "warn", "warning", "error", ""} {
		cfg := validConfig()
		cfg.Log.Level = lvl
		if err := v.Validate(cfg); err != nil {
			t.Errorf("level %q should be valid: %v", lvl, err)
		}
	}
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	if err := v.Validate(cfg); err == nil {
		t.Error("unknown level should be rejected")
	}
}

// --- RunValidators ---

type failingValidator struct{ msg string }

func (f failingValidator) Validate(*Config) error {
	return errors.WrapValidationError(f.msg)
}

func TestRunValidators_StopsOnFirstError(t *testing.T) {
	err := RunValidators(validConfig(), []Validator{
		RPCValidator{},
		failingValidator{"first"},
		failingValidator{"second"},
	})
	if err == nil || !strings.Contains(err.Error(), "first") {
		t.Errorf("expected first failure, got %v", err)
	}
}

func TestRunValidators_Empty(t *testing.T) {
	if err := RunValidators(&Config{}, nil); err != nil {
		t.Errorf("no validators should pass: %v", err)
	}
}
