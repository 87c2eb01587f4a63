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
	"net"
	"net/url"
	"strings"

	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/ethereum/go-ethereum/common"
)

// Validator checks one part of the configuration.
type Validator interface {
	Validate(cfg *Config) error
}

// RPCValidator checks that the node endpoint is usable.
type RPCValidator struct{}

var rpcSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true}

func (v RPCValidator) Validate(cfg *Config) error {
	if cfg.RPC.URL == "" {
		return errors.WrapValidationError("rpc.url cannot be empty")
	}
	u, err := url.Parse(cfg.RPC.URL)
	if err != nil || !rpcSchemes[u.Scheme] || u.Host == "" {
		return errors.WrapValidationError("rpc.url must be an http(s) or ws(s) URL")
	}
	if cfg.RPC.Retries < 0 {
		return errors.WrapValidationError("rpc.retries cannot be negative")
	}
	if cfg.RPC.CacheSize < 0 {
		return errors.WrapValidationError("rpc.cache_size cannot be negative")
	}
	return nil
}

// ScanValidator checks the scan loop bounds.
type ScanValidator struct{}

func (v ScanValidator) Validate(cfg *Config) error {
	if cfg.Scan.Limit <= 0 {
		return errors.WrapValidationError("scan.limit must be positive")
	}
	if cfg.Scan.Interval.Duration <= 0 {
		return errors.WrapValidationError("scan.interval must be positive")
	}
	if cfg.Scan.Factory != "" && !common.IsHexAddress(cfg.Scan.Factory) {
		return errors.WrapValidationError("scan.factory must be a 0x-prefixed address")
	}
	if cfg.Scan.MaxPairs < 0 {
		return errors.WrapValidationError("scan.max_pairs cannot be negative")
	}
	return nil
}

// WebhookValidator checks every configured hook.
type WebhookValidator struct{}

func (v WebhookValidator) Validate(cfg *Config) error {
	for i, h := range cfg.Webhooks {
		switch strings.ToLower(h.Type) {
		case "slack", "discord":
		default:
			return errors.WrapValidationError(fmt.Sprintf("webhooks[%d].type must be slack or discord", i))
		}
		u, err := url.Parse(h.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return errors.WrapValidationError(fmt.Sprintf("webhooks[%d].url must use http or https scheme", i))
		}
		if h.Retries < 0 {
			return errors.WrapValidationError(fmt.Sprintf("webhooks[%d].retries cannot be negative", i))
		}
	}
	return nil
}

// DaemonValidator checks the listen address.
type DaemonValidator struct{}

func (v DaemonValidator) Validate(cfg *Config) error {
	if cfg.Daemon.Addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Daemon.Addr); err != nil {
		return errors.WrapValidationError("daemon.addr must be host:port")
	}
	return nil
}

// LogLevelValidator checks that the log level is a known value.
type LogLevelValidator struct{}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

func (v LogLevelValidator) Validate(cfg *Config) error {
	if cfg.Log.Level == "" {
		return nil
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return errors.WrapValidationError("log.level must be one of: debug, info, warn, error")
	}
	return nil
}

// DefaultValidators returns the standard set of validators.
func DefaultValidators() []Validator {
	return []Validator{
		RPCValidator{},
		ScanValidator{},
		WebhookValidator{},
		DaemonValidator{},
		LogLevelValidator{},
	}
}

// RunValidators executes each validator against the config, returning the
// first error encountered.
func RunValidators(cfg *Config, validators []Validator) error {
	for _, v := range validators {
		if err := v.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}
