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

package cmd

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/config"
	"github.com/dotandev/scalewatch/internal/db"
	"github.com/dotandev/scalewatch/internal/discovery"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/metrics"
	"github.com/dotandev/scalewatch/internal/rpc"
	"github.com/dotandev/scalewatch/internal/telemetry"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/dotandev/scalewatch/internal/webhook"
)

const defaultWebhookRetries = 3

// dialRPC is replaced in tests.
var dialRPC = rpc.Dial

// app holds the collaborators shared by audit, scan and daemon.
type app struct {
	cfg      *config.Config
	client   *rpc.Client
	store    *db.Store
	notifier *webhook.Notifier
	metrics  *metrics.Metrics
	auditor  *auditor.Auditor

	closeTelemetry func()
	closeOnce      sync.Once
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.New(), closeTelemetry: func() {}}

	cleanup, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		ExporterURL: cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     Version,
	})
	if err != nil {
		return nil, errors.WrapCollaborator("telemetry", err)
	}
	a.closeTelemetry = cleanup

	rpcCfg := rpc.DefaultConfig()
	rpcCfg.URL = cfg.RPC.URL
	rpcCfg.Retries = cfg.RPC.Retries
	rpcCfg.CacheSize = cfg.RPC.CacheSize
	if a.client, err = dialRPC(ctx, rpcCfg); err != nil {
		a.Close()
		return nil, err
	}

	if a.store, err = db.Open(cfg.DB.Path); err != nil {
		a.Close()
		return nil, errors.WrapCollaborator("open store", err)
	}

	if a.notifier, err = newNotifier(cfg.Webhooks); err != nil {
		a.Close()
		return nil, err
	}

	// Without hooks escalations are only logged.
	var notifier auditor.Notifier
	if a.notifier.ClientCount() > 0 {
		notifier = a.notifier
	}

	a.auditor, err = auditor.New(auditor.Config{
		Source:        a.client,
		Notifier:      notifier,
		EscalationLog: a.store,
		Store:         a.store,
		Metrics:       a.metrics,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	registerShutdownHook("app", func(context.Context) error {
		a.Close()
		return nil
	})
	return a, nil
}

func newNotifier(hooks []config.WebhookConfig) (*webhook.Notifier, error) {
	configs := make([]webhook.Config, 0, len(hooks))
	for _, h := range hooks {
		retries := h.Retries
		if retries == 0 {
			retries = defaultWebhookRetries
		}
		configs = append(configs, webhook.Config{
			Type:    webhook.WebhookType(strings.ToLower(h.Type)),
			URL:     h.URL,
			Retries: retries,
			Timeout: h.Timeout.Duration,
		})
	}
	return webhook.NewNotifier(webhook.NotifierConfig{Enabled: len(configs) > 0, Webhooks: configs})
}

// newLoop builds the scan loop over Uniswap V2 discovery.
func (a *app) newLoop(limit int, interval time.Duration, onCycle func(watch.CycleStats)) (*watch.Loop, error) {
	disc, err := discovery.NewUniswapV2(a.client.Backend(), discovery.Config{
		Factory:         a.cfg.Scan.Factory,
		ExcludedSymbols: a.cfg.Scan.ExcludedSymbols,
		MaxPairs:        a.cfg.Scan.MaxPairs,
	})
	if err != nil {
		return nil, errors.WrapConfigError("discovery", err)
	}
	return watch.New(watch.Config{
		Discoverer: disc,
		Auditor:    a.auditor,
		Limit:      limit,
		Interval:   interval,
		Metrics:    a.metrics,
		OnCycle:    onCycle,
	})
}

// Close releases every collaborator; it is safe to call more than once.
func (a *app) Close() {
	a.closeOnce.Do(func() {
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				logger.Logger.Warn("Failed to close store", "error", err)
			}
		}
		if a.client != nil {
			a.client.Close()
		}
		a.closeTelemetry()
	})
}
