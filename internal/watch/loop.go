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

// Package watch drives continuous auditing of newly discovered contracts.
package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/metrics"
)

const (
	DefaultLimit    = 20
	DefaultInterval = time.Minute
)

// Discoverer returns up to limit candidate contract addresses.
type Discoverer interface {
	Discover(ctx context.Context, limit int) ([]string, error)
}

// Auditor audits one contract.
type Auditor interface {
	Audit(ctx context.Context, address string, opts auditor.Options) (*auditor.Outcome, error)
}

// Config configures a Loop.
type Config struct {
	Discoverer Discoverer
	Auditor    Auditor
	Limit      int
	Interval   time.Duration
	Memory     *Memory
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// OnAudit, if set, is called after every audit attempt.
	OnAudit func(address string, out *auditor.Outcome, err error)
	// OnCycle, if set, is called with the stats of every finished cycle.
	OnCycle func(CycleStats)
}

// CycleStats summarizes one discovery cycle.
type CycleStats struct {
	Candidates   int
	AlreadySeen  int
	Audited      int
	Skipped      int
	Failed       int
	DiscoveryErr error
}

// Loop owns the dedup memory and runs discovery cycles one at a time.
type Loop struct {
	cfg    Config
	memory *Memory
	log    *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func New(cfg Config) (*Loop, error) {
	if cfg.Discoverer == nil || cfg.Auditor == nil {
		return nil, errors.WrapValidationError("scan loop requires a discoverer and an auditor")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	l := &Loop{cfg: cfg, memory: cfg.Memory, log: cfg.Logger}
	if l.memory == nil {
		l.memory = NewMemory()
	}
	if l.log == nil {
		l.log = logger.Logger
	}
	return l, nil
}

// Memory exposes the dedup memory.
func (l *Loop) Memory() *Memory {
	return l.memory
}

// Seed preloads addresses into memory and returns how many were new.
func (l *Loop) Seed(addresses []string) int {
	n := 0
	for _, a := range addresses {
		if l.memory.Add(a) {
			n++
		}
	}
	return n
}

// RunOnce executes a single cycle. Candidates are processed strictly one at
// a time; cancellation is checked between candidates.
func (l *Loop) RunOnce(ctx context.Context) CycleStats {
	var stats CycleStats

	candidates, err := l.cfg.Discoverer.Discover(ctx, l.cfg.Limit)
	if err != nil {
		stats.DiscoveryErr = errors.WrapCollaborator("discover", err)
		l.log.Error("Discovery failed", "phase", "discover", "error", err)
		l.finish(stats)
		return stats
	}
	stats.Candidates = len(candidates)

	for _, address := range candidates {
		if ctx.Err() != nil {
			break
		}
		if l.memory.Seen(address) {
			stats.AlreadySeen++
			continue
		}

		out, err := l.cfg.Auditor.Audit(ctx, address, auditor.Options{})
		switch {
		case err == nil:
			stats.Audited++
			l.memory.Add(address)
		case errors.IsFetchFailure(err):
			stats.Skipped++
			l.log.Warn("Bytecode fetch failed, will retry next cycle", "address", address, "phase", "fetch", "error", err)
		case errors.IsSkip(err):
			stats.Skipped++
			l.memory.Add(address)
			l.log.Info("Skipped contract", "address", address, "reason", err)
		default:
			stats.Failed++
			l.log.Error("Audit failed, will retry next cycle", "address", address, "error", err)
		}
		if l.cfg.OnAudit != nil {
			l.cfg.OnAudit(address, out, err)
		}
	}

	l.cfg.Metrics.ObserveCycle(l.memory.Len())
	l.log.Info("Scan cycle complete",
		"candidates", stats.Candidates,
		"audited", stats.Audited,
		"skipped", stats.Skipped,
		"failed", stats.Failed,
		"already_seen", stats.AlreadySeen,
		"memory", l.memory.Len(),
	)
	l.finish(stats)
	return stats
}

func (l *Loop) finish(stats CycleStats) {
	if l.cfg.OnCycle != nil {
		l.cfg.OnCycle(stats)
	}
}

// Run repeats RunOnce, sleeping Interval between cycles, until ctx is
// cancelled or Stop is called. It returns nil on either.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.done != nil {
		l.mu.Unlock()
		return errors.WrapValidationError("scan loop already running")
	}
	if l.stopped {
		l.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.done = make(chan struct{})
	done := l.done
	l.mu.Unlock()

	defer func() {
		cancel()
		l.mu.Lock()
		l.cancel, l.done = nil, nil
		l.mu.Unlock()
		close(done)
	}()

	timer := time.NewTimer(l.cfg.Interval)
	defer timer.Stop()

	for {
		l.RunOnce(ctx)

		timer.Reset(l.cfg.Interval)
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// Stop cancels a running loop and waits for it to return. Calling Stop
// before Run prevents Run from starting.
func (l *Loop) Stop() {
	l.mu.Lock()
	l.stopped = true
	cancel, done := l.cancel, l.done
	l.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
