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

// Package auditor runs one contract audit end to end: fetch, decode, detect,
// escalate and persist.
package auditor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/evm"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/metrics"
	"github.com/dotandev/scalewatch/internal/security"
	"github.com/dotandev/scalewatch/internal/telemetry"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// BytecodeSource fetches deployed runtime bytecode.
type BytecodeSource interface {
	FetchBytecode(ctx context.Context, address string) ([]byte, error)
}

// Notifier delivers an alert.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// EscalationLog is an append-only log with one logical stream per tier.
type EscalationLog interface {
	Append(ctx context.Context, tier security.Severity, address string, findings []security.Finding) error
}

// ReportStore persists full reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report security.Report) error
}

// Config injects the collaborators. Source is required; every other field
// may be left nil.
type Config struct {
	Source        BytecodeSource
	Disassembler  evm.Disassembler
	Notifier      Notifier
	EscalationLog EscalationLog
	Store         ReportStore
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// Options tune a single audit.
type Options struct {
	// SummaryOnly skips report persistence; the caller prints a summary.
	SummaryOnly bool
}

// Escalation is the diagnostic for one escalated tier. NotifyErr and LogErr
// are set when the respective side effect failed.
type Escalation struct {
	Tier      security.Severity
	Findings  []security.Finding
	Notified  bool
	Logged    bool
	NotifyErr error
	LogErr    error
}

// Outcome is the result of a completed audit.
type Outcome struct {
	Report      security.Report
	Runs        []security.Run
	Escalations []Escalation
	Persisted   bool
	PersistErr  error
	Duration    time.Duration
}

// Auditor owns the collaborators of the audit pipeline.
type Auditor struct {
	source   BytecodeSource
	disasm   evm.Disassembler
	notifier Notifier
	escLog   EscalationLog
	store    ReportStore
	metrics  *metrics.Metrics
	log      *slog.Logger
	detector *security.Detector
}

// New validates cfg and returns an Auditor.
func New(cfg Config) (*Auditor, error) {
	if cfg.Source == nil {
		return nil, errors.WrapValidationError("auditor requires a bytecode source")
	}
	a := &Auditor{
		source:   cfg.Source,
		disasm:   cfg.Disassembler,
		notifier: cfg.Notifier,
		escLog:   cfg.EscalationLog,
		store:    cfg.Store,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		detector: security.NewDetector(),
	}
	if a.disasm == nil {
		a.disasm = evm.Decoder{}
	}
	if a.log == nil {
		a.log = logger.Logger
	}
	return a, nil
}

// NormalizeAddress checks the 0x-prefixed 20-byte hex shape and lowercases it.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !addressPattern.MatchString(address) || !common.IsHexAddress(address) {
		return "", errors.WrapInvalidAddress(address)
	}
	return strings.ToLower(address), nil
}

// Audit runs the full pipeline for one contract. ErrInvalidAddress and
// ErrNoBytecode come back as errors; escalation and persistence failures are
// reported on the Outcome instead.
func (a *Auditor) Audit(ctx context.Context, address string, opts Options) (*Outcome, error) {
	start := time.Now()
	ctx, span := telemetry.GetTracer().Start(ctx, "audit",
		trace.WithAttributes(attribute.String("contract.address", address)),
	)
	defer span.End()

	out, err := a.audit(ctx, address, opts)

	outcome := metrics.OutcomeAudited
	switch {
	case err == nil:
		span.SetAttributes(attribute.Int("audit.findings", len(out.Report.Findings)))
	case errors.IsSkip(err):
		outcome = metrics.OutcomeSkipped
		span.SetAttributes(attribute.Bool("audit.skipped", true))
	case errors.Is(err, errors.ErrInvalidAddress):
		outcome = metrics.OutcomeInvalid
		span.SetStatus(codes.Error, err.Error())
	default:
		outcome = metrics.OutcomeFailed
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	elapsed := time.Since(start)
	a.metrics.ObserveAudit(outcome, elapsed)
	if out != nil {
		out.Duration = elapsed
	}
	return out, err
}

func (a *Auditor) audit(ctx context.Context, address string, opts Options) (*Outcome, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return nil, err
	}
	log := a.log.With("address", addr)

	code, err := a.source.FetchBytecode(ctx, addr)
	if err != nil {
		log.Warn("Bytecode fetch failed, skipping", "phase", "fetch", "error", err)
		return nil, errors.WrapFetchFailed(addr, err)
	}

	stream, err := a.disasm.Decode(code)
	if err != nil {
		log.Error("Disassembly failed", "phase", "disassemble", "error", err)
		return nil, errors.WrapCollaborator("disassemble", err)
	}
	if len(stream) == 0 {
		log.Info("No opcodes found, skipping")
		return nil, errors.WrapNoBytecode(addr, nil)
	}

	res := a.detector.Analyze(addr, stream)
	out := &Outcome{Report: res.Report, Runs: res.Runs}
	for sev, n := range res.Report.CountBySeverity() {
		a.metrics.AddFindings(sev.String(), n)
	}
	log.Debug("Analysis complete", "instructions", len(stream), "findings", len(res.Report.Findings))

	for _, group := range res.Report.Escalated() {
		out.Escalations = append(out.Escalations, a.escalate(ctx, log, addr, group))
	}

	if opts.SummaryOnly || a.store == nil {
		return out, nil
	}
	if err := a.store.SaveReport(ctx, res.Report); err != nil {
		out.PersistErr = errors.WrapCollaborator("persist", err)
		log.Error("Failed to persist report", "phase", "persist", "error", err)
	} else {
		out.Persisted = true
	}
	return out, nil
}

func (a *Auditor) escalate(ctx context.Context, log *slog.Logger, addr string, group security.TierFindings) Escalation {
	esc := Escalation{Tier: group.Tier, Findings: group.Findings}
	tier := group.Tier.String()

	if a.notifier != nil {
		subject := fmt.Sprintf("%s: Scaling Error in %s", strings.ToUpper(tier[:1])+tier[1:], addr)
		if err := a.notifier.Notify(ctx, subject, security.Digest(group.Findings)); err != nil {
			esc.NotifyErr = errors.WrapNotifyFailed(err)
			log.Warn("Escalation notification failed", "phase", "notify", "tier", tier, "error", err)
		} else {
			esc.Notified = true
		}
		a.metrics.ObserveEscalation(tier, "notify", esc.NotifyErr)
	}

	if a.escLog != nil {
		if err := a.escLog.Append(ctx, group.Tier, addr, group.Findings); err != nil {
			esc.LogErr = errors.WrapLogWriteFailed(tier, err)
			log.Warn("Escalation log append failed", "phase", "escalation-log", "tier", tier, "error", err)
		} else {
			esc.Logged = true
			log.Info("Logged escalated issues", "tier", tier, "count", len(group.Findings))
		}
		a.metrics.ObserveEscalation(tier, "log", esc.LogErr)
	}
	return esc
}
