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

// Package daemon serves the scan loop over JSON-RPC alongside health and
// metrics endpoints.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/metrics"
	"github.com/dotandev/scalewatch/internal/security"
	"github.com/dotandev/scalewatch/internal/telemetry"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Config holds daemon configuration. Auditor is required; Loop is optional
// and, when set, is run for the lifetime of the server.
type Config struct {
	Addr      string
	AuthToken string
	Auditor   watch.Auditor
	Loop      *watch.Loop
	Metrics   *metrics.Metrics
}

// AuditRequest represents the Scanner.Audit request
type AuditRequest struct {
	Address string `json:"address"`
	Summary bool   `json:"summary,omitempty"`
}

// AuditResponse represents the Scanner.Audit response
type AuditResponse struct {
	Address   string             `json:"address"`
	Skipped   bool               `json:"skipped,omitempty"`
	Reason    string             `json:"reason,omitempty"`
	Issues    []security.Finding `json:"issues"`
	Highest   string             `json:"highest,omitempty"`
	Escalated []string           `json:"escalated,omitempty"`
	Persisted bool               `json:"persisted"`
}

// StatusRequest represents the Scanner.Status request
type StatusRequest struct {
	IncludeSeen bool `json:"include_seen,omitempty"`
}

// CycleSummary mirrors watch.CycleStats on the wire.
type CycleSummary struct {
	Candidates  int       `json:"candidates"`
	AlreadySeen int       `json:"already_seen"`
	Audited     int       `json:"audited"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	Error       string    `json:"error,omitempty"`
	FinishedAt  time.Time `json:"finished_at"`
}

// StatusResponse represents the Scanner.Status response
type StatusResponse struct {
	Scanning  bool          `json:"scanning"`
	Uptime    string        `json:"uptime"`
	Cycles    int           `json:"cycles"`
	Memory    int           `json:"memory"`
	LastCycle *CycleSummary `json:"last_cycle,omitempty"`
	Seen      []string      `json:"seen,omitempty"`
}

// Server represents the JSON-RPC daemon server
type Server struct {
	cfg     Config
	started time.Time

	mu     sync.Mutex
	cycles int
	last   *CycleSummary
}

// Scanner is the JSON-RPC service registered as "Scanner".
type Scanner struct {
	s *Server
}

// NewServer creates a new JSON-RPC server
func NewServer(config Config) (*Server, error) {
	if config.Auditor == nil {
		return nil, errors.WrapValidationError("daemon requires an auditor")
	}
	if config.Addr == "" {
		config.Addr = "127.0.0.1:8645"
	}
	return &Server{cfg: config, started: time.Now()}, nil
}

// RecordCycle stores the stats of a finished scan cycle for Status. It is
// meant to be passed as watch.Config.OnCycle.
func (s *Server) RecordCycle(stats watch.CycleStats) {
	sum := &CycleSummary{
		Candidates:  stats.Candidates,
		AlreadySeen: stats.AlreadySeen,
		Audited:     stats.Audited,
		Skipped:     stats.Skipped,
		Failed:      stats.Failed,
		FinishedAt:  time.Now().UTC(),
	}
	if stats.DiscoveryErr != nil {
		sum.Error = stats.DiscoveryErr.Error()
	}
	s.mu.Lock()
	s.cycles++
	s.last = sum
	s.mu.Unlock()
}

// authenticate validates the authorization token
func (s *Server) authenticate(r *http.Request) bool {
	if s.cfg.AuthToken == "" {
		return true
	}

	auth := r.Header.Get("Authorization")
	if auth == "" {
		return false
	}

	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ") == s.cfg.AuthToken
	}

	return auth == s.cfg.AuthToken
}

// Audit handles Scanner.Audit calls
func (sc *Scanner) Audit(r *http.Request, req *AuditRequest, resp *AuditResponse) error {
	s := sc.s
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	ctx, span := telemetry.GetTracer().Start(r.Context(), "rpc_audit")
	span.SetAttributes(attribute.String("contract.address", req.Address))
	defer span.End()

	logger.Logger.Info("Processing Scanner.Audit", "address", req.Address)

	out, err := s.cfg.Auditor.Audit(ctx, req.Address, auditor.Options{SummaryOnly: req.Summary})
	if err != nil {
		if errors.IsSkip(err) {
			*resp = AuditResponse{Address: strings.ToLower(req.Address), Skipped: true, Reason: err.Error(), Issues: []security.Finding{}}
			if !errors.IsFetchFailure(err) {
				s.remember(req.Address)
			}
			return nil
		}
		span.RecordError(err)
		return err
	}

	*resp = AuditResponse{
		Address:   out.Report.Contract,
		Issues:    out.Report.Findings,
		Persisted: out.Persisted,
	}
	if top, ok := out.Report.Highest(); ok {
		resp.Highest = top.String()
	}
	for _, esc := range out.Escalations {
		resp.Escalated = append(resp.Escalated, esc.Tier.String())
	}
	s.remember(out.Report.Contract)
	return nil
}

// Status handles Scanner.Status calls
func (sc *Scanner) Status(r *http.Request, req *StatusRequest, resp *StatusResponse) error {
	s := sc.s
	if !s.authenticate(r) {
		return fmt.Errorf("unauthorized")
	}

	s.mu.Lock()
	*resp = StatusResponse{
		Scanning: s.cfg.Loop != nil,
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Cycles:   s.cycles,
	}
	if s.last != nil {
		last := *s.last
		resp.LastCycle = &last
	}
	s.mu.Unlock()

	if s.cfg.Loop != nil {
		mem := s.cfg.Loop.Memory()
		resp.Memory = mem.Len()
		if req.IncludeSeen {
			resp.Seen = mem.Snapshot()
		}
	}
	return nil
}

// remember marks an on-demand audit in the loop's memory so the scan loop
// does not audit it again.
func (s *Server) remember(address string) {
	if s.cfg.Loop != nil {
		s.cfg.Loop.Memory().Add(address)
	}
}

// Handler returns the HTTP routes: /rpc, /health and /metrics.
func (s *Server) Handler() (http.Handler, error) {
	server := rpc.NewServer()
	server.RegisterCodec(json2.NewCodec(), "application/json")
	server.RegisterCodec(json2.NewCodec(), "application/json;charset=UTF-8")

	if err := server.RegisterService(&Scanner{s: s}, "Scanner"); err != nil {
		return nil, fmt.Errorf("failed to register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/rpc", server)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if s.cfg.Metrics != nil {
		mux.Handle("/metrics", s.cfg.Metrics.Handler())
	}
	return mux, nil
}

// Start serves on cfg.Addr and, when configured, runs the scan loop until
// ctx is cancelled or either one fails.
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Logger.Info("Starting JSON-RPC server", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	if s.cfg.Loop != nil {
		g.Go(func() error {
			return s.cfg.Loop.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Logger.Info("Shutting down JSON-RPC server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
