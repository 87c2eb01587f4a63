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

package daemon

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dotandev/scalewatch/internal/auditor"
	"github.com/dotandev/scalewatch/internal/errors"
	"github.com/dotandev/scalewatch/internal/heuristic"
	"github.com/dotandev/scalewatch/internal/metrics"
	"github.com/dotandev/scalewatch/internal/security"
	"github.com/dotandev/scalewatch/internal/watch"
	"github.com/gorilla/rpc/v2/json2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contract = "0x00000000000000000000000000000000000000aa"

type stubAuditor struct {
	out *auditor.Outcome
	err error
}

func (s *stubAuditor) Audit(_ context.Context, address string, _ auditor.Options) (*auditor.Outcome, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

type stubDiscoverer struct{}

func (stubDiscoverer) Discover(context.Context, int) ([]string, error) {
	return []string{contract}, nil
}

func criticalOutcome() *auditor.Outcome {
	f := security.Finding{
		Heuristic: heuristic.MissingDivideAfterMultiply,
		Location:  3,
		Context:   []string{"MUL"},
		Severity:  security.SeverityHigh,
	}
	c := security.Finding{
		Heuristic: heuristic.DoubleScalingAfterPriceFetch,
		Location:  9,
		Context:   []string{"STATICCALL"},
		Severity:  security.SeverityCritical,
	}
	return &auditor.Outcome{
		Report:      security.Report{Contract: contract, Findings: []security.Finding{f, c}},
		Escalations: []auditor.Escalation{{Tier: security.SeverityCritical, Findings: []security.Finding{c}}},
		Persisted:   true,
	}
}

func call(t *testing.T, url, token, method string, args, reply interface{}) error {
	t.Helper()
	body, err := json2.EncodeClientRequest(method, args)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	return json2.DecodeClientResponse(resp.Body, reply)
}

func newTestServer(t *testing.T, cfg Config) (*Server, *httptest.Server) {
	t.Helper()
	s, err := NewServer(cfg)
	require.NoError(t, err)
	h, err := s.Handler()
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return s, ts
}

func TestNewServer_RequiresAuditor(t *testing.T) {
	_, err := NewServer(Config{})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestScanner_Audit(t *testing.T) {
	_, ts := newTestServer(t, Config{Auditor: &stubAuditor{out: criticalOutcome()}})

	var resp AuditResponse
	require.NoError(t, call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: contract}, &resp))

	assert.Equal(t, contract, resp.Address)
	assert.Len(t, resp.Issues, 2)
	assert.Equal(t, "critical", resp.Highest)
	assert.Equal(t, []string{"critical"}, resp.Escalated)
	assert.True(t, resp.Persisted)
	assert.False(t, resp.Skipped)
}

func TestScanner_AuditSkipAndFailure(t *testing.T) {
	_, ts := newTestServer(t, Config{Auditor: &stubAuditor{err: errors.WrapNoBytecode(contract, nil)}})

	var resp AuditResponse
	require.NoError(t, call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: contract}, &resp))
	assert.True(t, resp.Skipped)
	assert.Contains(t, resp.Reason, "no bytecode")
	assert.Empty(t, resp.Issues)

	_, ts = newTestServer(t, Config{Auditor: &stubAuditor{err: errors.WrapInvalidAddress("0x12")}})
	err := call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: "0x12"}, &resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid contract address")
}

func TestScanner_StatusTracksCycles(t *testing.T) {
	loop, err := watch.New(watch.Config{Discoverer: stubDiscoverer{}, Auditor: &stubAuditor{out: &auditor.Outcome{}}})
	require.NoError(t, err)
	s, ts := newTestServer(t, Config{Auditor: &stubAuditor{out: criticalOutcome()}, Loop: loop})

	var status StatusResponse
	require.NoError(t, call(t, ts.URL, "", "Scanner.Status", &StatusRequest{}, &status))
	assert.True(t, status.Scanning)
	assert.Zero(t, status.Cycles)
	assert.Nil(t, status.LastCycle)

	s.RecordCycle(loop.RunOnce(context.Background()))
	s.RecordCycle(watch.CycleStats{DiscoveryErr: fmt.Errorf("rpc down")})

	require.NoError(t, call(t, ts.URL, "", "Scanner.Status", &StatusRequest{IncludeSeen: true}, &status))
	assert.Equal(t, 2, status.Cycles)
	assert.Equal(t, 1, status.Memory)
	assert.Equal(t, []string{contract}, status.Seen)
	require.NotNil(t, status.LastCycle)
	assert.Equal(t, "rpc down", status.LastCycle.Error)
}

func TestScanner_AuditMarksLoopMemory(t *testing.T) {
	loop, err := watch.New(watch.Config{Discoverer: stubDiscoverer{}, Auditor: &stubAuditor{out: &auditor.Outcome{}}})
	require.NoError(t, err)
	_, ts := newTestServer(t, Config{Auditor: &stubAuditor{out: criticalOutcome()}, Loop: loop})

	var resp AuditResponse
	require.NoError(t, call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: contract}, &resp))
	assert.True(t, loop.Memory().Seen(contract))

	stats := loop.RunOnce(context.Background())
	assert.Equal(t, 1, stats.AlreadySeen)
}

func TestScanner_FetchFailureNotRemembered(t *testing.T) {
	loop, err := watch.New(watch.Config{Discoverer: stubDiscoverer{}, Auditor: &stubAuditor{out: &auditor.Outcome{}}})
	require.NoError(t, err)
	_, ts := newTestServer(t, Config{
		Auditor: &stubAuditor{err: errors.WrapFetchFailed(contract, fmt.Errorf("timeout"))},
		Loop:    loop,
	})

	var resp AuditResponse
	require.NoError(t, call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: contract}, &resp))
	assert.True(t, resp.Skipped)
	assert.False(t, loop.Memory().Seen(contract))

	_, ts = newTestServer(t, Config{Auditor: &stubAuditor{err: errors.WrapNoBytecode(contract, nil)}, Loop: loop})
	require.NoError(t, call(t, ts.URL, "", "Scanner.Audit", &AuditRequest{Address: contract}, &resp))
	assert.True(t, loop.Memory().Seen(contract))
}

func TestServer_Authentication(t *testing.T) {
	_, ts := newTestServer(t, Config{Auditor: &stubAuditor{out: criticalOutcome()}, AuthToken: "secret123"})

	var status StatusResponse
	err := call(t, ts.URL, "", "Scanner.Status", &StatusRequest{}, &status)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthorized")

	assert.NoError(t, call(t, ts.URL, "secret123", "Scanner.Status", &StatusRequest{}, &status))

	s, err := NewServer(Config{Auditor: &stubAuditor{}, AuthToken: "secret123"})
	require.NoError(t, err)
	req := httptest.NewRequest("POST", "/rpc", nil)
	req.Header.Set("Authorization", "secret123")
	assert.True(t, s.authenticate(req))
	req.Header.Set("Authorization", "wrong-token")
	assert.False(t, s.authenticate(req))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	m := metrics.New()
	m.ObserveAudit(metrics.OutcomeAudited, time.Millisecond)
	_, ts := newTestServer(t, Config{Auditor: &stubAuditor{}, Metrics: m})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "ok")

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.True(t, strings.Contains(string(body), "scalewatch_audits_total"))
}

func TestServer_StartStop(t *testing.T) {
	loop, err := watch.New(watch.Config{
		Discoverer: stubDiscoverer{},
		Auditor:    &stubAuditor{out: &auditor.Outcome{}},
		Interval:   10 * time.Millisecond,
	})
	require.NoError(t, err)

	s, err := NewServer(Config{Addr: "127.0.0.1:0", Auditor: &stubAuditor{}, Loop: loop})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, s.Start(ctx))
	assert.True(t, loop.Memory().Seen(contract))
}
