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

// Package db persists audit reports and the per-tier escalation logs in SQLite.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotandev/scalewatch/internal/logger"
	"github.com/dotandev/scalewatch/internal/security"
	_ "modernc.org/sqlite"
)

// ReportRecord is one persisted audit report.
type ReportRecord struct {
	ID        int64              `json:"id"`
	Contract  string             `json:"contract"`
	Findings  []security.Finding `json:"issues"`
	Highest   string             `json:"highest,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// EscalationRecord is one append to a tier's escalation log.
type EscalationRecord struct {
	ID        int64              `json:"id"`
	Tier      security.Severity  `json:"tier"`
	Address   string             `json:"address"`
	Count     int                `json:"count"`
	Findings  []security.Finding `json:"issues"`
	CreatedAt time.Time          `json:"created_at"`
}

// Store handles database operations
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := os.Chmod(path, 0o600); err != nil {
		logger.Logger.Warn("Failed to set database permissions", "error", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		contract TEXT NOT NULL,
		findings TEXT NOT NULL,
		finding_count INTEGER NOT NULL,
		highest TEXT,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reports_contract ON reports(contract);
	CREATE INDEX IF NOT EXISTS idx_reports_created ON reports(created_at);

	CREATE TABLE IF NOT EXISTS escalations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tier TEXT NOT NULL,
		address TEXT NOT NULL,
		count INTEGER NOT NULL,
		findings TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_escalations_tier ON escalations(tier);
	`
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

// SaveReport persists a full report. Every call adds a row, so repeated
// audits of one contract keep their history.
func (s *Store) SaveReport(ctx context.Context, report security.Report) error {
	findings, err := json.Marshal(report.Findings)
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}
	highest := ""
	if sev, ok := report.Highest(); ok {
		highest = sev.String()
	}

	query := `
	INSERT INTO reports (contract, findings, finding_count, highest, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		strings.ToLower(report.Contract), string(findings), len(report.Findings), highest, s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// Append adds an entry to the escalation log of tier. Entries are never
// updated in place.
func (s *Store) Append(ctx context.Context, tier security.Severity, address string, findings []security.Finding) error {
	encoded, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("failed to encode findings: %w", err)
	}

	query := `
	INSERT INTO escalations (tier, address, count, findings, created_at)
	VALUES (?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, query,
		tier.String(), strings.ToLower(address), len(findings), string(encoded), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append escalation: %w", err)
	}
	return nil
}

// ReportQuery filters ListReports.
type ReportQuery struct {
	Contract string
	Limit    int
}

// ListReports returns reports newest first.
func (s *Store) ListReports(ctx context.Context, q ReportQuery) ([]ReportRecord, error) {
	query := "SELECT id, contract, findings, highest, created_at FROM reports WHERE 1=1"
	args := []interface{}{}

	if q.Contract != "" {
		query += " AND contract = ?"
		args = append(args, strings.ToLower(q.Contract))
	}
	query += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []ReportRecord
	for rows.Next() {
		var rec ReportRecord
		var findingsRaw string
		var highest sql.NullString
		var created int64
		if err := rows.Scan(&rec.ID, &rec.Contract, &findingsRaw, &highest, &created); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		if err := json.Unmarshal([]byte(findingsRaw), &rec.Findings); err != nil {
			logger.Logger.Warn("Skipping report with undecodable findings", "id", rec.ID, "error", err)
			continue
		}
		rec.Highest = highest.String
		rec.CreatedAt = time.Unix(0, created).UTC()
		results = append(results, rec)
	}
	return results, rows.Err()
}

// ListEscalations returns the escalation log of tier, oldest first. A nil
// tier lists every tier.
func (s *Store) ListEscalations(ctx context.Context, tier *security.Severity, limit int) ([]EscalationRecord, error) {
	query := "SELECT id, tier, address, count, findings, created_at FROM escalations WHERE 1=1"
	args := []interface{}{}

	if tier != nil {
		query += " AND tier = ?"
		args = append(args, tier.String())
	}
	query += " ORDER BY id ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []EscalationRecord
	for rows.Next() {
		var rec EscalationRecord
		var tierName, findingsRaw string
		var created int64
		if err := rows.Scan(&rec.ID, &tierName, &rec.Address, &rec.Count, &findingsRaw, &created); err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		if rec.Tier, err = security.ParseSeverity(tierName); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(findingsRaw), &rec.Findings); err != nil {
			return nil, fmt.Errorf("failed to decode escalation %d: %w", rec.ID, err)
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		results = append(results, rec)
	}
	return results, rows.Err()
}

// AuditedAddresses returns every contract with at least one stored report.
func (s *Store) AuditedAddresses(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT contract FROM reports ORDER BY contract")
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		out = append(out, addr)
	}
	return out, rows.Err()
}

// PruneReports deletes reports older than maxAge. Escalation logs are never
// pruned. With dryRun set nothing is deleted and the returned count is the
// number of rows that would be.
func (s *Store) PruneReports(ctx context.Context, maxAge time.Duration, dryRun bool) (int64, error) {
	query := "DELETE FROM reports WHERE created_at < ?"
	cutoff := s.now().Add(-maxAge).UnixNano()

	if dryRun {
		res, err := DryRunExec(ctx, logger.Logger, s.db, query, cutoff)
		if err != nil {
			return 0, err
		}
		return res.Affected, nil
	}

	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune reports: %w", err)
	}
	n, _ := result.RowsAffected()
	if n > 0 {
		logger.Logger.Debug("Pruned old reports", "count", n)
	}
	return n, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
