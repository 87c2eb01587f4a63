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

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// DestructiveOp represents a type of destructive SQL operation.
type DestructiveOp string

const (
	OpDelete   DestructiveOp = "DELETE"
	OpDrop     DestructiveOp = "DROP"
	OpAlter    DestructiveOp = "ALTER"
	OpTruncate DestructiveOp = "TRUNCATE"
	OpUpdate   DestructiveOp = "UPDATE"
	OpSafe     DestructiveOp = ""
)

// DryRunResult holds the outcome of a dry-run analysis.
type DryRunResult struct {
	Query       string
	Args        []interface{}
	Operation   DestructiveOp
	Destructive bool
	// Affected is the number of rows a DELETE would remove.
	Affected int64
}

// ClassifySQL returns the destructive operation type for a SQL statement.
// Returns OpSafe if the statement is not destructive.
func ClassifySQL(query string) DestructiveOp {
	normalized := strings.ToUpper(strings.TrimSpace(query))
	for _, op := range []DestructiveOp{OpDelete, OpDrop, OpAlter, OpTruncate, OpUpdate} {
		if strings.HasPrefix(normalized, string(op)) {
			return op
		}
	}
	return OpSafe
}

// DryRunExec classifies query without executing it. For DELETE statements
// the rows that would be removed are counted with an equivalent SELECT.
func DryRunExec(ctx context.Context, logger *slog.Logger, db *sql.DB, query string, args ...interface{}) (DryRunResult, error) {
	op := ClassifySQL(query)
	result := DryRunResult{
		Query:       query,
		Args:        args,
		Operation:   op,
		Destructive: op != OpSafe,
	}
	if !result.Destructive {
		return result, nil
	}

	if op == OpDelete && db != nil {
		count := "SELECT COUNT(*) " + strings.TrimSpace(query)[len("DELETE "):]
		if err := db.QueryRowContext(ctx, count, args...).Scan(&result.Affected); err != nil {
			return result, fmt.Errorf("dry-run count failed: %w", err)
		}
	}

	logger.Warn("[DRY-RUN] destructive SQL detected",
		"operation", string(op),
		"query", query,
		"args", fmt.Sprintf("%v", args),
		"affected", result.Affected,
	)
	return result, nil
}
