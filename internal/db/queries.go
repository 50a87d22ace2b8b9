package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vipxkw/ChinaTelecomMonitor/internal/logger"
	"github.com/vipxkw/ChinaTelecomMonitor/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

var timeFormats = []string{
	timeLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
}

func parseTimeString(s string) (time.Time, bool) {
	for _, format := range timeFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// nullTime returns a NULL for the zero time.
func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(t), Valid: true}
}

func scanTime(ns sql.NullString) time.Time {
	if !ns.Valid {
		return time.Time{}
	}
	t, _ := parseTimeString(ns.String)
	return t
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// LoadSession returns the stored state for phone, or nil if there is none.
func (db *DB) LoadSession(ctx context.Context, phone string) (*models.SessionState, error) {
	query := `
		SELECT phone, login_info, owner, fail_count, last_success_at, updated_at
		FROM session_state
		WHERE phone = ?
	`

	state, err := scanSession(db.QueryRowContext(ctx, query, phone))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session state: %w", err)
	}
	return state, nil
}

// SaveSession inserts or replaces the state record of state.Phone.
func (db *DB) SaveSession(ctx context.Context, state *models.SessionState) error {
	query := `
		INSERT INTO session_state (phone, login_info, owner, fail_count, last_success_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(phone) DO UPDATE SET
			login_info = excluded.login_info,
			owner = excluded.owner,
			fail_count = excluded.fail_count,
			last_success_at = excluded.last_success_at,
			updated_at = excluded.updated_at
	`

	updated := state.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	_, err := db.ExecContext(ctx, query,
		state.Phone,
		nullString(string(state.LoginInfo)),
		nullString(state.Owner),
		state.FailCount,
		nullTime(state.LastSuccessAt),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

// ListSessions returns every stored state ordered by phone.
func (db *DB) ListSessions(ctx context.Context) ([]models.SessionState, error) {
	query := `
		SELECT phone, login_info, owner, fail_count, last_success_at, updated_at
		FROM session_state
		ORDER BY phone
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query session states: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var states []models.SessionState
	for rows.Next() {
		state, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session state: %w", err)
		}
		states = append(states, *state)
	}

	return states, rows.Err()
}

// ResetFailCount clears the failure counter of phone. It reports whether a
// record existed.
func (db *DB) ResetFailCount(ctx context.Context, phone string) (bool, error) {
	result, err := db.ExecContext(ctx,
		"UPDATE session_state SET fail_count = 0, updated_at = ? WHERE phone = ?",
		formatTime(time.Now()), phone)
	if err != nil {
		return false, fmt.Errorf("failed to reset failure counter: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reset failure counter: %w", err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.SessionState, error) {
	var (
		state              models.SessionState
		loginInfo, owner   sql.NullString
		lastSuccess, updAt sql.NullString
	)
	if err := row.Scan(&state.Phone, &loginInfo, &owner, &state.FailCount, &lastSuccess, &updAt); err != nil {
		return nil, err
	}

	if loginInfo.Valid && loginInfo.String != "" {
		state.LoginInfo = json.RawMessage(loginInfo.String)
	}
	state.Owner = owner.String
	state.LastSuccessAt = scanTime(lastSuccess)
	state.UpdatedAt = scanTime(updAt)
	return &state, nil
}

// RecordUsage stores a usage snapshot.
func (db *DB) RecordUsage(ctx context.Context, summary *models.UsageSummary) error {
	query := `
		INSERT INTO usage_snapshots (
			phone, balance, voice_used, voice_total, flow_used, flow_total,
			common_used, common_total, summary, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	blob, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode usage summary: %w", err)
	}

	timestamp := summary.CreatedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	_, err = db.ExecContext(ctx, query,
		summary.Phone,
		summary.Balance,
		summary.Voice.Used,
		summary.Voice.Total,
		summary.Flow.Used,
		summary.Flow.Total,
		summary.CommonFlow.Used,
		summary.CommonFlow.Total,
		string(blob),
		formatTime(timestamp),
	)
	if err != nil {
		return fmt.Errorf("failed to insert usage snapshot: %w", err)
	}
	return nil
}

// UsageHistory returns up to limit of the most recent snapshots of phone,
// oldest first.
func (db *DB) UsageHistory(ctx context.Context, phone string, limit int) ([]models.UsageSummary, error) {
	query := `
		SELECT summary FROM (
			SELECT id, summary, timestamp
			FROM usage_snapshots
			WHERE phone = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := db.QueryContext(ctx, query, phone, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var history []models.UsageSummary
	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan usage snapshot: %w", err)
		}
		var s models.UsageSummary
		if err := json.Unmarshal([]byte(blob), &s); err != nil {
			return nil, fmt.Errorf("failed to decode usage snapshot: %w", err)
		}
		history = append(history, s)
	}

	return history, rows.Err()
}

// CleanupOldSnapshots deletes usage snapshots older than the given number
// of days.
func (db *DB) CleanupOldSnapshots(ctx context.Context, olderThanDays int) (int64, error) {
	query := `DELETE FROM usage_snapshots WHERE timestamp < datetime('now', ?)`
	windowStr := fmt.Sprintf("-%d days", olderThanDays)

	result, err := db.ExecContext(ctx, query, windowStr)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old snapshots: %w", err)
	}

	return result.RowsAffected()
}

// RecordRun stores a batch run summary.
func (db *DB) RecordRun(ctx context.Context, run models.BatchRun) error {
	query := `
		INSERT INTO batch_runs (id, started_at, finished_at, accounts, processed, skipped)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.Accounts,
		run.Processed,
		run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert batch run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit batch runs, newest first.
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]models.BatchRun, error) {
	query := `
		SELECT id, started_at, finished_at, accounts, processed, skipped
		FROM batch_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batch runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []models.BatchRun
	for rows.Next() {
		var run models.BatchRun
		var started, finished sql.NullString
		if err := rows.Scan(&run.ID, &started, &finished, &run.Accounts, &run.Processed, &run.Skipped); err != nil {
			return nil, fmt.Errorf("failed to scan batch run: %w", err)
		}
		run.StartedAt = scanTime(started)
		run.FinishedAt = scanTime(finished)
		runs = append(runs, run)
	}

	return runs, rows.Err()
}
