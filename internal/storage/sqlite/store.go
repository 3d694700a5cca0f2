package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"copbot/internal/domain"
)

// Parsed records are stored as JSON payloads; the columns exist for
// dedup, ordering and the status/variant filters the API exposes.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS summaries (
		id           TEXT PRIMARY KEY,
		message_id   TEXT NOT NULL,
		format       TEXT DEFAULT '',
		total_events INTEGER DEFAULT 0,
		received_at  DATETIME NOT NULL,
		processed_at DATETIME NOT NULL,
		payload      TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_summaries_message ON summaries(message_id);
	CREATE INDEX IF NOT EXISTS idx_summaries_received ON summaries(received_at);

	CREATE TABLE IF NOT EXISTS alerts (
		id           TEXT PRIMARY KEY,
		message_id   TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'novo',
		area         TEXT DEFAULT '',
		received_at  DATETIME NOT NULL,
		processed_at DATETIME NOT NULL,
		payload      TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_alerts_message ON alerts(message_id);
	CREATE INDEX IF NOT EXISTS idx_alerts_received ON alerts(received_at);
	CREATE INDEX IF NOT EXISTS idx_alerts_status ON alerts(status);

	CREATE TABLE IF NOT EXISTS alert_status_history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		alert_id   TEXT NOT NULL,
		status     TEXT NOT NULL,
		changed_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_ash_alert ON alert_status_history(alert_id);

	CREATE TABLE IF NOT EXISTS allocations (
		id           TEXT PRIMARY KEY,
		message_id   TEXT NOT NULL,
		variant      TEXT NOT NULL,
		date         TEXT DEFAULT '',
		received_at  DATETIME NOT NULL,
		processed_at DATETIME NOT NULL,
		payload      TEXT NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_message ON allocations(message_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_received ON allocations(received_at);

	CREATE TABLE IF NOT EXISTS parse_failures (
		id            TEXT PRIMARY KEY,
		message_id    TEXT NOT NULL,
		error_message TEXT NOT NULL,
		original_text TEXT NOT NULL,
		processed_at  DATETIME NOT NULL
	);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}
	return db, nil
}

func SummaryMessageExists(db *sql.DB, messageID string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM summaries WHERE message_id = ?", messageID).Scan(&count)
	return count > 0, err
}

func AlertMessageExists(db *sql.DB, messageID string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM alerts WHERE message_id = ?", messageID).Scan(&count)
	return count > 0, err
}

func AllocationMessageExists(db *sql.DB, messageID string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM allocations WHERE message_id = ?", messageID).Scan(&count)
	return count > 0, err
}

func InsertSummary(db *sql.DB, s *domain.IncidentSummary) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO summaries (id, message_id, format, total_events, received_at, processed_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.MessageID, s.Format, s.TotalEvents, s.ReceivedAt, s.ProcessedAt, string(payload),
	)
	return err
}

func GetSummaries(db *sql.DB, limit int) ([]domain.IncidentSummary, error) {
	rows, err := db.Query(
		`SELECT payload FROM summaries ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IncidentSummary
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var s domain.IncidentSummary
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func GetLatestSummary(db *sql.DB) (domain.IncidentSummary, error) {
	var payload string
	err := db.QueryRow(
		`SELECT payload FROM summaries ORDER BY received_at DESC, id DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		return domain.IncidentSummary{}, err
	}
	var s domain.IncidentSummary
	err = json.Unmarshal([]byte(payload), &s)
	return s, err
}

func InsertAlert(db *sql.DB, a *domain.Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO alerts (id, message_id, status, area, received_at, processed_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MessageID, a.Status, a.Area, a.ReceivedAt, a.ProcessedAt, string(payload),
	); err != nil {
		return err
	}
	for _, change := range a.StatusHistory {
		if _, err := tx.Exec(
			`INSERT INTO alert_status_history (alert_id, status, changed_at) VALUES (?, ?, ?)`,
			a.ID, change.Status, change.At,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetAlerts returns alerts newest first, optionally filtered by status.
// Status and history come from their own tables so later transitions are
// reflected without rewriting the payload.
func GetAlerts(db *sql.DB, status string, limit int) ([]domain.Alert, error) {
	query := `SELECT id, status, payload FROM alerts`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY received_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type alertRow struct {
		id, status, payload string
	}
	var raw []alertRow
	for rows.Next() {
		var r alertRow
		if err := rows.Scan(&r.id, &r.status, &r.payload); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	var out []domain.Alert
	for _, r := range raw {
		var a domain.Alert
		if err := json.Unmarshal([]byte(r.payload), &a); err != nil {
			return nil, err
		}
		a.Status = r.status
		history, err := getAlertHistory(db, r.id)
		if err != nil {
			return nil, err
		}
		if len(history) > 0 {
			a.StatusHistory = history
		}
		out = append(out, a)
	}
	return out, nil
}

func GetAlertByID(db *sql.DB, id string) (domain.Alert, error) {
	var current, payload string
	err := db.QueryRow(`SELECT status, payload FROM alerts WHERE id = ?`, id).Scan(&current, &payload)
	if err != nil {
		return domain.Alert{}, err
	}
	var a domain.Alert
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return domain.Alert{}, err
	}
	a.Status = current
	history, err := getAlertHistory(db, id)
	if err != nil {
		return domain.Alert{}, err
	}
	if len(history) > 0 {
		a.StatusHistory = history
	}
	return a, nil
}

func getAlertHistory(db *sql.DB, alertID string) ([]domain.StatusChange, error) {
	rows, err := db.Query(
		`SELECT status, changed_at FROM alert_status_history WHERE alert_id = ? ORDER BY id`, alertID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(&change.Status, &change.At); err != nil {
			return nil, err
		}
		history = append(history, change)
	}
	return history, rows.Err()
}

// UpdateAlertStatus moves an alert to a new status and appends to its
// history. Unknown statuses and unknown alerts are rejected.
func UpdateAlertStatus(db *sql.DB, id, status string, at time.Time) error {
	switch status {
	case domain.StatusNew, domain.StatusInReview, domain.StatusResolved:
	default:
		return fmt.Errorf("unknown alert status %q", status)
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`UPDATE alerts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.Exec(
		`INSERT INTO alert_status_history (alert_id, status, changed_at) VALUES (?, ?, ?)`,
		id, status, at,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func DeleteAlert(db *sql.DB, id string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM alerts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	if _, err := tx.Exec(`DELETE FROM alert_status_history WHERE alert_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func InsertAllocation(db *sql.DB, a *domain.ShiftAllocation) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO allocations (id, message_id, variant, date, received_at, processed_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.MessageID, a.Variant, a.Date, a.ReceivedAt, a.ProcessedAt, string(payload),
	)
	return err
}

func GetAllocations(db *sql.DB, limit int) ([]domain.ShiftAllocation, error) {
	rows, err := db.Query(
		`SELECT payload FROM allocations ORDER BY received_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ShiftAllocation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var a domain.ShiftAllocation
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CurrentAllocation picks the roster to display for the given instant:
// between 06:00 and 17:59 the latest DAY roster, otherwise the latest
// NIGHT one, falling back to the other variant when the preferred one has
// never been seen.
func CurrentAllocation(db *sql.DB, now time.Time) (domain.ShiftAllocation, error) {
	preferred := domain.VariantNight
	if h := now.Hour(); h >= 6 && h < 18 {
		preferred = domain.VariantDay
	}

	alloc, err := latestAllocationByVariant(db, preferred)
	if err == sql.ErrNoRows {
		other := domain.VariantDay
		if preferred == domain.VariantDay {
			other = domain.VariantNight
		}
		return latestAllocationByVariant(db, other)
	}
	return alloc, err
}

func latestAllocationByVariant(db *sql.DB, variant string) (domain.ShiftAllocation, error) {
	var payload string
	err := db.QueryRow(
		`SELECT payload FROM allocations WHERE variant = ? ORDER BY received_at DESC, id DESC LIMIT 1`,
		variant,
	).Scan(&payload)
	if err != nil {
		return domain.ShiftAllocation{}, err
	}
	var a domain.ShiftAllocation
	err = json.Unmarshal([]byte(payload), &a)
	return a, err
}

func InsertFailure(db *sql.DB, f *domain.ParseFailure) error {
	_, err := db.Exec(
		`INSERT INTO parse_failures (id, message_id, error_message, original_text, processed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		f.ID, f.MessageID, f.ErrorMessage, f.OriginalText, f.ProcessedAt,
	)
	return err
}

// Prune enforces the retention caps, keeping the newest records of each
// table. Returns how many rows were removed in total.
func Prune(db *sql.DB, maxSummaries, maxAlerts, maxAllocations int) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var removed int64
	for _, sweep := range []struct {
		table string
		keep  int
	}{
		{"summaries", maxSummaries},
		{"alerts", maxAlerts},
		{"allocations", maxAllocations},
	} {
		res, err := tx.Exec(fmt.Sprintf(
			`DELETE FROM %s WHERE id NOT IN
			   (SELECT id FROM %s ORDER BY received_at DESC, id DESC LIMIT ?)`,
			sweep.table, sweep.table), sweep.keep)
		if err != nil {
			return removed, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return removed, err
		}
		removed += n
	}
	// Drop history rows whose alert was pruned.
	if _, err := tx.Exec(
		`DELETE FROM alert_status_history WHERE alert_id NOT IN (SELECT id FROM alerts)`,
	); err != nil {
		return removed, err
	}
	return removed, tx.Commit()
}
