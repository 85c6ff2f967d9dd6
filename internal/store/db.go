package store

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sales-pipeline/internal/model"
)

var db *sql.DB

// InitDB opens the tracking database and creates tables if missing.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		status TEXT,
		started_at DATETIME,
		stopped_at DATETIME
	);
	`
	outcomeTable := `
	CREATE TABLE IF NOT EXISTS file_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		file TEXT,
		rows INTEGER,
		valid INTEGER,
		invalid INTEGER,
		route TEXT,
		moved_to TEXT,
		reasons TEXT,
		completed_at DATETIME
	);
	`
	logTable := `
	CREATE TABLE IF NOT EXISTS pipeline_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		level TEXT,
		message TEXT,
		fields TEXT,
		created_at DATETIME
	);
	`

	for _, stmt := range []string{runTable, outcomeTable, logTable} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// CloseDB closes the tracking database.
func CloseDB() error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// SaveRun registers a new ingestion run.
func SaveRun(runID string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		runID, "running", now)
	return err
}

// UpdateRunStatus updates a run's status; a terminal status also records the
// stop time.
func UpdateRunStatus(runID string, status string) error {
	now := time.Now().UTC()
	if status == "stopped" {
		_, err := db.Exec(`UPDATE runs SET status = ?, stopped_at = ? WHERE id = ?`, status, now, runID)
		return err
	}
	_, err := db.Exec(`UPDATE runs SET status = ? WHERE id = ?`, status, runID)
	return err
}

// ListRuns returns all runs, newest first.
func ListRuns() ([]map[string]interface{}, error) {
	rows, err := db.Query(`SELECT id, status, started_at, stopped_at FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []map[string]interface{}
	for rows.Next() {
		var id, status string
		var startedAt time.Time
		var stoppedAt sql.NullTime
		if err := rows.Scan(&id, &status, &startedAt, &stoppedAt); err != nil {
			return nil, err
		}
		run := map[string]interface{}{
			"id":        id,
			"status":    status,
			"startedAt": startedAt,
		}
		if stoppedAt.Valid {
			run["stoppedAt"] = stoppedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// SaveFileOutcome records how one input file fared.
func SaveFileOutcome(outcome model.FileOutcome) error {
	reasonsJSON, err := json.Marshal(outcome.Reasons)
	if err != nil {
		return err
	}
	_, err = db.Exec(
		`INSERT INTO file_outcomes (run_id, file, rows, valid, invalid, route, moved_to, reasons, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		outcome.RunID, outcome.File, outcome.Rows, outcome.Valid, outcome.Invalid,
		string(outcome.Route), outcome.MovedTo, string(reasonsJSON), outcome.CompletedAt.UTC())
	return err
}

// ListFileOutcomes returns the most recent file outcomes.
func ListFileOutcomes(limit int) ([]model.FileOutcome, error) {
	rows, err := db.Query(
		`SELECT run_id, file, rows, valid, invalid, route, moved_to, reasons, completed_at
		 FROM file_outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []model.FileOutcome
	for rows.Next() {
		var o model.FileOutcome
		var route, reasonsJSON string
		if err := rows.Scan(&o.RunID, &o.File, &o.Rows, &o.Valid, &o.Invalid, &route, &o.MovedTo, &reasonsJSON, &o.CompletedAt); err != nil {
			return nil, err
		}
		o.Route = model.Route(route)
		if reasonsJSON != "" {
			if err := json.Unmarshal([]byte(reasonsJSON), &o.Reasons); err != nil {
				return nil, err
			}
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// SavePipelineLog persists one leveled log event so the front end can read
// the latest lines without owning the console output.
func SavePipelineLog(runID, level, message string, fields map[string]interface{}) error {
	var fieldsJSON []byte
	if fields != nil {
		var err error
		fieldsJSON, err = json.Marshal(fields)
		if err != nil {
			return err
		}
	}
	_, err := db.Exec(
		`INSERT INTO pipeline_logs (run_id, level, message, fields, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, level, message, string(fieldsJSON), time.Now().UTC())
	return err
}

// GetRecentLogs returns the newest log lines, most recent first.
func GetRecentLogs(limit int) ([]map[string]interface{}, error) {
	rows, err := db.Query(
		`SELECT run_id, level, message, fields, created_at
		 FROM pipeline_logs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []map[string]interface{}
	for rows.Next() {
		var runID, level, message, fieldsJSON string
		var createdAt time.Time
		if err := rows.Scan(&runID, &level, &message, &fieldsJSON, &createdAt); err != nil {
			return nil, err
		}
		entry := map[string]interface{}{
			"runId":     runID,
			"level":     level,
			"message":   message,
			"createdAt": createdAt,
		}
		if fieldsJSON != "" {
			var fields map[string]interface{}
			if err := json.Unmarshal([]byte(fieldsJSON), &fields); err == nil {
				entry["fields"] = fields
			}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
