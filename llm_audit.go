package main

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// AuditEntry is one recorded /chat outcome.
type AuditEntry struct {
	ID           int64
	RequestID    string
	Timestamp    time.Time
	Caller       string
	Channel      string
	Model        string
	Status       int
	InputHash    string
	FullInput    string
	FullOutput   string
	InputTokens  int
	OutputTokens int
	Error        string
}

// AuditLog records relay outcomes to SQLite. A nil *AuditLog is valid and
// records nothing.
type AuditLog struct {
	db *sql.DB
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS relay_audit (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	request_id TEXT NOT NULL,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	caller TEXT NOT NULL,
	channel TEXT NOT NULL,
	model TEXT,
	status INTEGER NOT NULL,
	input_hash TEXT NOT NULL,
	full_input TEXT NOT NULL,
	full_output TEXT NOT NULL,
	input_tokens INTEGER,
	output_tokens INTEGER,
	error TEXT
);

CREATE INDEX IF NOT EXISTS idx_request_id ON relay_audit(request_id);
CREATE INDEX IF NOT EXISTS idx_timestamp ON relay_audit(timestamp);
CREATE INDEX IF NOT EXISTS idx_model ON relay_audit(model);
`

// OpenAuditLog opens (creating if needed) the audit database at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	// sqlite serialises writers anyway; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(auditSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create audit schema: %w", err)
	}

	log.Printf("[AUDIT] Relay audit database initialized at %s", path)
	return &AuditLog{db: db}, nil
}

// Close releases the database.
func (a *AuditLog) Close() error {
	if a == nil {
		return nil
	}
	return a.db.Close()
}

// Record stores entry. Failures are logged and otherwise ignored.
func (a *AuditLog) Record(entry AuditEntry) {
	if a == nil {
		return
	}

	query := `
		INSERT INTO relay_audit (
			request_id, caller, channel, model, status, input_hash,
			full_input, full_output, input_tokens, output_tokens, error
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := a.db.Exec(query,
		entry.RequestID, entry.Caller, entry.Channel, entry.Model, entry.Status,
		generateSignature(entry.FullInput), entry.FullInput, entry.FullOutput,
		entry.InputTokens, entry.OutputTokens, entry.Error)
	if err != nil {
		log.Printf("[AUDIT] Failed to log relay interaction: %v", err)
		return
	}

	id, _ := result.LastInsertId()
	log.Printf("[AUDIT] Logged interaction ID=%d, RequestID=%s, Model=%s, Status=%d, InputLen=%d, OutputLen=%d",
		id, entry.RequestID, entry.Model, entry.Status, len(entry.FullInput), len(entry.FullOutput))
}

// History returns the most recent entries for caller, oldest first.
func (a *AuditLog) History(caller string, limit int) ([]AuditEntry, error) {
	if a == nil {
		return nil, fmt.Errorf("audit database not initialized")
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, request_id, timestamp, caller, channel, COALESCE(model, ''), status,
		       input_hash, full_input, full_output, input_tokens, output_tokens, COALESCE(error, '')
		FROM relay_audit
		WHERE caller = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := a.db.Query(query, caller, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		err := rows.Scan(
			&entry.ID, &entry.RequestID, &entry.Timestamp, &entry.Caller, &entry.Channel,
			&entry.Model, &entry.Status, &entry.InputHash,
			&entry.FullInput, &entry.FullOutput,
			&entry.InputTokens, &entry.OutputTokens, &entry.Error,
		)
		if err != nil {
			log.Printf("[AUDIT] Error scanning row: %v", err)
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// newest were fetched first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
