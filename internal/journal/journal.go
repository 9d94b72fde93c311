// Package journal keeps an append-only record of edits applied to workflow
// files, in SQLite or PostgreSQL.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/yxflow/internal/workflow"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS edits (
    id          TEXT PRIMARY KEY,
    recorded_at BIGINT NOT NULL,
    workflow    TEXT NOT NULL,
    operation   TEXT NOT NULL,
    changes     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_edits_workflow ON edits(workflow, recorded_at);
`

// Entry is one recorded edit.
type Entry struct {
	ID         string    `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Workflow   string    `json:"workflow"`
	Operation  string    `json:"operation"`
	Changes    []string  `json:"changes"`
}

// Journal records edits. It is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// NormalizeDriver maps common spellings onto DriverSQLite or DriverPostgres.
func NormalizeDriver(name string) (string, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "pgx", "postgres", "postgresql":
		return DriverPostgres, nil
	}
	return "", workflow.Errorf(workflow.ErrInvalidArgument, "unknown journal driver %q", name)
}

// Open connects to dsn and creates the schema if needed.
func Open(ctx context.Context, driver, dsn string) (*Journal, error) {
	driver, err := NormalizeDriver(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", driver, err)
	}
	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY between pooled connections.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &Journal{db: db, driver: driver, now: time.Now}, nil
}

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (j *Journal) placeholder(n int) string {
	if j.driver == DriverPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Record appends an edit. It satisfies mutate.Recorder.
func (j *Journal) Record(ctx context.Context, workflowPath, operation string, changes []string) error {
	if changes == nil {
		changes = []string{}
	}
	body, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("encode changes: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate entry id: %w", err)
	}
	q := fmt.Sprintf(`INSERT INTO edits (id, recorded_at, workflow, operation, changes) VALUES (%s, %s, %s, %s, %s)`,
		j.placeholder(1), j.placeholder(2), j.placeholder(3), j.placeholder(4), j.placeholder(5))
	if _, err := j.db.ExecContext(ctx, q, id.String(), j.now().UnixNano(), workflowPath, operation, string(body)); err != nil {
		return fmt.Errorf("record edit: %w", err)
	}
	return nil
}

// List returns the most recent entries first. An empty workflowPath lists
// every workflow; limit <= 0 means no limit.
func (j *Journal) List(ctx context.Context, workflowPath string, limit int) ([]Entry, error) {
	q := `SELECT id, recorded_at, workflow, operation, changes FROM edits`
	var args []any
	if workflowPath != "" {
		args = append(args, workflowPath)
		q += " WHERE workflow = " + j.placeholder(len(args))
	}
	q += " ORDER BY recorded_at DESC, id DESC"
	if limit > 0 {
		args = append(args, limit)
		q += " LIMIT " + j.placeholder(len(args))
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e       Entry
			nanos   int64
			changes string
		)
		if err := rows.Scan(&e.ID, &nanos, &e.Workflow, &e.Operation, &changes); err != nil {
			return nil, fmt.Errorf("scan edit: %w", err)
		}
		e.RecordedAt = time.Unix(0, nanos).UTC()
		if err := json.Unmarshal([]byte(changes), &e.Changes); err != nil {
			return nil, fmt.Errorf("decode changes of %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list edits: %w", err)
	}
	return entries, nil
}

// Close releases the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
