package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS task_records (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	agent TEXT NOT NULL,
	task_id TEXT NOT NULL DEFAULT '',
	timestamp TEXT NOT NULL,
	task TEXT NOT NULL,
	tool_calls TEXT NOT NULL,
	result TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	duration_seconds REAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_task_records_agent ON task_records(agent, seq);
`

// SQLiteRecorder stores records in a task_records table shared by agents.
type SQLiteRecorder struct {
	db        *sql.DB
	agentName string
	mu        sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database at path.
func NewSQLiteRecorder(path, agentName string) (*SQLiteRecorder, error) {
	if err := ValidateAgentName(agentName); err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Debug().Str("path", path).Str("agent", agentName).Msg("SQLite history recorder initialized")

	return &SQLiteRecorder{db: db, agentName: agentName}, nil
}

func (sr *SQLiteRecorder) Append(ctx context.Context, r TaskRecord) (err error) {
	ctx, finish := startAppend(ctx, BackendSQLite, sr.agentName)
	defer func() { finish(err) }()

	if err := validateRecord(r); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}

	toolCalls, err := json.Marshal(r.Clone().ToolCalls)
	if err != nil {
		return fmt.Errorf("failed to marshal tool calls: %w", err)
	}

	sr.mu.Lock()
	defer sr.mu.Unlock()

	_, err = sr.db.ExecContext(ctx, `
		INSERT INTO task_records (agent, task_id, timestamp, task, tool_calls, result, status, duration_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.agentName,
		r.TaskID,
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		r.Task,
		string(toolCalls),
		r.Result,
		r.Status,
		r.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task record: %w", err)
	}

	return nil
}

func (sr *SQLiteRecorder) Records(ctx context.Context) ([]TaskRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := sr.db.QueryContext(ctx, `
		SELECT task_id, timestamp, task, tool_calls, result, status, duration_seconds
		FROM task_records WHERE agent = ? ORDER BY seq ASC`, sr.agentName)
	if err != nil {
		return nil, fmt.Errorf("failed to query task records: %w", err)
	}
	defer rows.Close()

	records := []TaskRecord{}
	for rows.Next() {
		var (
			r         TaskRecord
			ts        string
			toolCalls string
		)
		if err := rows.Scan(&r.TaskID, &ts, &r.Task, &toolCalls, &r.Result, &r.Status, &r.DurationSeconds); err != nil {
			return nil, fmt.Errorf("failed to scan task record: %w", err)
		}

		r.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp %q: %w", ts, err)
		}
		if err := json.Unmarshal([]byte(toolCalls), &r.ToolCalls); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tool calls: %w", err)
		}
		if r.ToolCalls == nil {
			r.ToolCalls = []ToolCallRecord{}
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate task records: %w", err)
	}

	return records, nil
}

func (sr *SQLiteRecorder) Close() error {
	return sr.db.Close()
}
