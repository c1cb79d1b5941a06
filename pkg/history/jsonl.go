package history

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/harun/onion/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

const maxLineSize = 16 * 1024 * 1024

// JSONLRecorder appends records as JSON lines to <dir>/<agent>.jsonl.
type JSONLRecorder struct {
	dir       string
	agentName string
	mu        sync.Mutex
}

// NewJSONLRecorder creates a recorder writing to dir. The directory is created if needed.
func NewJSONLRecorder(dir, agentName string) (*JSONLRecorder, error) {
	if err := ValidateAgentName(agentName); err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, fmt.Errorf("history directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	log.Debug().Str("dir", dir).Str("agent", agentName).Msg("JSONL history recorder initialized")

	return &JSONLRecorder{dir: dir, agentName: agentName}, nil
}

// Path returns the file records are written to.
func (jr *JSONLRecorder) Path() string {
	return filepath.Join(jr.dir, jr.agentName+".jsonl")
}

// Append writes r as a single line and syncs the file.
func (jr *JSONLRecorder) Append(ctx context.Context, r TaskRecord) (err error) {
	_, finish := startAppend(ctx, BackendJSONL, jr.agentName)
	defer func() { finish(err) }()

	if err := validateRecord(r); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}

	data, err := json.Marshal(r.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	jr.mu.Lock()
	defer jr.mu.Unlock()

	file, err := os.OpenFile(jr.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write task record: %w", err)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync history file: %w", err)
	}

	return nil
}

// Records reads every record in file order. Unparseable lines are skipped.
func (jr *JSONLRecorder) Records(ctx context.Context) ([]TaskRecord, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "history.records",
		attribute.String("backend", BackendJSONL),
		attribute.String("agent", jr.agentName),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	jr.mu.Lock()
	defer jr.mu.Unlock()

	file, err := os.Open(jr.Path())
	if os.IsNotExist(err) {
		return []TaskRecord{}, nil
	}
	if err != nil {
		tracing.FailSpan(span, err)
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	records := []TaskRecord{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r TaskRecord
		if err := json.Unmarshal(line, &r); err != nil {
			logger.Warn().
				Str("agent", jr.agentName).
				Int("line", lineNum).
				Err(err).
				Msg("Failed to parse history line, skipping")
			continue
		}
		if r.ToolCalls == nil {
			r.ToolCalls = []ToolCallRecord{}
		}
		records = append(records, r)
	}

	if err := scanner.Err(); err != nil {
		tracing.FailSpan(span, err)
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	return records, nil
}

// Close is a no-op; files are opened per operation.
func (jr *JSONLRecorder) Close() error {
	return nil
}
