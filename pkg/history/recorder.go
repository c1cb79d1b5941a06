package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/harun/onion/internal/observability"
	"github.com/harun/onion/internal/tracing"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// Backend names accepted by Open.
const (
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
	BackendMemory = "memory"
)

const tracerName = "onion.history"

// Recorder is an append-only store of task records for a single agent.
type Recorder interface {
	// Append persists r after every previously appended record.
	Append(ctx context.Context, r TaskRecord) error
	// Records returns all records in append order.
	Records(ctx context.Context) ([]TaskRecord, error)
	Close() error
}

// StoreConfig selects and locates a history backend.
type StoreConfig struct {
	Backend string
	Dir     string
}

// Open creates the recorder for agentName described by cfg.
func Open(cfg StoreConfig, agentName string) (Recorder, error) {
	if err := ValidateAgentName(agentName); err != nil {
		return nil, err
	}

	backend := cfg.Backend
	if backend == "" {
		backend = BackendJSONL
	}

	if backend != BackendMemory {
		if cfg.Dir == "" {
			return nil, fmt.Errorf("history directory is required for %s backend", backend)
		}
		if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	switch backend {
	case BackendJSONL:
		return NewJSONLRecorder(cfg.Dir, agentName)
	case BackendSQLite:
		return NewSQLiteRecorder(filepath.Join(cfg.Dir, "history.db"), agentName)
	case BackendBolt:
		return NewBoltRecorder(filepath.Join(cfg.Dir, "history.bolt"), agentName)
	case BackendMemory:
		return NewMemoryRecorder(), nil
	default:
		return nil, fmt.Errorf("unknown history backend: %s", backend)
	}
}

// startAppend opens a span for an append and returns a finisher that records
// metrics and span status.
func startAppend(ctx context.Context, backend, agentName string) (context.Context, func(error)) {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, tracerName, "history.append",
		attribute.String("backend", backend),
		attribute.String("agent", agentName),
	)
	return ctx, func(err error) {
		tracing.FailSpan(span, err)
		span.End()
		observability.RecordHistoryAppend(backend, time.Since(start), err == nil)
		if err != nil {
			log.Error().Err(err).Str("backend", backend).Str("agent", agentName).Msg("Failed to append task record")
		}
	}
}
