package history

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/rs/zerolog/log"
)

// BoltRecorder stores records in a bucket named after the agent, keyed by
// the bucket's monotonically increasing sequence.
type BoltRecorder struct {
	db        *bolt.DB
	bucket    []byte
	agentName string
}

// NewBoltRecorder opens (or creates) the bolt file at path.
func NewBoltRecorder(path, agentName string) (*BoltRecorder, error) {
	if err := ValidateAgentName(agentName); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bucket := []byte("agent:" + agentName)
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", bucket, err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Debug().Str("path", path).Str("agent", agentName).Msg("Bolt history recorder initialized")

	return &BoltRecorder{db: db, bucket: bucket, agentName: agentName}, nil
}

func (br *BoltRecorder) Append(ctx context.Context, r TaskRecord) (err error) {
	_, finish := startAppend(ctx, BackendBolt, br.agentName)
	defer func() { finish(err) }()

	if err := validateRecord(r); err != nil {
		return fmt.Errorf("invalid task record: %w", err)
	}

	data, err := json.Marshal(r.Clone())
	if err != nil {
		return fmt.Errorf("failed to marshal task record: %w", err)
	}

	return br.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(br.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("failed to allocate sequence: %w", err)
		}
		return b.Put(itob(seq), data)
	})
}

func (br *BoltRecorder) Records(ctx context.Context) ([]TaskRecord, error) {
	records := []TaskRecord{}
	err := br.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(br.bucket)
		return b.ForEach(func(k, v []byte) error {
			var r TaskRecord
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("failed to unmarshal task record %d: %w", binary.BigEndian.Uint64(k), err)
			}
			if r.ToolCalls == nil {
				r.ToolCalls = []ToolCallRecord{}
			}
			records = append(records, r)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list task records: %w", err)
	}
	return records, nil
}

func (br *BoltRecorder) Close() error {
	return br.db.Close()
}

// itob encodes v big-endian so bolt's byte ordering matches append order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
