// Package history persists one TaskRecord per executed task, in order, per
// agent name. Every backend is append-only: records are never rewritten.
//
// Backends:
//   - jsonl:  one <agent>.jsonl file per agent, a line per record
//   - sqlite: task_records table shared by all agents
//   - bolt:   one bucket per agent keyed by sequence number
//   - memory: process-local, for tests and embedding
//
// Records handed to Append are copied, and Records returns copies, so callers
// cannot alter stored history through shared maps or slices.
package history
