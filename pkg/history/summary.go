package history

import (
	"sort"
	"time"
)

// Summary aggregates a slice of records.
type Summary struct {
	Tasks           int            `json:"tasks"`
	Failed          int            `json:"failed"`
	ToolCalls       int            `json:"tool_calls"`
	ToolErrors      int            `json:"tool_errors"`
	ToolUsage       map[string]int `json:"tool_usage"`
	AverageDuration float64        `json:"average_duration_seconds"`
	TotalDuration   float64        `json:"total_duration_seconds"`
	First           time.Time      `json:"first,omitempty"`
	Last            time.Time      `json:"last,omitempty"`
}

// ToolCount is one entry of Summary.TopTools.
type ToolCount struct {
	Name  string
	Count int
}

// Summarize computes aggregate statistics over records.
func Summarize(records []TaskRecord) Summary {
	s := Summary{ToolUsage: make(map[string]int)}

	for _, r := range records {
		s.Tasks++
		if r.Failed() {
			s.Failed++
		}
		s.TotalDuration += r.DurationSeconds

		for _, tc := range r.ToolCalls {
			s.ToolCalls++
			s.ToolUsage[tc.Name]++
			if tc.Status == ToolStatusError {
				s.ToolErrors++
			}
		}

		if s.First.IsZero() || r.Timestamp.Before(s.First) {
			s.First = r.Timestamp
		}
		if r.Timestamp.After(s.Last) {
			s.Last = r.Timestamp
		}
	}

	if s.Tasks > 0 {
		s.AverageDuration = s.TotalDuration / float64(s.Tasks)
	}

	return s
}

// TopTools returns tool usage sorted by descending count, then name.
func (s Summary) TopTools() []ToolCount {
	out := make([]ToolCount, 0, len(s.ToolUsage))
	for name, n := range s.ToolUsage {
		out = append(out, ToolCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Last returns at most n trailing records, preserving order.
func Last(records []TaskRecord, n int) []TaskRecord {
	if n <= 0 || n >= len(records) {
		return records
	}
	return records[len(records)-n:]
}
