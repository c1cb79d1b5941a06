package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []TaskRecord{
		{
			Timestamp:       base.Add(time.Hour),
			Task:            "a",
			DurationSeconds: 2,
			Status:          StatusDone,
			ToolCalls: []ToolCallRecord{
				{Name: "search", Status: ToolStatusSuccess},
				{Name: "calculate", Status: ToolStatusSuccess},
				{Name: "search", Status: ToolStatusError},
			},
		},
		{
			Timestamp:       base,
			Task:            "b",
			DurationSeconds: 4,
			Status:          StatusFailed,
		},
	}

	s := Summarize(records)

	assert.Equal(t, 2, s.Tasks)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 3, s.ToolCalls)
	assert.Equal(t, 1, s.ToolErrors)
	assert.Equal(t, map[string]int{"search": 2, "calculate": 1}, s.ToolUsage)
	assert.InDelta(t, 3.0, s.AverageDuration, 1e-9)
	assert.Equal(t, base, s.First)
	assert.Equal(t, base.Add(time.Hour), s.Last)
	assert.Equal(t, []ToolCount{{Name: "search", Count: 2}, {Name: "calculate", Count: 1}}, s.TopTools())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Tasks)
	assert.Zero(t, s.AverageDuration)
	assert.Empty(t, s.TopTools())
}

func TestLast(t *testing.T) {
	records := []TaskRecord{{Task: "1"}, {Task: "2"}, {Task: "3"}}

	assert.Len(t, Last(records, 0), 3)
	assert.Len(t, Last(records, 5), 3)
	got := Last(records, 2)
	assert.Equal(t, "2", got[0].Task)
	assert.Equal(t, "3", got[1].Task)
}
