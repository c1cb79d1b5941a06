package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/harun/onion/pkg/coretools"
	"github.com/harun/onion/pkg/cron"
	"github.com/harun/onion/pkg/history"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args after resetting the
// package-level flag variables that persist between executions.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cfgFile, logLevel, agentName = "", "", ""
	historyLimit, historyStats, historyJSON = 20, false, false
	toolsAll = false
	configForce = false
	scheduleExpr, scheduleTZ, scheduleMetricsAddr, scheduleRunNow = "", "", "", false

	cmd := GetRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func writeConfig(t *testing.T, dataDir string, extra string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "onion.json")
	content := fmt.Sprintf(`{"data_dir": %q, "history": {"backend": "jsonl"}%s}`, dataDir, extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func seedHistory(t *testing.T, dataDir, agent string, records ...history.TaskRecord) {
	t.Helper()

	rec, err := history.NewJSONLRecorder(filepath.Join(dataDir, "history"), agent)
	require.NoError(t, err)
	defer rec.Close()

	for _, r := range records {
		require.NoError(t, rec.Append(context.Background(), r))
	}
}

func sampleRecords() []history.TaskRecord {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []history.TaskRecord{
		{
			Timestamp: base,
			Task:      "What is 15 * 7 + 3?",
			ToolCalls: []history.ToolCallRecord{
				{Name: "calculate", Arguments: map[string]interface{}{"expression": "15*7+3"}, CallID: "c1", Result: "108", Status: history.ToolStatusSuccess},
			},
			Result:          "The answer is 108.",
			DurationSeconds: 1.5,
			Status:          history.StatusDone,
		},
		{
			Timestamp: base.Add(time.Minute),
			Task:      "Divide by zero",
			ToolCalls: []history.ToolCallRecord{
				{Name: "calculate", Arguments: map[string]interface{}{"expression": "1/0"}, CallID: "c2", Status: history.ToolStatusError, ErrorMessage: "math error: division by zero"},
			},
			Result:          "Task failed: model unavailable: boom",
			DurationSeconds: 0.5,
			Status:          history.StatusFailed,
		},
	}
}

func TestToolsCommand(t *testing.T) {
	t.Run("lists every built-in tool", func(t *testing.T) {
		out, err := executeCommand(t, "tools", "--all")
		require.NoError(t, err)

		for _, name := range coretools.Names {
			assert.Contains(t, out, name)
		}
		assert.Contains(t, out, "expression*:string")
		assert.Contains(t, out, "max_bytes:integer")
	})

	t.Run("respects enabled tools from config", func(t *testing.T) {
		cfg := writeConfig(t, t.TempDir(), `, "tools": {"enabled": ["calculate"]}`)

		out, err := executeCommand(t, "tools", "--config", cfg)
		require.NoError(t, err)

		assert.Contains(t, out, "calculate")
		assert.NotContains(t, out, "read_file")
	})
}

func TestHistoryCommand(t *testing.T) {
	color.NoColor = true

	t.Run("empty history", func(t *testing.T) {
		cfg := writeConfig(t, t.TempDir(), "")

		out, err := executeCommand(t, "history", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, `No history for agent "assistant"`)
	})

	t.Run("prints records", func(t *testing.T) {
		dataDir := t.TempDir()
		seedHistory(t, dataDir, "assistant", sampleRecords()...)
		cfg := writeConfig(t, dataDir, "")

		out, err := executeCommand(t, "history", "--config", cfg)
		require.NoError(t, err)

		assert.Contains(t, out, "What is 15 * 7 + 3?")
		assert.Contains(t, out, `calculate("expression":"15*7+3") -> 108`)
		assert.Contains(t, out, "!! math error: division by zero")
		assert.Contains(t, out, "Result: The answer is 108.")
		assert.Less(t, strings.Index(out, "#1"), strings.Index(out, "#2"))
	})

	t.Run("limit keeps the most recent", func(t *testing.T) {
		dataDir := t.TempDir()
		seedHistory(t, dataDir, "assistant", sampleRecords()...)
		cfg := writeConfig(t, dataDir, "")

		out, err := executeCommand(t, "history", "--config", cfg, "--limit", "1")
		require.NoError(t, err)

		assert.NotContains(t, out, "What is 15 * 7 + 3?")
		assert.Contains(t, out, "#2")
		assert.Contains(t, out, "1 older tasks not shown")
	})

	t.Run("agent flag selects history", func(t *testing.T) {
		dataDir := t.TempDir()
		seedHistory(t, dataDir, "research", sampleRecords()[0])
		cfg := writeConfig(t, dataDir, "")

		out, err := executeCommand(t, "--agent", "research", "history", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "What is 15 * 7 + 3?")

		out, err = executeCommand(t, "history", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "No history")
	})

	t.Run("stats", func(t *testing.T) {
		dataDir := t.TempDir()
		seedHistory(t, dataDir, "assistant", sampleRecords()...)
		cfg := writeConfig(t, dataDir, "")

		out, err := executeCommand(t, "history", "--config", cfg, "--stats")
		require.NoError(t, err)

		assert.Contains(t, out, "Tasks:")
		assert.Contains(t, out, "Failed:")
		assert.Contains(t, out, "1.00s")
		assert.Contains(t, out, "calculate")
	})

	t.Run("json lines", func(t *testing.T) {
		dataDir := t.TempDir()
		seedHistory(t, dataDir, "assistant", sampleRecords()...)
		cfg := writeConfig(t, dataDir, "")

		out, err := executeCommand(t, "history", "--config", cfg, "--json")
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)

		var got history.TaskRecord
		require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
		assert.Equal(t, "Divide by zero", got.Task)
		assert.True(t, got.Failed())
	})

	t.Run("invalid agent name", func(t *testing.T) {
		cfg := writeConfig(t, t.TempDir(), "")

		_, err := executeCommand(t, "--agent", "../escape", "history", "--config", cfg)
		assert.Error(t, err)
	})
}

func TestRunCommand(t *testing.T) {
	t.Run("requires a task", func(t *testing.T) {
		_, err := executeCommand(t, "run")
		assert.Error(t, err)
	})

	t.Run("rejects a missing API key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "")
		t.Setenv("ONION_MODEL_API_KEY", "")
		cfg := writeConfig(t, t.TempDir(), `, "model": {"provider": "openai", "model": "gpt-4o-mini"}`)

		_, err := executeCommand(t, "run", "--config", cfg, "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})
}

func TestScheduleCommand(t *testing.T) {
	t.Run("rejects invalid expression", func(t *testing.T) {
		_, err := executeCommand(t, "schedule", "--cron", "not a schedule", "hello")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid cron expression")
	})

	t.Run("flags", func(t *testing.T) {
		for _, name := range []string{"cron", "tz", "metrics-addr", "now"} {
			assert.NotNil(t, scheduleCmd.Flags().Lookup(name), name)
		}
	})
}

func TestConfigCommand(t *testing.T) {
	t.Run("init writes defaults once", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "onion.json")

		out, err := executeCommand(t, "config", "init", "--config", path)
		require.NoError(t, err)
		assert.Contains(t, out, "Configuration saved to: "+path)
		assert.FileExists(t, path)

		_, err = executeCommand(t, "config", "init", "--config", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")

		_, err = executeCommand(t, "config", "init", "--config", path, "--force")
		assert.NoError(t, err)
	})

	t.Run("show masks the API key", func(t *testing.T) {
		cfg := writeConfig(t, t.TempDir(), `, "model": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "sk-secret"}`)

		out, err := executeCommand(t, "config", "show", "--config", cfg)
		require.NoError(t, err)
		assert.Contains(t, out, "****")
		assert.NotContains(t, out, "sk-secret")
	})
}

func TestPrintJobResult(t *testing.T) {
	color.NoColor = true
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)

	t.Run("success", func(t *testing.T) {
		buf := &bytes.Buffer{}
		printJobResult(buf, cron.JobResult{Started: started, Result: "42", Duration: 1500 * time.Millisecond})

		assert.Contains(t, buf.String(), "2026-03-01 09:00:00 done (1.5s)")
		assert.Contains(t, buf.String(), "42")
	})

	t.Run("error", func(t *testing.T) {
		buf := &bytes.Buffer{}
		printJobResult(buf, cron.JobResult{Started: started, Err: fmt.Errorf("persist failed")})

		assert.Contains(t, buf.String(), "error persist failed")
	})
}

func TestFormatHelpers(t *testing.T) {
	t.Run("formatDuration", func(t *testing.T) {
		tests := []struct {
			name     string
			duration time.Duration
			expected string
		}{
			{"seconds only", 45 * time.Second, "45s"},
			{"minutes and seconds", 2*time.Minute + 30*time.Second, "2m30s"},
			{"hours minutes seconds", 3*time.Hour + 15*time.Minute + 20*time.Second, "3h15m20s"},
			{"zero", 0, "0s"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert.Equal(t, tt.expected, formatDuration(tt.duration))
			})
		}
	})

	t.Run("formatArguments", func(t *testing.T) {
		assert.Equal(t, "", formatArguments(nil))
		assert.Equal(t, `"a":1,"b":"x"`, formatArguments(map[string]interface{}{"b": "x", "a": 1}))
	})

	t.Run("oneLine", func(t *testing.T) {
		assert.Equal(t, "a b c", oneLine("a\n b\t c", 10))
		assert.Equal(t, "abc...", oneLine("abcdef", 3))
	})
}
