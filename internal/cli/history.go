package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/harun/onion/pkg/history"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyStats bool
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded tasks for an agent",
	Long: heredoc.Doc(`
		Show the task history of the selected agent, oldest first. Each
		entry lists the task, every tool call made while solving it and
		the final result.
	`),
	Example: heredoc.Doc(`
		$ onion history --limit 5
		$ onion --agent research history --stats
		$ onion history --json | jq .result
	`),
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "show at most this many recent tasks (0 for all)")
	historyCmd.Flags().BoolVar(&historyStats, "stats", false, "print aggregate statistics instead of records")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print records as JSON lines")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	recorder, err := openRecorder(cfg)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer recorder.Close()

	records, err := recorder.Records(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case historyStats:
		printSummary(out, cfg.Agent.Name, history.Summarize(records))
		return nil
	case historyJSON:
		return printRecordsJSON(out, history.Last(records, historyLimit))
	default:
		printRecords(out, cfg.Agent.Name, records, historyLimit)
		return nil
	}
}

func printRecords(w io.Writer, agent string, records []history.TaskRecord, limit int) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No history for agent %q\n", agent)
		return
	}

	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()

	shown := history.Last(records, limit)
	offset := len(records) - len(shown)

	for i, r := range shown {
		status := ok(history.StatusDone)
		if r.Failed() {
			status = bad(history.StatusFailed)
		}

		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			bold(fmt.Sprintf("#%d", offset+i+1)),
			r.Timestamp.Local().Format(time.DateTime),
			status,
			dim(fmt.Sprintf("%.2fs", r.DurationSeconds)),
		)
		fmt.Fprintf(w, "  Task:   %s\n", r.Task)

		for _, tc := range r.ToolCalls {
			marker := ok("->")
			outcome := tc.Result
			if tc.Status == history.ToolStatusError {
				marker = bad("!!")
				outcome = tc.ErrorMessage
			}
			fmt.Fprintf(w, "  Tool:   %s(%s) %s %s\n", tc.Name, formatArguments(tc.Arguments), marker, oneLine(outcome, 120))
		}

		fmt.Fprintf(w, "  Result: %s\n\n", r.Result)
	}

	if offset > 0 {
		fmt.Fprintln(w, dim(fmt.Sprintf("(%d older tasks not shown, use --limit 0 to show all)", offset)))
	}
}

func printSummary(w io.Writer, agent string, s history.Summary) {
	table := uitable.New()
	table.MaxColWidth = 60

	table.AddRow("Agent:", agent)
	table.AddRow("Tasks:", s.Tasks)
	table.AddRow("Failed:", s.Failed)
	table.AddRow("Tool calls:", s.ToolCalls)
	table.AddRow("Tool errors:", s.ToolErrors)
	table.AddRow("Avg duration:", fmt.Sprintf("%.2fs", s.AverageDuration))
	table.AddRow("Total duration:", formatDuration(time.Duration(s.TotalDuration*float64(time.Second))))
	if s.Tasks > 0 {
		table.AddRow("First task:", s.First.Local().Format(time.DateTime))
		table.AddRow("Last task:", s.Last.Local().Format(time.DateTime))
	}
	fmt.Fprintln(w, table)

	top := s.TopTools()
	if len(top) == 0 {
		return
	}

	fmt.Fprintln(w)
	usage := uitable.New()
	usage.AddRow("TOOL", "CALLS")
	for _, tc := range top {
		usage.AddRow(tc.Name, tc.Count)
	}
	fmt.Fprintln(w, usage)
}

func printRecordsJSON(w io.Writer, records []history.TaskRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
	}
	return nil
}

func formatArguments(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return strings.TrimSuffix(strings.TrimPrefix(string(data), "{"), "}")
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
