package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [task]",
	Short: "Run a single task and print the answer",
	Long: heredoc.Doc(`
		Run a task through the agent. The model may call the enabled tools
		any number of times before answering. The answer is printed to
		stdout and the run is appended to the agent history.
	`),
	Example: heredoc.Doc(`
		$ onion run "What is 15 * 7 + 3?"
		$ onion --agent research run "What time is it in UTC?"
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		return fmt.Errorf("task cannot be empty")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.agent.Run(ctx, task)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
