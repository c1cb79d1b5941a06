package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/fatih/color"
	"github.com/harun/onion/internal/observability"
	"github.com/harun/onion/pkg/cron"
	"github.com/spf13/cobra"
)

var (
	scheduleExpr        string
	scheduleTZ          string
	scheduleMetricsAddr string
	scheduleRunNow      bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule [task]",
	Short: "Run a task repeatedly on a cron schedule",
	Long: heredoc.Doc(`
		Run a task on a cron schedule until interrupted. Standard five-field
		expressions and descriptors such as @hourly or "@every 10m" are
		accepted. A run that is still in progress when the next one is due
		causes that tick to be skipped.

		Every run is recorded in the agent history like "onion run".
	`),
	Example: heredoc.Doc(`
		$ onion schedule --cron "@every 30m" "Summarize the time in UTC"
		$ onion schedule --cron "0 9 * * 1-5" --tz Europe/Paris "What time is it?"
	`),
	Args: cobra.MinimumNArgs(1),
	RunE: runSchedule,
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleExpr, "cron", "", "cron expression (required)")
	scheduleCmd.Flags().StringVar(&scheduleTZ, "tz", "", "IANA time zone for the expression (default local)")
	scheduleCmd.Flags().StringVar(&scheduleMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "now", false, "also run the task once immediately")
	_ = scheduleCmd.MarkFlagRequired("cron")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	task := strings.TrimSpace(strings.Join(args, " "))
	if task == "" {
		return fmt.Errorf("task cannot be empty")
	}
	if err := cron.Validate(scheduleExpr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	out := cmd.OutOrStdout()
	var outMu sync.Mutex
	scheduler := cron.New(a.agent,
		cron.WithLogger(a.log.GetZerolog()),
		cron.WithResultHandler(func(res cron.JobResult) {
			outMu.Lock()
			defer outMu.Unlock()
			printJobResult(out, res)
		}),
	)

	job, err := scheduler.AddJob(scheduleExpr, task, scheduleTZ)
	if err != nil {
		return err
	}

	if scheduleMetricsAddr != "" {
		srv := serveMetrics(scheduleMetricsAddr, a)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if err := scheduler.Start(); err != nil {
		return err
	}

	if next, ok := scheduler.NextRun(job.ID); ok {
		fmt.Fprintf(out, "Scheduled %q (%s), next run in %s\n", task, job.Expr, formatDuration(time.Until(next)))
	}

	if scheduleRunNow {
		if err := scheduler.RunNow(job.ID); err != nil {
			a.log.Warn().Err(err).Msg("Immediate run failed to start")
		}
	}

	<-ctx.Done()
	fmt.Fprintln(out, "Stopping scheduler...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return scheduler.Stop(stopCtx)
}

func serveMetrics(addr string, a *app) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		a.log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}

func printJobResult(w io.Writer, res cron.JobResult) {
	stamp := res.Started.Local().Format(time.DateTime)
	if res.Err != nil {
		fmt.Fprintf(w, "%s %s %v\n", stamp, color.RedString("error"), res.Err)
		return
	}
	fmt.Fprintf(w, "%s %s (%s)\n%s\n", stamp, color.GreenString("done"), res.Duration.Round(time.Millisecond), res.Result)
}
