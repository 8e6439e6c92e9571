package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/iris/config"
	"github.com/Ramsey-B/iris/internal/app"
	"github.com/Ramsey-B/iris/pkg/jobs"
	"github.com/Ramsey-B/iris/pkg/logging"
	"github.com/Ramsey-B/iris/pkg/models"
)

var (
	envFile    string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "iris",
	Short: "Reconcile French political records across public sources",
	Long: `iris links politicians published by the Assemblée nationale, the Sénat, the European
Parliament, Wikidata and manual entry files to one canonical record each, detects and
merges duplicate judicial affairs, and closes mandates that have ended.

Every job checkpoints its progress and can be resumed with --resume.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Optional yaml, toml or json config file; the environment takes precedence")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.New(color.FgRed).Sprint("error: ")+err.Error())
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, context.Canceled) && !jobs.IsFatal(err) {
		return 130
	}
	return 1
}

// withApp loads configuration, builds the logger and starts the infrastructure opts asks for
func withApp(cmd *cobra.Command, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configFile, envFile)
	if err != nil {
		return jobs.Fatal(err)
	}

	logger, syncLogs, err := logging.New(cfg.Logging())
	if err != nil {
		return jobs.Fatal(err)
	}
	defer syncLogs()

	a, err := app.Start(ctx, cfg, logger, opts)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Error("Failed to start")
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	return fn(ctx, a)
}

// runJob is withApp plus the job lock, the duration metric and the metrics push
func runJob(cmd *cobra.Command, jobName string, fn func(ctx context.Context, a *app.App) error) error {
	return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
		started := time.Now()
		err := a.Locked(ctx, jobName, func(ctx context.Context) error {
			return fn(ctx, a)
		})
		a.Finish(ctx, jobName, started, err)
		if err != nil {
			a.Logger.WithContext(ctx).WithError(err).WithField("job", jobName).Error("Job failed")
		}
		return err
	})
}

func printSummary(w io.Writer, summary *jobs.Summary) {
	if summary == nil {
		return
	}
	fmt.Fprint(w, summary.String())
	if summary.ErrorCount > 0 {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprintf("%d records failed", summary.ErrorCount))
	}
}

func parseDay(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := models.ParseDate(value)
	if err != nil {
		return nil, jobs.Fatal(fmt.Errorf("--%s: %w", flag, err))
	}
	return d, nil
}
