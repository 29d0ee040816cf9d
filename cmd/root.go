package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/config"
	"github.com/AnthusAI/plexus-feedback/internal/output"
	"github.com/AnthusAI/plexus-feedback/internal/store"
	"github.com/AnthusAI/plexus-feedback/pkg/dashboard"
)

var (
	cfg       *config.Config
	outFormat string
)

var rootCmd = &cobra.Command{
	Use:   "plexus-feedback",
	Short: "Analyze human feedback on AI classification results",
	Long:  "Summarizes reviewer agreement, searches feedback records, aggregates prediction costs, and builds evaluation datasets from a remote dashboard service.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outFormat, "output", "json", "output format (json or yaml)")
}

// newClient builds the dashboard client from config.
func newClient() dashboard.Client {
	var opts []dashboard.Option
	if cfg.Dashboard.RateLimit > 0 {
		opts = append(opts, dashboard.WithRateLimit(cfg.Dashboard.RateLimit))
	}
	return dashboard.NewClient(cfg.Dashboard.URL, cfg.Dashboard.APIKey, opts...)
}

// printResult renders v in the selected format to stdout.
func printResult(v any, header ...string) error {
	format, err := output.ParseFormat(outFormat)
	if err != nil {
		return err
	}
	s, err := output.Render(v, format, header...)
	if err != nil {
		return err
	}
	fmt.Println(s)
	return nil
}

// fail emits the uniform error object and passes the error through, so
// scripted consumers always get parseable output on stdout.
func fail(err error) error {
	format, ferr := output.ParseFormat(outFormat)
	if ferr != nil {
		format = output.JSON
	}
	if s, rerr := output.Render(output.NewError(err), format); rerr == nil {
		fmt.Println(s)
	}
	return err
}

// openStore opens the configured run-log backend.
func openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// recordRun logs one invocation to the run store. Best effort: a store
// failure is logged and never fails the command.
func recordRun(ctx context.Context, verb, scorecard, score string, params any, itemCount int, started time.Time, runErr error) {
	st, err := openStore(ctx)
	if err != nil {
		zap.L().Warn("run log unavailable", zap.Error(err))
		return
	}
	defer st.Close()

	paramsJSON, _ := json.Marshal(params)
	run := &store.Run{
		Verb:       verb,
		Scorecard:  scorecard,
		Score:      score,
		Parameters: string(paramsJSON),
		ItemCount:  itemCount,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := st.RecordRun(ctx, run); err != nil {
		zap.L().Warn("record run failed", zap.Error(err))
	}
}

// allScorecards reports whether the invocation asks for account-wide
// fan-out, either through the --all flag or the literal scorecard "all".
// The literal is intercepted before resolution so it never falls into the
// substring name match, where any scorecard named like "Call Handling"
// would win.
func allScorecards(flagAll bool, scorecard string) bool {
	return flagAll || strings.EqualFold(strings.TrimSpace(scorecard), "all")
}

// parseDate parses a YYYY-MM-DD flag value; empty means unset.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return t, nil
}
