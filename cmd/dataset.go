package main

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AnthusAI/plexus-feedback/internal/dataset"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Build and refresh evaluation datasets from feedback",
}

// -- dataset build --

var datasetBuildFlags struct {
	scorecard    string
	score        string
	days         int
	startDate    string
	endDate      string
	initialValue string
	finalValue   string
	limit        int
	limitPerCell int
	noPrioritize bool
	feedbackID   string
	outputFile   string
	mappings     map[string]string
}

var datasetBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a dataset of reviewed items",
	Long:  "Retrieves feedback with nested items, samples evenly per confusion cell, and writes a CSV or XLSX file keyed by stable feedback ids.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()
		f := &datasetBuildFlags

		start, err := parseDate(f.startDate)
		if err != nil {
			return fail(err)
		}
		end, err := parseDate(f.endDate)
		if err != nil {
			return fail(err)
		}

		builder := dataset.NewBuilder(newClient())
		frame, err := builder.Build(ctx, dataset.BuildOptions{
			AccountID:              cfg.Dashboard.AccountID,
			Scorecard:              f.scorecard,
			Score:                  f.score,
			Days:                   f.days,
			Start:                  start,
			End:                    end,
			InitialValue:           f.initialValue,
			FinalValue:             f.finalValue,
			Limit:                  f.limit,
			LimitPerCell:           f.limitPerCell,
			PrioritizeEditComments: !f.noPrioritize,
			FeedbackID:             f.feedbackID,
			ColumnMappings:         f.mappings,
		})
		rows := 0
		if frame != nil {
			rows = len(frame.Rows)
		}
		recordRun(ctx, "dataset build", f.scorecard, f.score, f, rows, started, err)
		if err != nil {
			return fail(err)
		}

		if err := writeFrame(f.outputFile, frame); err != nil {
			return fail(err)
		}
		zap.L().Info("dataset written",
			zap.String("file", f.outputFile),
			zap.Int("rows", rows),
		)
		return nil
	},
}

// -- dataset reload --

var datasetReloadFlags struct {
	inputFile  string
	outputFile string
}

var datasetReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Refresh an existing dataset in place",
	Long:  "Re-reads each row's feedback record by its stable id and rewrites the value columns. Row set, order, and identifiers are preserved.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		started := time.Now()
		f := &datasetReloadFlags

		in, err := os.Open(f.inputFile)
		if err != nil {
			return fail(eris.Wrapf(err, "open %s", f.inputFile))
		}
		frame, err := dataset.ReadCSV(in)
		in.Close()
		if err != nil {
			return fail(err)
		}

		builder := dataset.NewBuilder(newClient())
		refreshed, err := builder.Reload(ctx, frame)
		rows := 0
		if refreshed != nil {
			rows = len(refreshed.Rows)
		}
		recordRun(ctx, "dataset reload", "", "", f, rows, started, err)
		if err != nil {
			return fail(err)
		}

		out := f.outputFile
		if out == "" {
			out = f.inputFile
		}
		if err := writeFrame(out, refreshed); err != nil {
			return fail(err)
		}
		zap.L().Info("dataset reloaded",
			zap.String("file", out),
			zap.Int("rows", rows),
		)
		return nil
	},
}

// writeFrame picks the encoder from the file extension.
func writeFrame(path string, frame *dataset.Frame) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return dataset.WriteXLSX(path, frame)
	case ".csv", "":
		w, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "create %s", path)
		}
		defer w.Close()
		return dataset.WriteCSV(w, frame)
	default:
		return eris.New("output file must end in .csv or .xlsx")
	}
}

func init() {
	b := datasetBuildCmd.Flags()
	b.StringVar(&datasetBuildFlags.scorecard, "scorecard", "", "scorecard id, external id, key, or name")
	b.StringVar(&datasetBuildFlags.score, "score", "", "score id, name, key, or external id")
	b.IntVar(&datasetBuildFlags.days, "days", 0, "window in days (default 30)")
	b.StringVar(&datasetBuildFlags.startDate, "start-date", "", "window start (YYYY-MM-DD)")
	b.StringVar(&datasetBuildFlags.endDate, "end-date", "", "window end (YYYY-MM-DD)")
	b.StringVar(&datasetBuildFlags.initialValue, "initial-value", "", "filter by AI answer value")
	b.StringVar(&datasetBuildFlags.finalValue, "final-value", "", "filter by reviewer answer value")
	b.IntVar(&datasetBuildFlags.limit, "limit", 0, "max rows (0 = all)")
	b.IntVar(&datasetBuildFlags.limitPerCell, "limit-per-cell", 0, "max rows per confusion cell (0 = all)")
	b.BoolVar(&datasetBuildFlags.noPrioritize, "no-prioritize-edits", false, "disable edit-comment prioritization when sampling")
	b.StringVar(&datasetBuildFlags.feedbackID, "feedback-id", "", "build from exactly one feedback record")
	b.StringVar(&datasetBuildFlags.outputFile, "output-file", "", "destination file (.csv or .xlsx)")
	b.StringToStringVar(&datasetBuildFlags.mappings, "column-mappings", nil, "rename score columns (scoreName=newName)")
	_ = datasetBuildCmd.MarkFlagRequired("scorecard")
	_ = datasetBuildCmd.MarkFlagRequired("score")
	_ = datasetBuildCmd.MarkFlagRequired("output-file")

	r := datasetReloadCmd.Flags()
	r.StringVar(&datasetReloadFlags.inputFile, "input-file", "", "existing dataset CSV")
	r.StringVar(&datasetReloadFlags.outputFile, "output-file", "", "destination (default: overwrite input)")
	_ = datasetReloadCmd.MarkFlagRequired("input-file")

	datasetCmd.AddCommand(datasetBuildCmd)
	datasetCmd.AddCommand(datasetReloadCmd)
	rootCmd.AddCommand(datasetCmd)
}
