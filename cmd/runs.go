package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/AnthusAI/plexus-feedback/internal/store"
)

var runsFlags struct {
	verb  string
	limit int
	table bool
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent analysis runs",
	Long:  "Shows the local run log: which verbs ran, over what, how long they took, and whether they failed.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return eris.Wrap(err, "runs")
		}
		defer st.Close()

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Verb:  runsFlags.verb,
			Limit: runsFlags.limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs recorded.")
			return nil
		}

		if runsFlags.table {
			formatRunsList(os.Stdout, runs)
			return nil
		}
		return printResult(runs, "Recent runs")
	},
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tVERB\tSCORECARD\tSCORE\tITEMS\tDURATION\tCREATED\tERROR")
	_, _ = fmt.Fprintln(w, "--\t----\t---------\t-----\t-----\t--------\t-------\t-----")

	for _, r := range runs {
		errMsg := r.Error
		if len(errMsg) > 40 {
			errMsg = errMsg[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Verb,
			r.Scorecard,
			r.Score,
			r.ItemCount,
			(time.Duration(r.DurationMS) * time.Millisecond).Round(time.Millisecond),
			r.CreatedAt.Format("2006-01-02 15:04"),
			errMsg,
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	runsCmd.Flags().StringVar(&runsFlags.verb, "verb", "", "filter by verb (summary, find, cost, dataset build, ...)")
	runsCmd.Flags().IntVar(&runsFlags.limit, "limit", 50, "max runs to display")
	runsCmd.Flags().BoolVar(&runsFlags.table, "table", false, "render as a table instead of --output format")

	rootCmd.AddCommand(runsCmd)
}
