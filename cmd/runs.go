package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past reconciliation runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tSIGNUPS\tMENTORS\tCONFLICTS\tERROR")
		for _, r := range runs {
			signups, mentors, conflicts := "-", "-", "-"
			if r.Summary != nil {
				signups = fmt.Sprintf("%d", r.Summary.TotalSignups)
				mentors = fmt.Sprintf("%d", r.Summary.MentorsWritten)
				conflicts = fmt.Sprintf("%d", r.Summary.ConflictsRaised)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				r.ID, r.Status, r.StartedAt.Format("2006-01-02 15:04"),
				signups, mentors, conflicts, r.Error,
			)
		}
		return w.Flush()
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run with its full summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		if run == nil {
			return eris.Errorf("run %s not found", args[0])
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "ID\t%s\n", run.ID)
		fmt.Fprintf(w, "Status\t%s\n", run.Status)
		fmt.Fprintf(w, "Started\t%s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
		if run.FinishedAt != nil {
			fmt.Fprintf(w, "Finished\t%s\n", run.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		if run.Error != "" {
			fmt.Fprintf(w, "Error\t%s\n", run.Error)
		}
		if s := run.Summary; s != nil {
			fmt.Fprintf(w, "Signups\t%d\n", s.TotalSignups)
			fmt.Fprintf(w, "Deduplicated\t%d\n", s.Deduplicated)
			fmt.Fprintf(w, "Matched\t%d\n", s.Matched)
			fmt.Fprintf(w, "Unmatched\t%d\n", s.Unmatched)
			fmt.Fprintf(w, "Ambiguous\t%d\n", s.Ambiguous)
			fmt.Fprintf(w, "Conflicts raised\t%d\n", s.ConflictsRaised)
			fmt.Fprintf(w, "Errors logged\t%d\n", s.ErrorsLogged)
			fmt.Fprintf(w, "Mentors written\t%d\n", s.MentorsWritten)
			fmt.Fprintf(w, "Batches failed\t%d\n", s.BatchesFailed)
		}
		return w.Flush()
	},
}

func init() {
	runsCmd.Flags().Int("limit", 20, "maximum number of runs to list")
	runsCmd.AddCommand(runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
