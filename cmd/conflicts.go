package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brightpath-mentoring/mentorsync/internal/model"
)

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Review and resolve reconciliation conflicts",
	Long:  "Commands for listing pending conflicts and marking them resolved or skipped. This is the only write interface to conflict records.",
}

var conflictsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conflicts",
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

		status, _ := cmd.Flags().GetString("status")
		conflicts, err := st.ListConflicts(ctx, model.ConflictStatus(status))
		if err != nil {
			return eris.Wrap(err, "conflicts list")
		}
		if len(conflicts) == 0 {
			fmt.Fprintln(os.Stderr, "No conflicts found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tMENTOR\tKIND\tSEVERITY\tSTATUS\tOPTION A\tOPTION B\tREC\tDETECTED")
		for _, c := range conflicts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				c.ID, c.MentorCode, c.Kind, c.Severity, c.Status,
				c.OptionA.Label, c.OptionB.Label, c.Recommended,
				c.DetectedAt.Format("2006-01-02 15:04"),
			)
		}
		return w.Flush()
	},
}

var conflictsResolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Mark a pending conflict resolved",
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

		by, _ := cmd.Flags().GetString("by")
		decision, _ := cmd.Flags().GetString("decision")
		if err := st.ResolveConflict(ctx, args[0], model.ConflictResolved, by, decision); err != nil {
			return eris.Wrap(err, "conflicts resolve")
		}
		fmt.Printf("Conflict %s resolved.\n", args[0])
		return nil
	},
}

var conflictsSkipCmd = &cobra.Command{
	Use:   "skip <conflict-id>",
	Short: "Mark a pending conflict skipped",
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

		by, _ := cmd.Flags().GetString("by")
		if err := st.ResolveConflict(ctx, args[0], model.ConflictSkipped, by, ""); err != nil {
			return eris.Wrap(err, "conflicts skip")
		}
		fmt.Printf("Conflict %s skipped.\n", args[0])
		return nil
	},
}

func init() {
	conflictsListCmd.Flags().String("status", "pending", "filter by status (pending, resolved, skipped; empty for all)")
	conflictsResolveCmd.Flags().String("by", "", "who resolved the conflict")
	conflictsResolveCmd.Flags().String("decision", "", "free-text note on the chosen option")
	conflictsSkipCmd.Flags().String("by", "", "who skipped the conflict")

	conflictsCmd.AddCommand(conflictsListCmd, conflictsResolveCmd, conflictsSkipCmd)
	rootCmd.AddCommand(conflictsCmd)
}
