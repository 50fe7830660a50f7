package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brightpath-mentoring/mentorsync/internal/ingest"
	"github.com/brightpath-mentoring/mentorsync/internal/model"
	"github.com/brightpath-mentoring/mentorsync/internal/reconcile"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run the full reconciliation batch",
	Long:  "Loads signups and CRM contacts (plus optional setup and campaign exports), deduplicates, matches, merges, and writes mentor records, conflicts, and the error log to the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		signups, _ := cmd.Flags().GetString("signups")
		contacts, _ := cmd.Flags().GetString("contacts")
		setup, _ := cmd.Flags().GetString("setup")
		campaign, _ := cmd.Flags().GetString("campaign")

		fm, err := ingest.LoadFieldMap(cfg.Ingest.FieldMapPath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		p, err := reconcile.New(cfg.Pipeline, st)
		if err != nil {
			return err
		}

		summary, err := p.Run(ctx, ingest.BuildSources(fm, ingest.Paths{
			Signups:  signups,
			Contacts: contacts,
			Setup:    setup,
			Campaign: campaign,
		}))
		if err != nil {
			return eris.Wrap(err, "reconcile")
		}

		printSummary(summary)
		return nil
	},
}

func printSummary(s *model.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Signups loaded:\t%d\n", s.TotalSignups)
	fmt.Fprintf(w, "After dedup:\t%d\n", s.Deduplicated)
	fmt.Fprintf(w, "Matched:\t%d\n", s.Matched)
	fmt.Fprintf(w, "Unmatched:\t%d\n", s.Unmatched)
	fmt.Fprintf(w, "Ambiguous:\t%d\n", s.Ambiguous)
	fmt.Fprintf(w, "Conflicts raised:\t%d\n", s.ConflictsRaised)
	fmt.Fprintf(w, "Conflicts already pending:\t%d\n", s.ConflictsExisting)
	fmt.Fprintf(w, "Errors logged:\t%d\n", s.ErrorsLogged)
	fmt.Fprintf(w, "Mentors written:\t%d\n", s.MentorsWritten)
	if s.BatchesFailed > 0 {
		fmt.Fprintf(w, "Batches failed:\t%d\n", s.BatchesFailed)
	}
	w.Flush() //nolint:errcheck
}

func init() {
	reconcileCmd.Flags().String("signups", "", "path to the signup export (json, csv, or xlsx)")
	reconcileCmd.Flags().String("contacts", "", "path to the CRM contact export (json or csv)")
	reconcileCmd.Flags().String("setup", "", "optional path to the fundraising-setup export")
	reconcileCmd.Flags().String("campaign", "", "optional path to the campaign-membership export")
	_ = reconcileCmd.MarkFlagRequired("signups")
	_ = reconcileCmd.MarkFlagRequired("contacts")
	rootCmd.AddCommand(reconcileCmd)
}
