package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"doc-triage/internal/database"
	"doc-triage/internal/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		limit    int
		document string
		show     string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored triage runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if db == nil {
				return errors.New("history requires database.url or DATABASE_URL")
			}
			defer db.Close()

			if show != "" {
				r, err := db.GetRun(ctx, show)
				if err != nil {
					return err
				}
				return report.Write(os.Stdout, r)
			}

			var runs []database.RunSummary
			if document != "" {
				runs, err = db.RunsForDocument(ctx, document, limit)
			} else {
				runs, err = db.RecentRuns(ctx, limit)
			}
			if err != nil {
				return err
			}

			if len(runs) == 0 {
				fmt.Println("No runs stored.")
				return nil
			}
			for _, run := range runs {
				fmt.Println(formatRun(run))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to list")
	cmd.Flags().StringVar(&document, "document", "", "Only list runs that included this document")
	cmd.Flags().StringVar(&show, "show", "", "Print the stored report of a run ID")
	return cmd
}

func formatRun(run database.RunSummary) string {
	return fmt.Sprintf("%s  %s  %-20s %d sections  %s\n    %s",
		run.ID,
		run.ProcessedAt.Format("2006-01-02 15:04"),
		run.Persona,
		run.Sections,
		strings.Join(run.Documents, ", "),
		run.JobToBeDone)
}
