package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"doc-triage/internal/job"
	"doc-triage/internal/pipeline"
	"doc-triage/internal/report"
	"doc-triage/internal/source"
)

const defaultOutputPath = "output/challenge1b_output.json"

func newRunCmd(a *app) *cobra.Command {
	var (
		input  string
		pdfDir string
		output string
		strict bool
		topK   int
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a triage job described by a manifest and write the report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			manifest, err := job.Load(input)
			if err != nil {
				return err
			}
			if pdfDir != "" {
				manifest.DocumentDir = pdfDir
			}

			db, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			if db != nil {
				defer db.Close()
			}

			p, err := a.factory(db)(source.FileOpener{}, pipeline.Options{TopK: topK, Strict: strict})
			if err != nil {
				return err
			}

			a.log.Info("processing manifest", "input", input, "documents", len(manifest.Documents), "output", output)
			startTime := time.Now()

			res, err := p.Run(ctx, pipeline.Request{
				Documents: manifest.Filenames(),
				Paths:     manifest.Paths(),
				Persona:   manifest.Persona.Role,
				Task:      manifest.JobToBeDone.Task,
			})
			if err != nil {
				return err
			}

			if err := report.WriteFile(output, res.Report); err != nil {
				return err
			}
			a.log.Info("completed", "output", output, "duration_ms", time.Since(startTime).Milliseconds())

			fmt.Fprint(os.Stderr, renderSummary(res, output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Path to the job manifest (required)")
	cmd.Flags().StringVar(&pdfDir, "pdf-dir", "", "Directory holding the documents (default <manifest dir>/PDFs)")
	cmd.Flags().StringVarP(&output, "output", "o", defaultOutputPath, "Path of the report to write")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail the run when any document cannot be read")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of sections to report (default from config)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
