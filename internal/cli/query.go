package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlsleuth/internal/baseline"
	"github.com/ppiankov/sqlsleuth/internal/engine"
	"github.com/ppiankov/sqlsleuth/internal/reporter"
	"github.com/ppiankov/sqlsleuth/internal/schema"
)

func newQueryCmd(version string) *cobra.Command {
	var (
		repo           string
		sql            string
		file           string
		format         string
		baselinePath   string
		updateBaseline string
		parallel       int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Trace a single SQL query to the code that could have produced it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			input, err := readInput(cmd, sql, file)
			if err != nil {
				return err
			}

			// Use config format as default if flag not explicitly set
			if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
				format = cfg.Defaults.Format
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TimeoutDuration())
			defer cancel()

			eng, err := engine.New(repo, &cfg, parallel)
			if err != nil {
				return fmt.Errorf("init engine: %w", err)
			}

			qr := eng.AnalyzeQuery(ctx, input)
			if err := validateSchema(ctx, qr); err != nil {
				return err
			}

			if updateBaseline != "" {
				if err := baseline.Save(updateBaseline, qr.Fingerprint, qr.Matches); err != nil {
					return fmt.Errorf("save baseline: %w", err)
				}
				slog.Info("baseline saved", "path", updateBaseline, "matches", len(qr.Matches))
			}
			if baselinePath != "" {
				bl, err := baseline.Load(baselinePath)
				if err != nil {
					return fmt.Errorf("load baseline: %w", err)
				}
				var n int
				qr.Matches, n = bl.Filter(qr.Fingerprint, qr.Matches)
				qr.Suppressed += n
			}

			report := reporter.NewQueryReport(version, qr)
			if err := reporter.Write(cmd.OutOrStdout(), &report, reporter.Format(format)); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if qr.Error != "" {
				return &ExitError{Code: 2, Msg: qr.Error}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to the application repository to search (required)")
	cmd.Flags().StringVar(&sql, "sql", "", "SQL statement to analyze")
	cmd.Flags().StringVar(&file, "file", "", "file containing the SQL statement")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or sarif")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline file (suppress known matches)")
	cmd.Flags().StringVar(&updateBaseline, "update-baseline", "", "save current matches as new baseline")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of concurrent statement analyses (0=default)")

	return cmd
}

// validateSchema checks the analyzed query against the live database when a
// connection URL is configured. Issues become report notes.
func validateSchema(ctx context.Context, qr *engine.QueryReport) error {
	if dbURL == "" || qr.Query == nil {
		return nil
	}
	insp, err := schema.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer insp.Close()

	issues, err := insp.ValidateQuery(ctx, qr.Query)
	if err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	qr.Notes = append(qr.Notes, issues...)
	return nil
}
