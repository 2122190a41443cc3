package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlsleuth/internal/engine"
	"github.com/ppiankov/sqlsleuth/internal/reporter"
	"github.com/ppiankov/sqlsleuth/internal/sqlparse"
)

func newTransactionCmd(version string) *cobra.Command {
	var (
		repo     string
		file     string
		format   string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "transaction",
		Short: "Trace a multi-statement transaction log to its wrapper block",
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			input, err := readInput(cmd, "", file)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
				format = cfg.Defaults.Format
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TimeoutDuration())
			defer cancel()

			eng, err := engine.New(repo, &cfg, parallel)
			if err != nil {
				return fmt.Errorf("init engine: %w", err)
			}

			tr := eng.AnalyzeTransaction(ctx, input)
			report := reporter.NewTransactionReport(version, tr)
			if err := reporter.Write(cmd.OutOrStdout(), &report, reporter.Format(format)); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			if tr.Error != "" {
				return &ExitError{Code: 2, Msg: tr.Error}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to the application repository to search (required)")
	cmd.Flags().StringVar(&file, "file", "", "file containing the transaction log")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or sarif")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of concurrent statement analyses (0=default)")

	return cmd
}

func newAnalyzeCmd(version string) *cobra.Command {
	var (
		repo     string
		sql      string
		file     string
		format   string
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify the input and run the matching analysis",
		Long:  "Inspects the input and routes it: a single statement runs the query pipeline, a multi-statement log runs the transaction pipeline.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			input, err := readInput(cmd, sql, file)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
				format = cfg.Defaults.Format
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.TimeoutDuration())
			defer cancel()

			eng, err := engine.New(repo, &cfg, parallel)
			if err != nil {
				return fmt.Errorf("init engine: %w", err)
			}

			cls := eng.Classify(input)
			slog.Debug("input classified", "kind", cls.Kind, "confidence", cls.Confidence, "reason", cls.Reason)

			var report reporter.Report
			switch cls.Kind {
			case sqlparse.InputTransactionLog:
				report = reporter.NewTransactionReport(version, eng.AnalyzeTransaction(ctx, input))
			case sqlparse.InputSingleQuery:
				qr := eng.AnalyzeQuery(ctx, input)
				if err := validateSchema(ctx, qr); err != nil {
					return err
				}
				report = reporter.NewQueryReport(version, qr)
			case sqlparse.InputEmpty:
				return fmt.Errorf("empty input")
			default:
				return &ExitError{Code: 2, Msg: fmt.Sprintf("unrecognized input: %s", cls.Reason)}
			}

			if err := reporter.Write(cmd.OutOrStdout(), &report, reporter.Format(format)); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to the application repository to search (required)")
	cmd.Flags().StringVar(&sql, "sql", "", "SQL input to analyze")
	cmd.Flags().StringVar(&file, "file", "", "file containing SQL or a transaction log")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json, or sarif")
	cmd.Flags().IntVar(&parallel, "parallel", 0, "number of concurrent statement analyses (0=default)")

	return cmd
}
