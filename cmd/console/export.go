package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/epi-console/internal/bootstrap"
	"github.com/kirillkom/epi-console/internal/core/domain"
)

var (
	exportOut    string
	exportLimit  int
	exportStatus string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write recent decisions to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context(), cmd.OutOrStdout())
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "decisoes.xlsx", "output file")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "number of decisions (default DECISIONS_LIMIT)")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "only approved, rejected or pending decisions")
	rootCmd.AddCommand(exportCmd)
}

func runExport(ctx context.Context, out io.Writer) error {
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{LogWriter: io.Discard, SkipStatus: true})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	limit := exportLimit
	if limit <= 0 {
		limit = cfg.DecisionsLimit
	}
	decisions, err := app.Client.GetDecisionsByStatus(ctx, limit, domain.DecisionStatus(exportStatus))
	if err != nil {
		return fmt.Errorf("fetch decisions: %w", err)
	}

	data, err := app.Exporter.Export(decisions)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(out, "%d decisions written to %s\n", len(decisions), exportOut)
	return nil
}
