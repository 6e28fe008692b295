// =============================================================================
// SEPA Export - Export Command
// =============================================================================
//
// Defines the 'export' command: the CLI shell around one export run. It
// wires the store, renderer, and validator from the configuration, hands
// the selected payment ids to the orchestrator, and presents the results.
//
// The command layer owns only presentation concerns: writing the XML
// copies to the output directory, the optional XLSX run summary, and the
// terminal output. All export semantics (filtering, batching, reference
// assignment, validation, atomic commit) live in internal/sepa.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finbatch/sepa-export/internal/payment"
	"github.com/finbatch/sepa-export/internal/report"
	"github.com/finbatch/sepa-export/internal/schema"
	"github.com/finbatch/sepa-export/internal/sepa"
	"github.com/finbatch/sepa-export/internal/store"
	"github.com/finbatch/sepa-export/pkg/utils"
)

// paymentIDs is the payment selection to export.
var paymentIDs []int64

// writeReport enables the XLSX run summary.
var writeReport bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export selected payments to SEPA credit transfer files",
	Long: `The export command runs one export over the payments named by --ids.

Only outbound, posted payments using the SEPA method are exported; other
selected payments are ignored. One file is generated per originating
journal, validated against the canonical schema, stored in the database,
and written to the output directory. All files of a run are committed
together with the payment state transitions, or not at all.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runExport(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Int64SliceVar(
		&paymentIDs,
		"ids",
		nil,
		"Payment ids to export (comma separated)",
	)
	exportCmd.Flags().BoolVar(
		&writeReport,
		"report",
		false,
		"Write an XLSX summary of the run next to the XML files",
	)
	_ = exportCmd.MarkFlagRequired("ids")
}

func runExport(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	sch, err := schema.Load(cfg.SchemaPath)
	if err != nil {
		return err
	}
	renderer, err := sepa.NewRenderer(cfg.TemplatesDir, cfg.Currency)
	if err != nil {
		return err
	}

	exporter := sepa.NewExporter(st, renderer, schema.NewValidator(sch), log)
	artifacts, err := exporter.Export(ctx, paymentIDs)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(cfg.OutputDir)
	if err := fm.EnsureDirectories(); err != nil {
		return err
	}
	for _, a := range artifacts {
		path, err := fm.WriteArtifact(a.Name, a.XML)
		if err != nil {
			return err
		}
		fmt.Printf("%s  (%d payments)  %s\n", a.Name, len(a.PaymentIDs), path)
	}

	if writeReport {
		path := filepath.Join(cfg.OutputDir,
			fmt.Sprintf("export_%s.xlsx", time.Now().Format("20060102_150405")))
		rows, err := reportRows(ctx, st, artifacts, cfg.Currency)
		if err != nil {
			return err
		}
		if err := report.Write(path, rows); err != nil {
			return err
		}
		log.Info("run report written", zap.String("path", path))
	}

	return nil
}

// reportRows resolves each artifact's payments back into summary rows.
func reportRows(ctx context.Context, st *store.Store, artifacts []payment.Artifact, currency string) ([]report.Row, error) {
	rows := make([]report.Row, 0, len(artifacts))
	for _, a := range artifacts {
		payments, err := st.PaymentsByIDs(ctx, a.PaymentIDs)
		if err != nil {
			return nil, err
		}
		row := report.Row{
			Reference: a.Name,
			CreatedAt: a.CreatedAt,
			Payments:  len(payments),
			Currency:  currency,
		}
		for _, p := range payments {
			row.Journal = p.Journal.Code
			row.Total = row.Total.Add(p.Amount)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
