package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoicer/internal/export"
	"github.com/rezonia/invoicer/internal/model"
)

var (
	exportTimeout  time.Duration
	exportTrailing bool
	exportSavedID  string
)

var exportCmd = &cobra.Command{
	Use:   "export [draft.json]",
	Short: "Export a draft or a saved invoice as PDF",
	Long: `Render the preview, rasterize it and slice it into A4 pages.

The invoice number must be set and the draft must validate. The PDF is
written to --output, or Invoice-<number>.pdf in the current directory.
When a storage sink is configured the file is uploaded as well.

Examples:
  invoicer export draft.json
  invoicer export draft.json -o out/invoice.pdf --timeout 30s
  invoicer export --id 3f1c... --token $INVOICER_TOKEN`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 2*time.Minute, "Export timeout")
	exportCmd.Flags().BoolVar(&exportTrailing, "trailing-blank-page", false, "Add a blank page when the content fills the last page exactly")
	exportCmd.Flags().StringVar(&exportSavedID, "id", "", "Export a saved invoice instead of a draft file")
}

func runExport(cmd *cobra.Command, args []string) error {
	if (len(args) == 0) == (exportSavedID == "") {
		return fmt.Errorf("pass either a draft file or --id")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	if a.Auth != nil {
		ctx, err = signedInContext(ctx, a)
		if err != nil {
			return err
		}
	}

	var inv model.Invoice
	if exportSavedID != "" {
		if a.Invoices == nil {
			return fmt.Errorf("no invoice store is configured")
		}
		inv, err = a.Invoices.Get(ctx, exportSavedID)
		if err != nil {
			return describeError(err)
		}
	} else {
		inv, err = readInvoice(args[0])
		if err != nil {
			return err
		}
	}

	exporter := a.Exporter
	if exportTrailing {
		exporter = export.New(a.Rasterizer,
			export.WithLogger(a.Logger),
			export.WithTracker(a.Tracker),
			export.WithSink(a.Sink),
			export.WithPagination(export.WithTrailingBlankPage()),
		)
	}

	art, err := exporter.Export(ctx, inv)
	if err != nil {
		return describeError(err)
	}

	target := outputFile
	if target == "" {
		target = art.Filename
	}
	if err := os.WriteFile(target, art.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}

	fmt.Printf("Wrote %s (%d page(s), %d bytes)\n", target, art.Pages, len(art.Data))
	if art.Location != "" {
		fmt.Printf("Stored at %s\n", art.Location)
	}
	return nil
}
