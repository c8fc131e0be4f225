package invoicelib

import (
	"context"

	"github.com/rezonia/invoicer/internal/export"
	"github.com/rezonia/invoicer/internal/raster"
	"github.com/rezonia/invoicer/internal/render"
)

// PDF is an exported document
type PDF = export.Artifact

// ExportOptions configures an Exporter
type ExportOptions struct {
	// Command, when set, rasterizes the HTML preview with an external
	// HTML-to-PNG tool instead of the built-in text layout.
	Command string
	Args    []string

	// Width of the rasterized preview in pixels
	Width int

	// TrailingBlankPage appends an empty page when the content fills the
	// last page exactly.
	TrailingBlankPage bool
}

// DefaultExportOptions returns the built-in rasterizer at preview width
func DefaultExportOptions() ExportOptions {
	return ExportOptions{Width: render.DesktopWidthPx}
}

// Exporter turns drafts into paginated A4 PDFs
type Exporter struct {
	exporter *export.Exporter
}

// NewExporter creates an exporter with default options
func NewExporter() *Exporter {
	return NewExporterWithOptions(DefaultExportOptions())
}

// NewExporterWithOptions creates an exporter
func NewExporterWithOptions(opts ExportOptions) *Exporter {
	var r raster.Rasterizer
	if opts.Command != "" {
		copts := []raster.CommandOption{raster.WithBinary(opts.Command)}
		if len(opts.Args) > 0 {
			copts = append(copts, raster.WithArgs(opts.Args...))
		}
		if opts.Width > 0 {
			copts = append(copts, raster.WithCommandWidth(opts.Width))
		}
		r = raster.NewCommand(copts...)
	} else {
		var topts []raster.TextOption
		if opts.Width > 0 {
			topts = append(topts, raster.WithWidth(opts.Width))
		}
		r = raster.NewText(topts...)
	}

	var eopts []export.Option
	if opts.TrailingBlankPage {
		eopts = append(eopts, export.WithPagination(export.WithTrailingBlankPage()))
	}
	return &Exporter{exporter: export.New(r, eopts...)}
}

// Export validates inv and produces its PDF. inv is not modified.
func (e *Exporter) Export(ctx context.Context, inv Invoice) (*PDF, error) {
	return e.exporter.Export(ctx, inv)
}
