// Package export turns an invoice into a paginated A4 PDF.
package export

import (
	"bytes"
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rezonia/invoicer/internal/analytics"
	"github.com/rezonia/invoicer/internal/auth"
	"github.com/rezonia/invoicer/internal/logger"
	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/raster"
	"github.com/rezonia/invoicer/internal/render"
	"github.com/rezonia/invoicer/internal/storage"
	"github.com/rezonia/invoicer/internal/validation"
)

func init() {
	// pdfcpu otherwise creates a config dir under the user's home
	api.DisableConfigDir()
}

// Artifact is an exported document
type Artifact struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Pages       int    `json:"pages"`
	Location    string `json:"location,omitempty"`
	Data        []byte `json:"-"`
}

// Exporter renders, rasterizes and paginates invoices
type Exporter struct {
	rasterizer raster.Rasterizer
	validator  *validation.Validator
	page       PageSize
	paginate   []PaginateOption
	tracker    analytics.Tracker
	sink       storage.Sink
	logger     *logger.Logger
}

// Option configures an Exporter
type Option func(*Exporter)

// WithPageSize overrides the A4 default
func WithPageSize(page PageSize) Option {
	return func(e *Exporter) {
		e.page = page
	}
}

// WithPagination passes options through to Paginate
func WithPagination(opts ...PaginateOption) Option {
	return func(e *Exporter) {
		e.paginate = append(e.paginate, opts...)
	}
}

// WithTracker sets the analytics tracker
func WithTracker(t analytics.Tracker) Option {
	return func(e *Exporter) {
		if t != nil {
			e.tracker = t
		}
	}
}

// WithSink stores every artifact after it is produced
func WithSink(s storage.Sink) Option {
	return func(e *Exporter) {
		e.sink = s
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithValidator replaces the default boundary validator
func WithValidator(v *validation.Validator) Option {
	return func(e *Exporter) {
		if v != nil {
			e.validator = v
		}
	}
}

// New creates an exporter around r
func New(r raster.Rasterizer, opts ...Option) *Exporter {
	e := &Exporter{
		rasterizer: r,
		validator:  validation.New(),
		page:       A4,
		tracker:    analytics.Nop{},
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export produces the PDF for inv. The invoice number is checked before
// anything else so a missing number never reaches the rasterizer. The draft
// itself is never modified.
func (e *Exporter) Export(ctx context.Context, inv model.Invoice) (*Artifact, error) {
	if strings.TrimSpace(inv.Number) == "" {
		return nil, model.NewPreconditionError("invoice_number", "is required",
			"Please enter an invoice number before generating the PDF.")
	}

	if err := e.validator.Validate(inv).Err(); err != nil {
		return nil, err
	}

	r, err := e.rasterizer.Rasterize(ctx, render.Build(inv))
	if err != nil {
		e.logger.Errorw("rasterization failed", "invoice_number", inv.Number, "error", err)
		if model.IsExternal(err) {
			return nil, err
		}
		return nil, model.NewExternalError("rasterize", "failed to render preview", err)
	}

	placements, err := Paginate(r.Width, r.Height, e.page, e.paginate...)
	if err != nil {
		return nil, model.NewExternalError("paginate", "rasterizer returned an unusable image", err)
	}

	data, err := Assemble(r, placements, e.page)
	if err != nil {
		return nil, model.NewExternalError("assemble pdf", "failed to build document", err)
	}

	pages, err := CountPages(data)
	if err != nil {
		return nil, model.NewExternalError("verify pdf", "generated document is unreadable", err)
	}
	if pages != len(placements) {
		return nil, model.NewExternalError("verify pdf",
			"page count mismatch", errors.Newf("expected %d pages, got %d", len(placements), pages))
	}

	art := &Artifact{
		Filename:    Filename(inv.Number),
		ContentType: storage.ContentTypePDF,
		Pages:       pages,
		Data:        data,
	}

	if e.sink != nil {
		loc, err := e.sink.Put(ctx, art.Filename, data, art.ContentType)
		if err != nil {
			return nil, err
		}
		art.Location = loc
	}

	var userID string
	if s, ok := auth.SessionFrom(ctx); ok {
		userID = s.UserID
	}
	e.tracker.Track(ctx, analytics.PDFGenerated(userID, inv.Number))

	e.logger.Infow("invoice exported",
		"invoice_number", inv.Number,
		"pages", pages,
		"bytes", len(data),
		"location", art.Location,
	)
	return art, nil
}

// Assemble writes one A4 page per placement, each showing the whole raster
// at the placement's vertical offset.
func Assemble(r *raster.Raster, placements []Placement, page PageSize) ([]byte, error) {
	if r == nil || len(r.PNG) == 0 {
		return nil, errors.New("empty raster")
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: page.WidthMM, Ht: page.HeightMM},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	const name = "preview"
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(r.PNG))

	imgHeight := ImageHeightMM(r.Width, r.Height, page)
	for _, p := range placements {
		pdf.AddPage()
		pdf.ImageOptions(name, 0, p.OffsetMM, page.WidthMM, imgHeight, false, opts, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Wrap(err, "writing pdf")
	}
	return buf.Bytes(), nil
}

// CountPages reads the page count back with pdfcpu
func CountPages(data []byte) (int, error) {
	return api.PageCount(bytes.NewReader(data), pdfmodel.NewDefaultConfiguration())
}

var filenameReplacer = strings.NewReplacer("/", "-", "\\", "-", "\x00", "")

// Filename is the download name for an invoice number
func Filename(number string) string {
	return "Invoice-" + filenameReplacer.Replace(strings.TrimSpace(number)) + ".pdf"
}
