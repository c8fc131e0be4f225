package export

import (
	"math"

	"github.com/cockroachdb/errors"
)

// PageSize is a page geometry in millimetres. PrintableHeightMM is the slice
// height used per page; it is kept a little under HeightMM so content never
// touches the bottom edge.
type PageSize struct {
	WidthMM           float64
	HeightMM          float64
	PrintableHeightMM float64
}

// A4 portrait with a 295mm printable height
var A4 = PageSize{WidthMM: 210, HeightMM: 297, PrintableHeightMM: 295}

// sliceHeight returns the height consumed per page
func (p PageSize) sliceHeight() float64 {
	if p.PrintableHeightMM > 0 {
		return p.PrintableHeightMM
	}
	return p.HeightMM
}

// Placement positions the full raster on one page. The image is drawn at
// vertical offset OffsetMM (zero or negative) so only the window starting at
// SourceYPx is visible.
type Placement struct {
	Index         int     `json:"index"`
	OffsetMM      float64 `json:"offset_mm"`
	SourceYPx     float64 `json:"source_y_px"`
	SliceHeightPx float64 `json:"slice_height_px"`
}

// paginateConfig holds pagination switches
type paginateConfig struct {
	trailingBlankPage bool
}

// PaginateOption configures Paginate
type PaginateOption func(*paginateConfig)

// WithTrailingBlankPage keeps looping while the remaining height is >= 0,
// which adds an empty page when the image height is an exact multiple of
// the page height.
func WithTrailingBlankPage() PaginateOption {
	return func(c *paginateConfig) {
		c.trailingBlankPage = true
	}
}

// tolerance absorbs float error in the mm conversion
const tolerance = 1e-9

// Paginate slices a widthPx x heightPx raster into page placements. The image
// is scaled to the page width; each page shows the next PrintableHeightMM
// window. Slices are contiguous and cover the image; the last one may be
// shorter than a page.
func Paginate(widthPx, heightPx int, page PageSize, opts ...PaginateOption) ([]Placement, error) {
	if widthPx <= 0 || heightPx <= 0 {
		return nil, errors.Newf("invalid raster size %dx%d", widthPx, heightPx)
	}
	pageHeight := page.sliceHeight()
	if page.WidthMM <= 0 || pageHeight <= 0 {
		return nil, errors.Newf("invalid page size %.2fx%.2fmm", page.WidthMM, pageHeight)
	}

	cfg := paginateConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	imgHeight := ImageHeightMM(widthPx, heightPx, page)
	pxPerMM := float64(widthPx) / page.WidthMM

	more := func(remaining float64) bool {
		if cfg.trailingBlankPage {
			return remaining >= -tolerance
		}
		return remaining > tolerance
	}

	place := func(index int, position float64) Placement {
		y := math.Min(position*pxPerMM, float64(heightPx))
		return Placement{
			Index:         index,
			OffsetMM:      -position,
			SourceYPx:     y,
			SliceHeightPx: math.Min(pageHeight*pxPerMM, float64(heightPx)-y),
		}
	}

	position := 0.0
	remaining := imgHeight
	placements := []Placement{place(0, position)}
	remaining -= pageHeight

	for more(remaining) {
		position += pageHeight
		placements = append(placements, place(len(placements), position))
		remaining -= pageHeight
	}

	return placements, nil
}

// PageCount is len(Paginate(...))
func PageCount(widthPx, heightPx int, page PageSize, opts ...PaginateOption) (int, error) {
	placements, err := Paginate(widthPx, heightPx, page, opts...)
	if err != nil {
		return 0, err
	}
	return len(placements), nil
}

// ImageHeightMM is the height of the raster once scaled to the page width
func ImageHeightMM(widthPx, heightPx int, page PageSize) float64 {
	if widthPx <= 0 {
		return 0
	}
	return float64(heightPx) * page.WidthMM / float64(widthPx)
}
