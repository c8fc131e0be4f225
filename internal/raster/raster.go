// Package raster turns a preview document into a single tall PNG.
package raster

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/rezonia/invoicer/internal/render"
)

// DefaultScale matches a 2x device pixel ratio
const DefaultScale = 2

// Raster is a rendered preview in device pixels
type Raster struct {
	PNG    []byte
	Width  int
	Height int
}

// Rasterizer renders a preview document. Implementations must release any
// temporary resources before returning, on success and on failure.
type Rasterizer interface {
	Rasterize(ctx context.Context, doc *render.Document) (*Raster, error)
}

// Func adapts a function to Rasterizer
type Func func(ctx context.Context, doc *render.Document) (*Raster, error)

// Rasterize calls f
func (f Func) Rasterize(ctx context.Context, doc *render.Document) (*Raster, error) {
	return f(ctx, doc)
}

// FromPNG reads the dimensions of an encoded PNG
func FromPNG(data []byte) (*Raster, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "reading raster dimensions")
	}
	if format != "png" {
		return nil, errors.Newf("expected png output, got %s", format)
	}
	return &Raster{PNG: data, Width: cfg.Width, Height: cfg.Height}, nil
}

// decodeImage decodes any registered image format
func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	return img, err
}
