package raster

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/rezonia/invoicer/internal/media"
	"github.com/rezonia/invoicer/internal/render"
)

// Layout metrics at 1x
const (
	padding    = 32
	lineHeight = 18
	gap        = 16
	logoHeight = 64
	signHeight = 80
	colQty     = 480
	colRate    = 640
)

var (
	ink   = color.Black
	muted = color.Gray{Y: 0x55}
	rule  = color.Gray{Y: 0xdd}
)

// Text is a pure Go rasterizer. It lays the preview out with a fixed bitmap
// face, so glyphs outside ASCII render as placeholder boxes.
type Text struct {
	width int
	scale int
	face  font.Face
}

// TextOption configures Text
type TextOption func(*Text)

// WithWidth sets the layout width in 1x pixels
func WithWidth(px int) TextOption {
	return func(t *Text) {
		if px > 0 {
			t.width = px
		}
	}
}

// WithScale sets the device pixel ratio
func WithScale(scale int) TextOption {
	return func(t *Text) {
		if scale > 0 {
			t.scale = scale
		}
	}
}

// NewText creates a text rasterizer at desktop width and 2x scale
func NewText(opts ...TextOption) *Text {
	t := &Text{
		width: render.DesktopWidthPx,
		scale: DefaultScale,
		face:  basicfont.Face7x13,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Rasterize lays out doc and encodes it as PNG
func (t *Text) Rasterize(ctx context.Context, doc *render.Document) (*Raster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, errors.New("nil document")
	}

	l := &layout{face: t.face, width: t.width, y: padding}
	l.document(doc)

	height := l.y + padding
	base := image.NewRGBA(image.Rect(0, 0, t.width, height))
	draw.Draw(base, base.Bounds(), image.White, image.Point{}, draw.Src)
	for _, op := range l.ops {
		op(base)
	}

	out := image.Image(base)
	if t.scale > 1 {
		scaled := image.NewRGBA(image.Rect(0, 0, t.width*t.scale, height*t.scale))
		draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), base, base.Bounds(), draw.Src, nil)
		out = scaled
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, errors.Wrap(err, "encoding raster")
	}
	return &Raster{PNG: buf.Bytes(), Width: out.Bounds().Dx(), Height: out.Bounds().Dy()}, nil
}

// layout records draw operations while advancing a vertical cursor
type layout struct {
	face  font.Face
	width int
	y     int
	ops   []func(dst *image.RGBA)
}

func (l *layout) document(doc *render.Document) {
	if img := l.decode(doc.Logo); img != nil {
		l.picture(img, logoHeight)
	}

	l.text(padding, doc.Title, ink)
	l.newline()
	l.newline()
	l.textRight(l.right(), "Invoice #: "+doc.Number, muted)
	l.newline()
	l.textRight(l.right(), "Date: "+doc.Date, muted)
	l.newline()
	l.textRight(l.right(), "Due Date: "+doc.DueDate, muted)
	l.newline()
	l.space()

	l.parties(doc.From, doc.To)
	l.space()

	l.hrule()
	l.text(padding, "Description", ink)
	l.text(colQty, "Qty", ink)
	l.textRight(colRate+80, "Rate", ink)
	l.textRight(l.right(), "Amount", ink)
	l.newline()
	for _, row := range doc.Rows {
		l.hrule()
		desc := l.wrap(row.Description, colQty-padding-gap)
		l.text(colQty, row.Quantity, muted)
		l.textRight(colRate+80, row.Rate, muted)
		l.textRight(l.right(), row.Amount, ink)
		for i, line := range desc {
			if i > 0 {
				l.newline()
			}
			l.text(padding, line, ink)
		}
		l.newline()
	}
	l.hrule()
	l.space()

	for _, total := range doc.Totals {
		if total.Emphasis {
			l.hruleFrom(colQty)
		}
		l.text(colQty, total.Label, muted)
		l.textRight(l.right(), total.Value, ink)
		l.newline()
	}

	if doc.Notes != "" || doc.Terms != "" {
		l.space()
		l.hrule()
		l.paragraph("Notes:", doc.Notes)
		l.paragraph("Terms & Conditions:", doc.Terms)
	}

	if doc.Signature != nil {
		l.space()
		if img := l.decode(doc.Signature.Image); img != nil {
			l.picture(img, signHeight)
		}
		l.text(padding, doc.Signature.Name, ink)
		l.newline()
	}
}

func (l *layout) parties(from, to render.PartyBlock) {
	col := l.width / 2

	l.text(padding, from.Heading, ink)
	l.text(col, to.Heading, ink)
	l.newline()

	n := max(len(from.Lines), len(to.Lines))
	for i := 0; i < n; i++ {
		if i < len(from.Lines) {
			l.text(padding, from.Lines[i], lineColor(i))
		}
		if i < len(to.Lines) {
			l.text(col, to.Lines[i], lineColor(i))
		}
		l.newline()
	}
}

func (l *layout) paragraph(heading, body string) {
	if body == "" {
		return
	}
	l.text(padding, heading, ink)
	l.newline()
	for _, raw := range strings.Split(body, "\n") {
		for _, line := range l.wrap(raw, l.right()-padding) {
			l.text(padding, line, muted)
			l.newline()
		}
	}
	l.space()
}

func (l *layout) right() int {
	return l.width - padding
}

func (l *layout) newline() {
	l.y += lineHeight
}

func (l *layout) space() {
	l.y += gap
}

func (l *layout) text(x int, s string, c color.Color) {
	if s == "" {
		return
	}
	baseline := l.y + l.face.Metrics().Ascent.Ceil()
	face := l.face
	l.ops = append(l.ops, func(dst *image.RGBA) {
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(x, baseline),
		}
		d.DrawString(s)
	})
}

func (l *layout) textRight(right int, s string, c color.Color) {
	w := font.MeasureString(l.face, s).Ceil()
	l.text(right-w, s, c)
}

func (l *layout) hrule() {
	l.hruleFrom(padding)
}

func (l *layout) hruleFrom(x int) {
	r := image.Rect(x, l.y, l.right(), l.y+1)
	l.ops = append(l.ops, func(dst *image.RGBA) {
		draw.Draw(dst, r, image.NewUniform(rule), image.Point{}, draw.Src)
	})
	l.y += 4
}

// picture draws img scaled to maxHeight, keeping its aspect ratio
func (l *layout) picture(img image.Image, maxHeight int) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return
	}
	h := min(maxHeight, b.Dy())
	w := b.Dx() * h / b.Dy()
	if limit := l.right() - padding; w > limit {
		w = limit
		h = b.Dy() * w / b.Dx()
	}
	r := image.Rect(padding, l.y, padding+w, l.y+h)
	l.ops = append(l.ops, func(dst *image.RGBA) {
		draw.ApproxBiLinear.Scale(dst, r, img, b, draw.Over, nil)
	})
	l.y += h + gap
}

// decode returns nil for empty or undecodable data URLs
func (l *layout) decode(dataURL string) image.Image {
	if dataURL == "" {
		return nil
	}
	decoded, err := media.DecodeDataURL(dataURL, 0)
	if err != nil {
		return nil
	}
	img, err := decodeImage(decoded.Data)
	if err != nil {
		return nil
	}
	return img
}

// wrap splits s into lines no wider than maxWidth pixels
func (l *layout) wrap(s string, maxWidth int) []string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return []string{""}
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if font.MeasureString(l.face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = w
			continue
		}
		current = candidate
	}
	return append(lines, current)
}

func lineColor(i int) color.Color {
	if i == 0 {
		return ink
	}
	return muted
}
