package raster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/rezonia/invoicer/internal/model"
	"github.com/rezonia/invoicer/internal/render"
)

// DefaultCommand is the HTML to PNG tool used when none is configured
const DefaultCommand = "wkhtmltoimage"

// Command rasterizes the HTML preview with an external tool. Input and output
// live in a private temporary directory that is removed on every return path.
// There is no timeout beyond the caller's context.
type Command struct {
	path  string
	args  []string
	width int
	scale int
}

// CommandOption configures Command
type CommandOption func(*Command)

// WithBinary overrides the tool path
func WithBinary(path string) CommandOption {
	return func(c *Command) {
		if path != "" {
			c.path = path
		}
	}
}

// WithArgs replaces the default flags. "{width}" and "{zoom}" are substituted.
func WithArgs(args ...string) CommandOption {
	return func(c *Command) {
		c.args = args
	}
}

// WithCommandWidth sets the layout width in 1x pixels
func WithCommandWidth(px int) CommandOption {
	return func(c *Command) {
		if px > 0 {
			c.width = px
		}
	}
}

// WithCommandScale sets the zoom factor passed to the tool
func WithCommandScale(scale int) CommandOption {
	return func(c *Command) {
		if scale > 0 {
			c.scale = scale
		}
	}
}

// NewCommand creates a command rasterizer for wkhtmltoimage compatible tools
func NewCommand(opts ...CommandOption) *Command {
	c := &Command{
		path:  DefaultCommand,
		args:  []string{"--quiet", "--format", "png", "--width", "{width}", "--zoom", "{zoom}"},
		width: render.DesktopWidthPx,
		scale: DefaultScale,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether the tool can be found
func (c *Command) Available() bool {
	_, err := exec.LookPath(c.path)
	return err == nil
}

// Rasterize writes the HTML preview to a temp dir, runs the tool and reads
// back the PNG it produced.
func (c *Command) Rasterize(ctx context.Context, doc *render.Document) (*Raster, error) {
	html, err := doc.HTML()
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "invoicer-raster-*")
	if err != nil {
		return nil, model.NewExternalError("rasterize", "failed to create temp dir", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "preview.html")
	out := filepath.Join(dir, "preview.png")
	if err := os.WriteFile(in, html, 0o600); err != nil {
		return nil, model.NewExternalError("rasterize", "failed to write preview", err)
	}

	args := make([]string, 0, len(c.args)+2)
	for _, a := range c.args {
		switch a {
		case "{width}":
			a = strconv.Itoa(c.width * c.scale)
		case "{zoom}":
			a = strconv.Itoa(c.scale)
		}
		args = append(args, a)
	}
	args = append(args, in, out)

	cmd := exec.CommandContext(ctx, c.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, model.NewExternalError("rasterize", fmt.Sprintf("%s failed, stderr: %s", filepath.Base(c.path), stderr.String()), err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, model.NewExternalError("rasterize", "no output produced", err)
	}
	r, err := FromPNG(data)
	if err != nil {
		return nil, model.NewExternalError("rasterize", "unreadable output", err)
	}
	return r, nil
}
