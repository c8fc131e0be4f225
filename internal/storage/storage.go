// Package storage keeps exported documents somewhere other than the caller's
// memory: a local directory or an S3 bucket.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/rezonia/invoicer/internal/model"
)

// ContentTypePDF is the content type of exported invoices
const ContentTypePDF = "application/pdf"

// Sink stores a document under key and returns where it ended up
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Dir writes documents into a local directory
type Dir struct {
	root string
}

// NewDir creates the directory if needed
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating output directory %s", root)
	}
	return &Dir{root: root}, nil
}

// Put writes data to root/key, replacing any existing file
func (d *Dir) Put(ctx context.Context, key string, data []byte, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	path := filepath.Join(d.root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", model.NewExternalError("store document", "failed to create directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", model.NewExternalError("store document", "failed to write file", err)
	}
	return path, nil
}

// cleanKey rejects keys that would escape the sink root
func cleanKey(key string) (string, error) {
	cleaned := filepath.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", errors.Newf("invalid document key %q", key)
	}
	return filepath.FromSlash(cleaned), nil
}
