// Package media decodes the image data URLs carried by invoices (sender logo,
// signature).
package media

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
)

// Upload limits for decoded image bytes
const (
	MaxLogoBytes      = 2 << 20
	MaxSignatureBytes = 5 << 20
)

var (
	ErrNotDataURL  = errors.New("not a data URL")
	ErrNotImage    = errors.New("not an image")
	ErrTooLarge    = errors.New("image too large")
	ErrBadEncoding = errors.New("malformed data URL payload")
)

// Image is a decoded data URL
type Image struct {
	MIME      string
	Extension string
	Data      []byte
}

// DecodeDataURL parses a data URL and sniffs its payload. The declared media
// type is not trusted; the sniffed type must be an image. maxBytes <= 0
// disables the size check.
func DecodeDataURL(raw string, maxBytes int) (*Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return nil, ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, ErrNotDataURL
	}

	var data []byte
	if strings.HasSuffix(meta, ";base64") {
		// base64 expands 3 bytes to 4, reject before allocating
		if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+3 {
			return nil, ErrTooLarge
		}
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "decoding base64"), ErrBadEncoding)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "unescaping payload"), ErrBadEncoding)
		}
		data = []byte(unescaped)
	}

	if maxBytes > 0 && len(data) > maxBytes {
		return nil, ErrTooLarge
	}
	if !filetype.IsImage(data) {
		return nil, ErrNotImage
	}

	kind, err := filetype.Match(data)
	if err != nil {
		return nil, errors.Mark(err, ErrNotImage)
	}
	return &Image{
		MIME:      kind.MIME.Value,
		Extension: kind.Extension,
		Data:      data,
	}, nil
}

// EncodeDataURL is the inverse of DecodeDataURL for base64 payloads
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
