package domain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxReceiptImageBytes bounds the decoded size of a receipt photo.
const MaxReceiptImageBytes = 8 << 20

// ErrInvalidImage is returned for malformed or unsupported receipt images.
var ErrInvalidImage = errors.New("invalid receipt image")

// Image is a decoded receipt photo.
type Image struct {
	MIMEType string
	Data     []byte
}

// ParseDataURI decodes a "data:<mime>;base64,<payload>" URI holding an image.
func ParseDataURI(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: not a data URI", ErrInvalidImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload", ErrInvalidImage)
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return Image{}, fmt.Errorf("%w: payload must be base64", ErrInvalidImage)
	}
	mime = strings.ToLower(mime)
	if !strings.HasPrefix(mime, "image/") {
		return Image{}, fmt.Errorf("%w: unsupported type %q", ErrInvalidImage, mime)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxReceiptImageBytes {
		return Image{}, fmt.Errorf("%w: image larger than %d bytes", ErrInvalidImage, MaxReceiptImageBytes)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	return Image{MIMEType: mime, Data: data}, nil
}

// ReceiptFields is a best-effort pre-fill read from a receipt. Any field may
// be absent and must then be entered by hand.
type ReceiptFields struct {
	Liters *float64 `json:"liters,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Date   *string  `json:"date,omitempty"`
}

// Sanitize drops values that could never be part of a valid record.
func (f ReceiptFields) Sanitize() ReceiptFields {
	var out ReceiptFields
	if f.Liters != nil && *f.Liters > 0 {
		v := *f.Liters
		out.Liters = &v
	}
	if f.Price != nil && *f.Price >= 0 {
		v := *f.Price
		out.Price = &v
	}
	if f.Date != nil {
		if t, err := ParseDay(*f.Date); err == nil {
			v := t.Format(DayLayout)
			out.Date = &v
		}
	}
	return out
}

// ReceiptExtractor is the port for the receipt reading model.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, img Image) (ReceiptFields, error)
}
