// package qr decodes QR login payloads returned by the plugin and renders them for terminals and files.
package qr

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// ErrMalformed is returned when a payload is not base64 or the image bytes do not decode.
var ErrMalformed = errors.New("malformed QR payload")

const dataURIPrefix = "data:image/png;base64,"

// Image is a decoded QR payload.
type Image struct {
	Base64 string // normalized base64 text
	Data   []byte // raw image bytes
}

// DataURI returns the image as a data URI suitable for an <img> src.
func (i *Image) DataURI() string {
	return DataURI(i.Base64)
}

// Normalize trims whitespace and strips one leading and one trailing quote (" or ').
//
// The plugin returns the base64 text as a JSON string, so the body usually arrives quoted.
func Normalize(payload string) string {
	s := strings.TrimSpace(payload)
	if s != "" && (s[0] == '"' || s[0] == '\'') {
		s = s[1:]
	}
	if n := len(s); n > 0 && (s[n-1] == '"' || s[n-1] == '\'') {
		s = s[:n-1]
	}
	return s
}

// Decode normalizes payload and base64-decodes it.
func Decode(payload string) (*Image, error) {
	b64 := Normalize(payload)
	if b64 == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrMalformed)
	}

	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &Image{Base64: b64, Data: data}, nil
}

// DataURI prefixes base64 PNG data with the data URI scheme.
func DataURI(b64 string) string {
	return dataURIPrefix + b64
}

// RenderOptions controls terminal rendering.
type RenderOptions struct {
	Width  int  // output columns; 0 keeps the image width capped at 64
	Invert bool // draw light modules instead of dark ones, for dark terminal backgrounds
}

// Render draws image bytes with Unicode half blocks, two pixel rows per text line.
func Render(data []byte, opts RenderOptions) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	width := opts.Width
	if width <= 0 {
		width = min(img.Bounds().Dx(), 64)
	}

	gray := imaging.Grayscale(imaging.Resize(img, width, 0, imaging.Box))
	bounds := gray.Bounds()

	ink := func(x, y int) bool {
		if y >= bounds.Max.Y {
			return opts.Invert
		}
		px := gray.NRGBAAt(x, y)
		dark := px.A >= 128 && px.R < 128
		return dark != opts.Invert
	}

	var sb strings.Builder
	for y := bounds.Min.Y; y < bounds.Max.Y; y += 2 {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			top, bottom := ink(x, y), ink(x, y+1)
			switch {
			case top && bottom:
				sb.WriteString("█")
			case top:
				sb.WriteString("▀")
			case bottom:
				sb.WriteString("▄")
			default:
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// Size returns the pixel dimensions of the image bytes.
func Size(data []byte) (image.Point, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return img.Bounds().Size(), nil
}

// Save writes the image to path; the format follows the file extension (.png, .jpg, .gif, ...).
func Save(data []byte, path string) error {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save QR image: %w", err)
	}
	return nil
}
