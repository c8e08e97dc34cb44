// Package imgutil normalizes embedded raster images: format sniffing,
// dimension probing and the width cap applied before images enter a page
// layout.
package imgutil

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	"github.com/h2non/filetype"
)

// MaxWidthInches caps embedded image width so pictures pasted from scans or
// cameras do not blow out the text column.
const MaxWidthInches = 6.0

// DPI used when converting pixel sizes to page points.
const DPI = 96.0

// SniffMIME returns the detected image MIME type, or an error when the data
// is not a supported raster format.
func SniffMIME(data []byte) (string, error) {
	kind, err := filetype.Image(data)
	if err != nil {
		return "", fmt.Errorf("unable to detect image type: %w", err)
	}
	return kind.MIME.Value, nil
}

// Dimensions probes width and height in pixels without decoding the full
// image.
func Dimensions(data []byte) (int, int, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("unable to read image dimensions: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}

// ToPNG re-encodes the image as PNG. PNG is the one raster format every
// target container accepts, so embedded pictures are normalized to it.
// Data already in PNG form is returned unchanged.
func ToPNG(data []byte) ([]byte, error) {
	if filetype.IsMIME(data, "image/png") {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("unable to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// FitWidth scales the image down proportionally when it is wider than
// maxWidthPx. Smaller images are returned unchanged; images are never
// scaled up.
func FitWidth(data []byte, maxWidthPx int) ([]byte, error) {
	w, _, err := Dimensions(data)
	if err != nil {
		return nil, err
	}
	if w <= maxWidthPx {
		return data, nil
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to decode image: %w", err)
	}
	resized := imaging.Resize(img, maxWidthPx, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.PNG); err != nil {
		return nil, fmt.Errorf("unable to encode resized image: %w", err)
	}
	return buf.Bytes(), nil
}

// DisplaySize returns the width and height in page points for an image of
// the given pixel dimensions, capped at MaxWidthInches and scaled
// proportionally.
func DisplaySize(widthPx, heightPx int) (float64, float64) {
	if widthPx <= 0 || heightPx <= 0 {
		return 0, 0
	}
	wIn := float64(widthPx) / DPI
	hIn := float64(heightPx) / DPI
	if wIn > MaxWidthInches {
		scale := MaxWidthInches / wIn
		wIn = MaxWidthInches
		hIn *= scale
	}
	return wIn * 72, hIn * 72
}
