package imgutil

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSniffMIME(t *testing.T) {
	data := pngBytes(t, 4, 4)
	mime, err := SniffMIME(data)
	if err != nil {
		t.Fatal(err)
	}
	if mime != "image/png" {
		t.Fatalf("expected image/png, got %s", mime)
	}
	if _, err := SniffMIME([]byte("not an image at all")); err == nil {
		t.Fatal("expected error for non-image data")
	}
}

func TestToPNGPassThrough(t *testing.T) {
	data := pngBytes(t, 4, 4)
	out, err := ToPNG(data)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("png input should pass through unchanged")
	}
}

func TestToPNGFromJPEG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}
	out, err := ToPNG(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 8 || h != 8 {
		t.Fatalf("expected 8x8 png, got %dx%d", w, h)
	}
	mime, err := SniffMIME(out)
	if err != nil || mime != "image/png" {
		t.Fatalf("expected png output, got %s (%v)", mime, err)
	}
}

func TestFitWidth(t *testing.T) {
	data := pngBytes(t, 100, 50)

	out, err := FitWidth(data, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(out, data) {
		t.Fatal("image narrower than the cap should pass through")
	}

	out, err = FitWidth(data, 40)
	if err != nil {
		t.Fatal(err)
	}
	w, h, err := Dimensions(out)
	if err != nil {
		t.Fatal(err)
	}
	if w != 40 || h != 20 {
		t.Fatalf("expected 40x20 after scaling, got %dx%d", w, h)
	}
}

func TestDisplaySize(t *testing.T) {
	// 96px at 96 DPI is one inch, i.e. 72 points.
	w, h := DisplaySize(96, 96)
	if w != 72 || h != 72 {
		t.Fatalf("expected 72x72pt, got %gx%g", w, h)
	}

	// Wider than the 6 inch cap: scaled down proportionally.
	w, h = DisplaySize(96*12, 96*6)
	if w != 6*72 || h != 3*72 {
		t.Fatalf("expected 432x216pt, got %gx%g", w, h)
	}

	if w, h = DisplaySize(0, 10); w != 0 || h != 0 {
		t.Fatal("degenerate sizes should map to zero")
	}
}
