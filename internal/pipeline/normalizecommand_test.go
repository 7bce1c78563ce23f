package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// encodeTestImage produces image bytes of the given format and size.
func encodeTestImage(t *testing.T, format string, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	var err error
	switch format {
	case "png":
		err = png.Encode(&buf, img)
	case "jpeg":
		err = jpeg.Encode(&buf, img, nil)
	default:
		t.Fatalf("unsupported test format %s", format)
	}
	if err != nil {
		t.Fatalf("failed to encode %s test image: %v", format, err)
	}
	return buf.Bytes()
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	return img
}

func TestNormalizeCommand_JPEGInput(t *testing.T) {
	command, err := NewNormalizeCommand(nil)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	input := encodeTestImage(t, "jpeg", 64, 48)
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img := decodePNG(t, output)
	if img.Bounds().Dx() != 64 || img.Bounds().Dy() != 48 {
		t.Errorf("Expected 64x48 output, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestNormalizeCommand_PNGInput(t *testing.T) {
	command, _ := NewNormalizeCommand(nil)

	input := encodeTestImage(t, "png", 32, 32)
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	decodePNG(t, output)
}

func TestNormalizeCommand_FlattensAlpha(t *testing.T) {
	// Fully transparent pixel must land on the white background.
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, G: 0, B: 0, A: 0})
	img.Set(1, 1, color.NRGBA{R: 0, G: 0, B: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}

	command, _ := NewNormalizeCommand(nil)
	output, err := command.Execute(buf.Bytes())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	decoded := decodePNG(t, output)
	r, g, b, a := decoded.At(0, 0).RGBA()
	if r != 0xffff || g != 0xffff || b != 0xffff || a != 0xffff {
		t.Errorf("Expected transparent pixel to flatten to opaque white, got r=%d g=%d b=%d a=%d", r, g, b, a)
	}
}

func TestNormalizeCommand_InvalidInput(t *testing.T) {
	command, _ := NewNormalizeCommand(nil)

	_, err := command.Execute([]byte("not an image"))
	if err == nil {
		t.Error("Expected error for undecodable input")
	}
}
