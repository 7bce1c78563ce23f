package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// NormalizeCommand decodes an uploaded image and re-encodes it as an
// opaque RGB PNG. Face detectors expect plain three-channel input, so
// any alpha channel is flattened onto a white background.
type NormalizeCommand struct {
	name string
}

// NewNormalizeCommand creates a new normalize command. It takes no
// parameters.
func NewNormalizeCommand(params map[string]any) (Command, error) {
	return &NormalizeCommand{name: "NormalizeCommand"}, nil
}

// Name returns the command name.
func (c *NormalizeCommand) Name() string {
	return c.name
}

// Execute decodes the input via the registered decoders and produces an
// RGB PNG. Undecodable input propagates as an error.
func (c *NormalizeCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("NormalizeCommand: decoding image", "input_size_bytes", len(imageData))

	img, format, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Error("NormalizeCommand: failed to decode image", "error", err)
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	slog.Debug("NormalizeCommand: decoded image",
		"format", format,
		"width", bounds.Dx(),
		"height", bounds.Dy())

	// Flatten onto an opaque white canvas to drop any alpha channel.
	canvas := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), img, bounds.Min, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		slog.Error("NormalizeCommand: failed to encode image to PNG", "error", err)
		return nil, fmt.Errorf("failed to encode image to PNG: %w", err)
	}

	slog.Debug("NormalizeCommand: normalization complete", "output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}

func init() {
	if err := DefaultRegistry.Register("NormalizeCommand", NewNormalizeCommand); err != nil {
		panic(fmt.Sprintf("failed to register NormalizeCommand: %v", err))
	}
}
