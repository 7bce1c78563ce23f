package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"log/slog"
)

// DownscaleParams represents typed parameters for the downscale command.
type DownscaleParams struct {
	MaxSide int // Longest allowed edge in pixels.
}

// NewDownscaleParamsFromMap creates DownscaleParams from a generic map.
func NewDownscaleParamsFromMap(params map[string]any) (*DownscaleParams, error) {
	if err := ValidateRequiredParams(params, []string{"maxSide"}); err != nil {
		return nil, err
	}
	maxSide := GetIntParam(params, "maxSide", 0)
	if maxSide <= 0 {
		return nil, fmt.Errorf("maxSide must be positive, got %d", maxSide)
	}
	return &DownscaleParams{MaxSide: maxSide}, nil
}

// DownscaleCommand caps the longest image edge while preserving the
// aspect ratio. Images already within the cap pass through unchanged.
type DownscaleCommand struct {
	name   string
	params *DownscaleParams
}

// NewDownscaleCommand creates a new downscale command from configuration
// parameters.
func NewDownscaleCommand(params map[string]any) (Command, error) {
	typedParams, err := NewDownscaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}

	return &DownscaleCommand{
		name:   "DownscaleCommand",
		params: typedParams,
	}, nil
}

// NewDownscaleCommandDirect creates a downscale command without going
// through the parameter map.
func NewDownscaleCommandDirect(maxSide int) (*DownscaleCommand, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("maxSide must be positive, got %d", maxSide)
	}
	return &DownscaleCommand{
		name:   "DownscaleCommand",
		params: &DownscaleParams{MaxSide: maxSide},
	}, nil
}

// Name returns the command name.
func (c *DownscaleCommand) Name() string {
	return c.name
}

// MaxSide returns the configured edge cap.
func (c *DownscaleCommand) MaxSide() int {
	return c.params.MaxSide
}

// Execute scales the PNG input down so that its longest edge does not
// exceed the configured cap.
func (c *DownscaleCommand) Execute(imageData []byte) ([]byte, error) {
	slog.Debug("DownscaleCommand: decoding image",
		"input_size_bytes", len(imageData),
		"max_side", c.params.MaxSide)

	img, err := png.Decode(bytes.NewReader(imageData))
	if err != nil {
		slog.Error("DownscaleCommand: failed to decode PNG image", "error", err)
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	bounds := img.Bounds()
	originalWidth := bounds.Dx()
	originalHeight := bounds.Dy()

	longest := originalWidth
	if originalHeight > longest {
		longest = originalHeight
	}
	if longest <= c.params.MaxSide {
		slog.Debug("DownscaleCommand: image within cap; returning original bytes",
			"width", originalWidth, "height", originalHeight)
		return imageData, nil
	}

	scale := float64(c.params.MaxSide) / float64(longest)
	targetWidth := int(float64(originalWidth) * scale)
	targetHeight := int(float64(originalHeight) * scale)
	if targetWidth < 1 {
		targetWidth = 1
	}
	if targetHeight < 1 {
		targetHeight = 1
	}

	slog.Debug("DownscaleCommand: scaling image",
		"original_width", originalWidth,
		"original_height", originalHeight,
		"target_width", targetWidth,
		"target_height", targetHeight)

	targetImg := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))

	// Nearest-neighbor interpolation; quality is irrelevant for
	// thumbnails and the verifier re-detects faces anyway.
	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			srcX := int(float64(x) * float64(originalWidth) / float64(targetWidth))
			srcY := int(float64(y) * float64(originalHeight) / float64(targetHeight))

			if srcX >= originalWidth {
				srcX = originalWidth - 1
			}
			if srcY >= originalHeight {
				srcY = originalHeight - 1
			}

			targetImg.Set(x, y, img.At(srcX, srcY))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, targetImg); err != nil {
		slog.Error("DownscaleCommand: failed to encode scaled image", "error", err)
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}

	slog.Debug("DownscaleCommand: scaling complete", "output_size_bytes", buf.Len())
	return buf.Bytes(), nil
}

func init() {
	if err := DefaultRegistry.Register("DownscaleCommand", NewDownscaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register DownscaleCommand: %v", err))
	}
}
