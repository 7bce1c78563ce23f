package pipeline

import (
	"bytes"
	"testing"
)

func TestNewDownscaleCommand_MissingMaxSide(t *testing.T) {
	_, err := NewDownscaleCommand(map[string]any{})
	if err == nil {
		t.Error("Expected error for missing maxSide")
	}
}

func TestNewDownscaleCommand_InvalidMaxSide(t *testing.T) {
	_, err := NewDownscaleCommand(map[string]any{"maxSide": -5})
	if err == nil {
		t.Error("Expected error for negative maxSide")
	}
}

func TestNewDownscaleCommand_ValidParams(t *testing.T) {
	command, err := NewDownscaleCommand(map[string]any{"maxSide": 640})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	downscale, ok := command.(*DownscaleCommand)
	if !ok {
		t.Fatal("Expected command to be *DownscaleCommand")
	}
	if downscale.MaxSide() != 640 {
		t.Errorf("Expected maxSide 640, got %d", downscale.MaxSide())
	}
}

func TestDownscaleCommand_CapsLongestEdge(t *testing.T) {
	command, err := NewDownscaleCommandDirect(100)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	input := encodeTestImage(t, "png", 400, 200)
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	img := decodePNG(t, output)
	if img.Bounds().Dx() != 100 {
		t.Errorf("Expected width 100, got %d", img.Bounds().Dx())
	}
	if img.Bounds().Dy() != 50 {
		t.Errorf("Expected height 50 (aspect preserved), got %d", img.Bounds().Dy())
	}
}

func TestDownscaleCommand_PassThroughWithinCap(t *testing.T) {
	command, err := NewDownscaleCommandDirect(500)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	input := encodeTestImage(t, "png", 120, 80)
	output, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !bytes.Equal(input, output) {
		t.Error("Expected image within cap to pass through unchanged")
	}
}

func TestDownscaleCommand_InvalidInput(t *testing.T) {
	command, _ := NewDownscaleCommandDirect(100)

	_, err := command.Execute([]byte("not a png"))
	if err == nil {
		t.Error("Expected error for undecodable input")
	}
}
