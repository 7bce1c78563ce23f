package chart

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/jo-hoe/kinface/internal/match"
	"github.com/jo-hoe/kinface/internal/verify"
)

func sampleOutcome() match.Outcome {
	return match.Compare(verify.MetricCosine, 0.4, 0.25)
}

func TestSimilaritySVG_ContainsExpectedElements(t *testing.T) {
	svg := string(SimilaritySVG(sampleOutcome(), 0, 0))

	if !strings.HasPrefix(svg, "<svg") {
		t.Fatalf("Expected SVG output, got %q", svg[:min(len(svg), 20)])
	}
	for _, expected := range []string{"Similarity", "Father", "Mother", "face"} {
		if !strings.Contains(svg, expected) {
			t.Errorf("Expected chart to contain %q", expected)
		}
	}
	if strings.Count(svg, "<rect") < 3 { // background + two bars
		t.Errorf("Expected two bars plus background, got %d rects", strings.Count(svg, "<rect"))
	}
}

func TestSimilaritySVG_UsesDefaultDimensions(t *testing.T) {
	svg := string(SimilaritySVG(sampleOutcome(), 0, 0))
	if !strings.Contains(svg, `width="640"`) || !strings.Contains(svg, `height="250"`) {
		t.Error("Expected default dimensions 640x250")
	}
}

func TestSimilaritySVG_NegativeValueClamped(t *testing.T) {
	// A cosine distance above 1 produces a negative similarity; the bar
	// collapses to zero width, but the label keeps the real value.
	outcome := match.Compare(verify.MetricCosine, 1.5, 0.2)
	svg := string(SimilaritySVG(outcome, 640, 250))

	if !strings.Contains(svg, "-0.500") {
		t.Error("Expected negative similarity value in label")
	}
	if !strings.Contains(svg, `width="0"`) {
		t.Error("Expected zero-width bar for negative similarity")
	}
}

func TestRenderPNG(t *testing.T) {
	svg := SimilaritySVG(sampleOutcome(), 640, 250)

	data, err := RenderPNG(svg, 640, 250)
	if err != nil {
		t.Fatalf("RenderPNG failed: %v", err)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Output is not a valid PNG: %v", err)
	}
	if img.Bounds().Dx() != 640 || img.Bounds().Dy() != 250 {
		t.Errorf("Expected 640x250 PNG, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderPNG_InvalidDimensions(t *testing.T) {
	if _, err := RenderPNG([]byte("<svg/>"), 0, 100); err == nil {
		t.Error("Expected error for zero width")
	}
}

func TestRenderPNG_InvalidSVG(t *testing.T) {
	if _, err := RenderPNG([]byte("not svg at all <"), 100, 100); err == nil {
		t.Error("Expected error for malformed SVG")
	}
}
