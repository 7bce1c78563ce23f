package chart

import (
	"fmt"
	"strings"

	"github.com/jo-hoe/kinface/internal/match"
)

// Default chart dimensions in pixels.
const (
	DefaultWidth  = 640
	DefaultHeight = 250
)

// Bar colors follow the plotly default qualitative palette so the chart
// looks familiar next to the original demo.
const (
	fatherColor = "#636efa"
	motherColor = "#ef553b"
)

// bar is one horizontal bar of the similarity chart.
type bar struct {
	label string
	value float64
	color string
}

// SimilaritySVG renders the comparison outcome as a horizontal bar
// chart titled "Similarity" with one bar per parent for the "face"
// feature.
func SimilaritySVG(outcome match.Outcome, width, height int) []byte {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	bars := []bar{
		{label: "Father", value: outcome.FatherSimilarity, color: fatherColor},
		{label: "Mother", value: outcome.MotherSimilarity, color: motherColor},
	}

	// Scale the x axis to at least [0, 1]; cosine similarity may leave
	// that range for unusual embeddings.
	maxValue := 1.0
	for _, b := range bars {
		if b.value > maxValue {
			maxValue = b.value
		}
	}

	const (
		marginLeft   = 110
		marginRight  = 30
		marginTop    = 50
		marginBottom = 30
	)
	plotWidth := width - marginLeft - marginRight
	plotHeight := height - marginTop - marginBottom
	barHeight := plotHeight / (len(bars) + 1)

	var b strings.Builder
	b.WriteString(fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`,
		width, height, width, height))
	b.WriteString(fmt.Sprintf(
		`<rect x="0" y="0" width="%d" height="%d" fill="white"/>`, width, height))
	b.WriteString(fmt.Sprintf(
		`<text x="%d" y="30" font-family="sans-serif" font-size="18" fill="#2a3f5f">Similarity</text>`,
		marginLeft))

	// Feature label on the y axis.
	b.WriteString(fmt.Sprintf(
		`<text x="%d" y="%d" font-family="sans-serif" font-size="13" fill="#2a3f5f" text-anchor="end">face</text>`,
		marginLeft-16, marginTop+plotHeight/2))

	// Axis line.
	b.WriteString(fmt.Sprintf(
		`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#b0bec5" stroke-width="1"/>`,
		marginLeft, marginTop, marginLeft, marginTop+plotHeight))

	for i, item := range bars {
		value := item.value
		if value < 0 {
			value = 0
		}
		barWidth := int(float64(plotWidth) * value / maxValue)
		y := marginTop + barHeight/2 + i*barHeight

		b.WriteString(fmt.Sprintf(
			`<rect x="%d" y="%d" width="%d" height="%d" fill="%s"/>`,
			marginLeft, y, barWidth, barHeight-8, item.color))
		b.WriteString(fmt.Sprintf(
			`<text x="%d" y="%d" font-family="sans-serif" font-size="13" fill="#2a3f5f">%s: %.3f</text>`,
			marginLeft+barWidth+8, y+(barHeight-8)/2+4, item.label, item.value))
	}

	b.WriteString(`</svg>`)
	return []byte(b.String())
}
