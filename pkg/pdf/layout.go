package pdf

import "strings"

// RGB is a text colour with 0-255 components
type RGB struct {
	R int `json:"r" yaml:"r"`
	G int `json:"g" yaml:"g"`
	B int `json:"b" yaml:"b"`
}

// TextBlock is one positioned string to be laid out and drawn.
// X and Y use PDF coordinates: origin at the bottom-left corner, y grows upwards.
type TextBlock struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
	Variant  FontVariant
	Color    RGB
	MaxWidth float64
}

// Line is one output line of Wrap
type Line struct {
	Text  string
	Index int
}

// LineSpacing is added to the font size to get the distance between baselines
const LineSpacing = 2

// Wrap breaks text into lines no wider than maxWidth using a greedy fill.
// A single word wider than maxWidth is emitted on its own line, unbroken.
func Wrap(m Measurer, text string, variant FontVariant, size, maxWidth float64) []Line {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []Line
	current := ""
	flush := func(s string) {
		lines = append(lines, Line{Text: s, Index: len(lines)})
	}

	for _, word := range words {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if m.StringWidth(candidate, variant, size) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			flush(current)
			current = word
			continue
		}
		// word alone overflows
		flush(word)
	}
	if current != "" {
		flush(current)
	}
	return lines
}

// LineY returns the baseline of line i of a block whose first baseline is y
func LineY(y, size float64, i int) float64 {
	return y - float64(i)*(size+LineSpacing)
}

// Layout wraps the block's text with its own font settings
func (b TextBlock) Layout(m Measurer) []Line {
	return Wrap(m, b.Text, b.Variant, b.FontSize, b.MaxWidth)
}
