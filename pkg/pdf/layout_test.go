package pdf

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runeMeasurer gives every rune the same advance: half the font size
type runeMeasurer struct{}

func (runeMeasurer) StringWidth(text string, _ FontVariant, size float64) float64 {
	return float64(utf8.RuneCountInString(text)) * size * 0.5
}

func lineTexts(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}

func TestWrapGreedyFill(t *testing.T) {
	lines := Wrap(runeMeasurer{}, "aa bb cc", Regular, 10, 25)

	assert.Equal(t, []string{"aa bb", "cc"}, lineTexts(lines))
	assert.Equal(t, 0, lines[0].Index)
	assert.Equal(t, 1, lines[1].Index)
}

func TestWrapExactFitStaysOnLine(t *testing.T) {
	// "abc de" is 6 runes * 5 = 30
	lines := Wrap(runeMeasurer{}, "abc de", Regular, 10, 30)
	assert.Equal(t, []string{"abc de"}, lineTexts(lines))
}

func TestWrapOverlongWordIsNotBroken(t *testing.T) {
	lines := Wrap(runeMeasurer{}, "to supercalifragilistic be", Regular, 10, 20)

	assert.Equal(t, []string{"to", "supercalifragilistic", "be"}, lineTexts(lines))
}

func TestWrapOverlongFirstWord(t *testing.T) {
	lines := Wrap(runeMeasurer{}, "Konstantynopolitańczykowianeczka i", Regular, 12, 50)

	require.Len(t, lines, 2)
	assert.Equal(t, "Konstantynopolitańczykowianeczka", lines[0].Text)
	assert.Equal(t, "i", lines[1].Text)
}

func TestWrapEmptyInput(t *testing.T) {
	assert.Empty(t, Wrap(runeMeasurer{}, "", Regular, 12, 400))
	assert.Empty(t, Wrap(runeMeasurer{}, " \t\n ", Regular, 12, 400))
}

func TestWrapCollapsesWhitespace(t *testing.T) {
	lines := Wrap(runeMeasurer{}, "  one\ttwo\n\nthree  ", Regular, 10, 400)
	assert.Equal(t, []string{"one two three"}, lineTexts(lines))
}

func TestWrapProperties(t *testing.T) {
	fonts := DefaultFontSet()
	inputs := []string{
		"Zarządzanie bezpieczeństwem informacji zgodnie z normą ISO/IEC 27001:2022, audyt wewnętrzny, analiza ryzyka",
		"ISO 27001 Auditor",
		"Pneumonoultramicroscopicsilicovolcanoconiosis is long; so is Chargoggagoggmanchauggagoggchaubunagungamaugg",
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
		strings.Repeat("kompetencje ", 60),
	}
	measurers := map[string]Measurer{"runes": runeMeasurer{}, "go-font": fonts}
	sizes := []float64{8, 12, 18, 28}
	widths := []float64{60, 150, 400}

	for name, m := range measurers {
		for _, text := range inputs {
			for _, size := range sizes {
				for _, maxWidth := range widths {
					lines := Wrap(m, text, Bold, size, maxWidth)

					var words []string
					for i, l := range lines {
						assert.Equal(t, i, l.Index)
						lw := strings.Fields(l.Text)
						words = append(words, lw...)
						if len(lw) > 1 {
							assert.LessOrEqual(t, m.StringWidth(l.Text, Bold, size), maxWidth,
								"%s: line %q exceeds %v at %vpt", name, l.Text, maxWidth, size)
						}
					}
					assert.Equal(t, strings.Fields(text), words, "%s: words changed", name)
				}
			}
		}
	}
}

func TestLineY(t *testing.T) {
	assert.Equal(t, 500.0, LineY(500, 12, 0))
	assert.Equal(t, 486.0, LineY(500, 12, 1))
	assert.Equal(t, 472.0, LineY(500, 12, 2))
}

func TestTextBlockLayout(t *testing.T) {
	b := TextBlock{Text: "aa bb cc", FontSize: 10, MaxWidth: 25}
	assert.Equal(t, []string{"aa bb", "cc"}, lineTexts(b.Layout(runeMeasurer{})))
}
