package pdf

import (
	"fmt"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// FontVariant selects one of the two faces used on a certificate
type FontVariant int

const (
	Regular FontVariant = iota
	Bold
)

func (v FontVariant) String() string {
	if v == Bold {
		return "bold"
	}
	return "regular"
}

// style returns the gofpdf style string for the variant
func (v FontVariant) style() string {
	if v == Bold {
		return "B"
	}
	return ""
}

// Measurer reports the rendered width of text in points
type Measurer interface {
	StringWidth(text string, variant FontVariant, size float64) float64
}

// FontSet holds the regular and bold TrueType faces embedded into every certificate
type FontSet struct {
	regular     []byte
	bold        []byte
	regularFace *sfnt.Font
	boldFace    *sfnt.Font
}

// NewFontSet parses the two font programs. Both must be TrueType outlines.
func NewFontSet(regular, bold []byte) (*FontSet, error) {
	rf, err := sfnt.Parse(regular)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bf, err := sfnt.Parse(bold)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}
	return &FontSet{
		regular:     regular,
		bold:        bold,
		regularFace: rf,
		boldFace:    bf,
	}, nil
}

// DefaultFontSet returns the Go font family compiled into the binary
func DefaultFontSet() *FontSet {
	fs, err := NewFontSet(goregular.TTF, gobold.TTF)
	if err != nil {
		panic(err)
	}
	return fs
}

func (fs *FontSet) face(v FontVariant) *sfnt.Font {
	if v == Bold {
		return fs.boldFace
	}
	return fs.regularFace
}

func (fs *FontSet) program(v FontVariant) []byte {
	if v == Bold {
		return fs.bold
	}
	return fs.regular
}

// StringWidth sums glyph advances of text at size points. Missing glyphs
// contribute the advance of .notdef.
func (fs *FontSet) StringWidth(text string, variant FontVariant, size float64) float64 {
	f := fs.face(variant)
	var buf sfnt.Buffer
	upem := f.UnitsPerEm()
	// advances are requested at ppem == unitsPerEm so they come back in font units
	ppem := fixed.I(int(upem))

	var total fixed.Int26_6
	for _, r := range text {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil {
			idx = 0
		}
		adv, err := f.GlyphAdvance(&buf, idx, ppem, font.HintingNone)
		if err != nil {
			continue
		}
		total += adv
	}
	units := float64(total) / 64
	return units * size / float64(upem)
}

// Covers reports whether every rune of text has a glyph in the variant's face
func (fs *FontSet) Covers(text string, variant FontVariant) bool {
	f := fs.face(variant)
	var buf sfnt.Buffer
	for _, r := range text {
		idx, err := f.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			return false
		}
	}
	return true
}
