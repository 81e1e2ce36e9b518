package pdf

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var black = RGB{}

func TestDocumentDrawAndSerialize(t *testing.T) {
	doc, err := NewDocument(nil, DefaultFontSet(), WithTitle("Certyfikat"), WithCreator("test"))
	require.NoError(t, err)
	require.NoError(t, doc.FontFallback())

	require.NoError(t, doc.DrawText(100, 700, "Zażółć gęślą jaźń", Bold, 18, black))
	require.NoError(t, doc.DrawRect(20, 20, 555, 802, 2, RGB{R: 30, G: 60, B: 120}))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = doc.Bytes()
	assert.ErrorIs(t, err, ErrDocumentClosed)
	assert.ErrorIs(t, doc.DrawText(100, 100, "late", Regular, 10, black), ErrDocumentClosed)
}

func TestDocumentMissingGlyph(t *testing.T) {
	doc, err := NewDocument(nil, DefaultFontSet())
	require.NoError(t, err)

	err = doc.DrawText(100, 700, "漢字", Regular, 12, black)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGlyphMissing)

	var de *DrawError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "漢字", de.Text)
}

func TestDocumentCoreFontFallback(t *testing.T) {
	doc, err := NewDocument(nil, nil, WithoutCompression())
	require.NoError(t, err)
	assert.Error(t, doc.FontFallback())

	assert.ErrorIs(t, doc.DrawText(100, 700, "Łódź", Regular, 12, black), ErrGlyphMissing)
	require.NoError(t, doc.DrawText(100, 700, Transliterate("Łódź"), Regular, 12, black))
	require.NoError(t, doc.DrawText(100, 680, "Zürich", Regular, 12, black))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.Contains(t, string(out), "(Lodz) Tj")
}

func TestDocumentMeasuresWithActiveFonts(t *testing.T) {
	fs := DefaultFontSet()
	doc, err := NewDocument(nil, fs)
	require.NoError(t, err)

	assert.InDelta(t, fs.StringWidth("Certyfikat ukończenia", Regular, 14),
		doc.StringWidth("Certyfikat ukończenia", Regular, 14), 0.5)
}

func TestDocumentImportsTemplate(t *testing.T) {
	base, err := NewDocument(nil, DefaultFontSet())
	require.NoError(t, err)
	require.NoError(t, base.DrawRect(20, 20, 555, 802, 2, black))
	require.NoError(t, base.DrawText(200, 750, "CERTYFIKAT", Bold, 32, black))
	template, err := base.Bytes()
	require.NoError(t, err)

	doc, err := NewDocument(template, DefaultFontSet())
	require.NoError(t, err)
	require.NoError(t, doc.DrawText(100, 500, "Jan Kowalski", Bold, 24, black))

	out, err := doc.Bytes()
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestDocumentRejectsBrokenTemplate(t *testing.T) {
	_, err := NewDocument([]byte("this is not a pdf"), DefaultFontSet())
	assert.ErrorIs(t, err, ErrTemplateImport)
}

func TestDocumentCovers(t *testing.T) {
	embedded, err := NewDocument(nil, DefaultFontSet())
	require.NoError(t, err)
	assert.True(t, embedded.Covers("Zażółć gęślą jaźń", Regular))
	assert.False(t, embedded.Covers("漢字", Regular))

	core, err := NewDocument(nil, nil)
	require.NoError(t, err)
	assert.True(t, core.Covers("Zürich", Bold))
	assert.False(t, core.Covers("Łódź", Bold))
}
