package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
	"github.com/jung-kurt/gofpdf/contrib/gofpdi"
	"golang.org/x/text/encoding/charmap"
)

// A4 in points
const (
	PageWidth  = 595.0
	PageHeight = 842.0
)

const (
	embeddedFamily = "CertSans"
	coreFamily     = "Helvetica"
)

var (
	ErrGlyphMissing   = errors.New("font has no glyph for text")
	ErrTemplateImport = errors.New("template import failed")
	ErrDocumentClosed = errors.New("document already serialized")
)

// DrawError describes a failed text draw
type DrawError struct {
	Text    string
	Variant FontVariant
	Err     error
}

func (e *DrawError) Error() string {
	return fmt.Sprintf("draw %q (%s): %v", e.Text, e.Variant, e.Err)
}

func (e *DrawError) Unwrap() error {
	return e.Err
}

// DocumentOption configures a Document
type DocumentOption func(*documentOptions)

type documentOptions struct {
	title    string
	creator  string
	compress bool
}

// WithTitle sets the document info title
func WithTitle(title string) DocumentOption {
	return func(o *documentOptions) { o.title = title }
}

// WithCreator sets the document info creator
func WithCreator(creator string) DocumentOption {
	return func(o *documentOptions) { o.creator = creator }
}

// WithoutCompression leaves page content streams uncompressed
func WithoutCompression() DocumentOption {
	return func(o *documentOptions) { o.compress = false }
}

// Document is a single A4 page backed by gofpdf. Callers use PDF coordinates
// (origin bottom-left); conversion to gofpdf's top-left origin happens here.
type Document struct {
	pdf      *gofpdf.Fpdf
	fonts    *FontSet
	utf8     bool
	embedErr error
	cp1252   func(string) string
	closed   bool
}

// NewDocument creates the page, embeds fonts and, when template is non-empty,
// places page 1 of template as the page background.
func NewDocument(template []byte, fonts *FontSet, opts ...DocumentOption) (*Document, error) {
	o := documentOptions{compress: true}
	for _, opt := range opts {
		opt(&o)
	}

	f := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: PageWidth, Ht: PageHeight},
	})
	f.SetMargins(0, 0, 0)
	f.SetAutoPageBreak(false, 0)
	f.SetCompression(o.compress)
	if o.title != "" {
		f.SetTitle(o.title, true)
	}
	if o.creator != "" {
		f.SetCreator(o.creator, true)
	}

	d := &Document{
		pdf:    f,
		cp1252: f.UnicodeTranslatorFromDescriptor(""),
	}
	d.embedFonts(fonts)

	if len(template) == 0 {
		f.AddPage()
		return d, nil
	}

	imp := gofpdi.NewImporter()
	tpl, err := importTemplate(imp, f, template)
	if err != nil {
		return nil, err
	}
	f.AddPage()
	imp.UseImportedTemplate(f, tpl, 0, 0, PageWidth, PageHeight)
	if f.Err() {
		return nil, fmt.Errorf("%w: %v", ErrTemplateImport, f.Error())
	}
	return d, nil
}

func importTemplate(imp *gofpdi.Importer, f *gofpdf.Fpdf, template []byte) (tpl int, err error) {
	// gofpdi reports unreadable input by panicking
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTemplateImport, r)
		}
	}()
	rs := io.ReadSeeker(bytes.NewReader(template))
	tpl = imp.ImportPageFromStream(f, &rs, 1, "/MediaBox")
	if f.Err() {
		return 0, fmt.Errorf("%w: %v", ErrTemplateImport, f.Error())
	}
	return tpl, nil
}

// embedFonts registers the UTF-8 font pair. When that fails the document keeps
// working with the Helvetica core pair, which only covers cp1252.
func (d *Document) embedFonts(fs *FontSet) {
	if fs == nil {
		d.embedErr = errors.New("no font set supplied")
		return
	}
	if err := addUTF8Fonts(d.pdf, fs); err != nil {
		d.pdf.ClearError()
		d.embedErr = err
		return
	}
	d.fonts = fs
	d.utf8 = true
}

func addUTF8Fonts(f *gofpdf.Fpdf, fs *FontSet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("embed fonts: %v", r)
		}
	}()
	f.AddUTF8FontFromBytes(embeddedFamily, Regular.style(), fs.program(Regular))
	f.AddUTF8FontFromBytes(embeddedFamily, Bold.style(), fs.program(Bold))
	if f.Err() {
		return fmt.Errorf("embed fonts: %w", f.Error())
	}
	return nil
}

// FontFallback returns the embedding error when the core font pair is in use
func (d *Document) FontFallback() error {
	return d.embedErr
}

func (d *Document) setFont(variant FontVariant, size float64) {
	if d.utf8 {
		d.pdf.SetFont(embeddedFamily, variant.style(), size)
		return
	}
	d.pdf.SetFont(coreFamily, variant.style(), size)
}

func (d *Document) encode(text string) string {
	if d.utf8 {
		return text
	}
	return d.cp1252(text)
}

// Covers reports whether the active fonts can draw every rune of text
func (d *Document) Covers(text string, variant FontVariant) bool {
	if d.utf8 {
		return d.fonts.Covers(text, variant)
	}
	_, err := charmap.Windows1252.NewEncoder().String(text)
	return err == nil
}

// StringWidth measures text with the fonts actually used for drawing
func (d *Document) StringWidth(text string, variant FontVariant, size float64) float64 {
	d.setFont(variant, size)
	return d.pdf.GetStringWidth(d.encode(text))
}

// DrawText draws a single line with its baseline at (x, y)
func (d *Document) DrawText(x, y float64, text string, variant FontVariant, size float64, color RGB) error {
	if d.closed {
		return ErrDocumentClosed
	}
	if !d.Covers(text, variant) {
		return &DrawError{Text: text, Variant: variant, Err: ErrGlyphMissing}
	}

	d.setFont(variant, size)
	d.pdf.SetTextColor(color.R, color.G, color.B)
	d.pdf.Text(x, PageHeight-y, d.encode(text))
	if d.pdf.Err() {
		err := d.pdf.Error()
		d.pdf.ClearError()
		return &DrawError{Text: text, Variant: variant, Err: err}
	}
	return nil
}

// DrawRect strokes a rectangle whose lower-left corner is (x, y)
func (d *Document) DrawRect(x, y, w, h, lineWidth float64, color RGB) error {
	if d.closed {
		return ErrDocumentClosed
	}
	d.pdf.SetDrawColor(color.R, color.G, color.B)
	d.pdf.SetLineWidth(lineWidth)
	d.pdf.Rect(x, PageHeight-y-h, w, h, "D")
	if d.pdf.Err() {
		err := d.pdf.Error()
		d.pdf.ClearError()
		return err
	}
	return nil
}

// Bytes serializes the document. It can be called once; the document
// accepts no further drawing afterwards.
func (d *Document) Bytes() ([]byte, error) {
	if d.closed {
		return nil, ErrDocumentClosed
	}
	d.closed = true

	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize pdf: %w", err)
	}
	return buf.Bytes(), nil
}
