package certificates

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"exam-portal/certificate-service/pkg/pdf"
)

const (
	DefaultTemplateName  = "certificate-template"
	fallbackTemplateName = "builtin-fallback"
)

// ResolvedTemplate is the page background handed to the assembler
type ResolvedTemplate struct {
	Bytes    []byte
	Name     string
	Fallback bool
}

type templateSource interface {
	DownloadTemplate(ctx context.Context, name string) ([]byte, error)
}

// TemplateResolver fetches the branded template from object storage and
// synthesizes a plain one when it cannot.
type TemplateResolver struct {
	source templateSource
	name   string
	ttl    time.Duration
	layout Layout
	fonts  *pdf.FontSet
	logger *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   []byte
	cachedAt time.Time
	fallback []byte
}

func NewTemplateResolver(source templateSource, name string, ttl time.Duration, layout Layout, fonts *pdf.FontSet, logger *zap.Logger) *TemplateResolver {
	if name == "" {
		name = DefaultTemplateName
	}
	return &TemplateResolver{
		source: source,
		name:   name,
		ttl:    ttl,
		layout: layout,
		fonts:  fonts,
		logger: logger,
		now:    time.Now,
	}
}

// Resolve never reports a missing template as an error: the synthesized
// fallback is returned instead. Errors come only from a cancelled context or
// a failure to build the fallback itself.
func (r *TemplateResolver) Resolve(ctx context.Context) (*ResolvedTemplate, error) {
	if data, ok := r.cachedTemplate(); ok {
		return &ResolvedTemplate{Bytes: data, Name: r.name}, nil
	}

	data, err := r.source.DownloadTemplate(ctx, r.name)
	if err == nil && len(data) == 0 {
		err = errors.New("template object is empty")
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Warn("Certificate template unavailable, using fallback",
			zap.String("template", r.name),
			zap.Error(fmt.Errorf("%w: %v", ErrTemplateUnavailable, err)),
		)
		return r.Fallback()
	}

	r.store(data)
	return &ResolvedTemplate{Bytes: data, Name: r.name}, nil
}

// Invalidate drops the cached template, e.g. after it failed to import
func (r *TemplateResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
}

func (r *TemplateResolver) cachedTemplate() ([]byte, bool) {
	if r.ttl <= 0 {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached == nil || r.now().Sub(r.cachedAt) >= r.ttl {
		return nil, false
	}
	return r.cached, true
}

func (r *TemplateResolver) store(data []byte) {
	if r.ttl <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = data
	r.cachedAt = r.now()
}

// Fallback returns the synthesized template. It is built once per resolver.
func (r *TemplateResolver) Fallback() (*ResolvedTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fallback == nil {
		data, err := buildFallbackTemplate(r.layout, r.fonts, r.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to build fallback template: %w", err)
		}
		r.fallback = data
	}
	return &ResolvedTemplate{Bytes: r.fallback, Name: fallbackTemplateName, Fallback: true}, nil
}

// static labels of the fallback page
const (
	labelTitle        = "CERTYFIKAT"
	labelSubtitle     = "UKOŃCZENIA SZKOLENIA"
	labelSalutation   = "Niniejszym zaświadcza się, że"
	// The fallback page is built once per resolver, so it prints the default
	// phrase; a per-exam description only lives in CertificateData.
	labelCompleted    = DefaultCompletionDescription
	labelCompetencies = "Zakres uzyskanych kompetencji:"
	labelNumber       = "Numer certyfikatu:"
	labelIssueDate    = "Data wydania:"
)

var frameColor = pdf.RGB{R: 22, G: 61, B: 122}

// buildFallbackTemplate lays out the static part of the certificate. The
// dynamic blocks are left empty for the assembler; label positions follow
// the block positions of layout.
func buildFallbackTemplate(layout Layout, fonts *pdf.FontSet, logger *zap.Logger) ([]byte, error) {
	doc, err := pdf.NewDocument(nil, fonts, pdf.WithTitle("Certyfikat"), pdf.WithCreator("certificate-service"))
	if err != nil {
		return nil, err
	}

	if err := doc.DrawRect(20, 20, pdf.PageWidth-40, pdf.PageHeight-40, 2, frameColor); err != nil {
		return nil, err
	}
	if err := doc.DrawRect(30, 30, pdf.PageWidth-60, pdf.PageHeight-60, 0.5, frameColor); err != nil {
		return nil, err
	}

	labelX := layout.ParticipantName.X
	labelWidth := pdf.PageWidth - 2*labelX
	footerX := labelX
	if layout.CertificateNumber.X < footerX {
		footerX = layout.CertificateNumber.X
	}

	labels := []pdf.TextBlock{
		centered(doc, labelTitle, 730, 40, pdf.Bold, frameColor),
		centered(doc, labelSubtitle, 700, 16, pdf.Regular, inkDark),
		{Text: labelSalutation, X: labelX, Y: layout.ParticipantName.Y + 40, FontSize: 14, Color: inkDark, MaxWidth: labelWidth},
		{Text: labelCompleted, X: labelX, Y: layout.TrainingTitle.Y + 40, FontSize: 12, Color: inkDark, MaxWidth: labelWidth},
		{Text: labelCompetencies, X: labelX, Y: layout.Competencies.Y + 20, FontSize: 12, Variant: pdf.Bold, Color: inkDark, MaxWidth: labelWidth},
		{Text: labelNumber, X: footerX - 92, Y: layout.CertificateNumber.Y, FontSize: 9, Color: inkMuted, MaxWidth: 90},
		{Text: labelIssueDate, X: footerX - 92, Y: layout.IssueDate.Y, FontSize: 9, Color: inkMuted, MaxWidth: 90},
	}

	issuerY := layout.IssueDate.Y - 34
	if layout.IssuerName != "" {
		labels = append(labels, pdf.TextBlock{Text: layout.IssuerName, X: labelX, Y: issuerY, FontSize: 10, Variant: pdf.Bold, Color: inkDark, MaxWidth: labelWidth})
	}
	for i, line := range layout.IssuerAddress {
		labels = append(labels, pdf.TextBlock{Text: line, X: labelX, Y: issuerY - float64(i+1)*12, FontSize: 9, Color: inkMuted, MaxWidth: labelWidth})
	}

	for _, label := range labels {
		drawStatic(doc, label, logger)
	}
	return doc.Bytes()
}

func centered(m pdf.Measurer, text string, y, size float64, variant pdf.FontVariant, color pdf.RGB) pdf.TextBlock {
	w := m.StringWidth(text, variant, size)
	return pdf.TextBlock{
		Text:     text,
		X:        (pdf.PageWidth - w) / 2,
		Y:        y,
		FontSize: size,
		Variant:  variant,
		Color:    color,
		MaxWidth: pdf.PageWidth,
	}
}

// drawStatic draws a label, falling back to its transliteration when the
// active fonts cannot represent it
func drawStatic(doc *pdf.Document, b pdf.TextBlock, logger *zap.Logger) {
	for _, line := range pdf.Wrap(doc, b.Text, b.Variant, b.FontSize, b.MaxWidth) {
		y := pdf.LineY(b.Y, b.FontSize, line.Index)
		err := doc.DrawText(b.X, y, line.Text, b.Variant, b.FontSize, b.Color)
		if err == nil {
			continue
		}
		if err := doc.DrawText(b.X, y, pdf.Transliterate(line.Text), b.Variant, b.FontSize, b.Color); err != nil {
			logger.Warn("Skipping fallback template label", zap.String("label", line.Text), zap.Error(err))
		}
	}
}
