package certificates

import (
	"strings"

	"go.uber.org/zap"

	"exam-portal/certificate-service/pkg/pdf"
)

// Canvas is the drawing surface the assembler writes blocks onto
type Canvas interface {
	pdf.Measurer
	Covers(text string, variant pdf.FontVariant) bool
	DrawText(x, y float64, text string, variant pdf.FontVariant, size float64, color pdf.RGB) error
}

// BlockResult records how one block ended up on the page
type BlockResult struct {
	Name     BlockName
	Lines    []string
	Fallback bool
	Err      error
}

// AssemblyReport lists every block in draw order
type AssemblyReport struct {
	Blocks       []BlockResult
	FontFallback error
}

// FallbackUsed reports whether any block took the transliteration path
func (r *AssemblyReport) FallbackUsed() bool {
	for _, b := range r.Blocks {
		if b.Fallback {
			return true
		}
	}
	return false
}

func (r *AssemblyReport) Block(name BlockName) (BlockResult, bool) {
	for _, b := range r.Blocks {
		if b.Name == name {
			return b, true
		}
	}
	return BlockResult{}, false
}

type namedBlock struct {
	name  BlockName
	block pdf.TextBlock
}

// Assembler draws certificate data onto a template page
type Assembler struct {
	layout Layout
	fonts  *pdf.FontSet
	logger *zap.Logger
}

func NewAssembler(layout Layout, fonts *pdf.FontSet, logger *zap.Logger) *Assembler {
	return &Assembler{
		layout: layout,
		fonts:  fonts,
		logger: logger,
	}
}

// Assemble renders data over page 1 of template. An unreadable template is
// reported as pdf.ErrTemplateImport before anything is drawn.
func (a *Assembler) Assemble(template []byte, data *CertificateData) ([]byte, *AssemblyReport, error) {
	doc, err := pdf.NewDocument(template, a.fonts,
		pdf.WithTitle("Certyfikat "+data.CertificateID),
		pdf.WithCreator("certificate-service"),
	)
	if err != nil {
		return nil, nil, err
	}

	fontErr := doc.FontFallback()
	if fontErr != nil {
		a.logger.Warn("Font embedding failed, drawing with core fonts",
			zap.String("certificate_id", data.CertificateID),
			zap.Error(fontErr),
		)
	}

	report := a.drawBlocks(doc, a.blocks(data))
	report.FontFallback = fontErr

	out, err := doc.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

func (a *Assembler) blocks(data *CertificateData) []namedBlock {
	text := map[BlockName]string{
		BlockCertificateNumber: data.CertificateID,
		BlockIssueDate:         data.IssueDate,
		BlockParticipantName:   data.ParticipantName,
		BlockTrainingTitle:     data.TrainingTitle,
		BlockCompetencies:      data.Competencies,
	}
	blocks := make([]namedBlock, 0, len(BlockOrder))
	for _, name := range BlockOrder {
		layout, _ := a.layout.Block(name)
		blocks = append(blocks, namedBlock{name: name, block: layout.TextBlock(text[name])})
	}
	return blocks
}

// drawBlocks draws each block independently; a failing block never stops
// the ones after it.
func (a *Assembler) drawBlocks(c Canvas, blocks []namedBlock) *AssemblyReport {
	report := &AssemblyReport{Blocks: make([]BlockResult, 0, len(blocks))}
	for _, nb := range blocks {
		result := BlockResult{Name: nb.name}

		lines, err := drawPrimary(c, nb.block)
		if err == nil {
			result.Lines = lines
			report.Blocks = append(report.Blocks, result)
			continue
		}

		a.logger.Warn("Block draw failed, retrying transliterated",
			zap.String("block", string(nb.name)),
			zap.Error(err),
		)
		result.Fallback = true
		line, err := drawFallback(c, nb.block)
		if err != nil {
			a.logger.Warn("Transliterated block draw failed, skipping block",
				zap.String("block", string(nb.name)),
				zap.Error(err),
			)
			result.Err = err
		} else if line != "" {
			result.Lines = []string{line}
		}
		report.Blocks = append(report.Blocks, result)
	}
	return report
}

// drawPrimary wraps the normalized text to the block width and draws one
// baseline per line. Every line is checked before the first is drawn so a
// rejected block leaves nothing on the page.
func drawPrimary(c Canvas, b pdf.TextBlock) ([]string, error) {
	b.Text = pdf.Normalize(b.Text)
	lines := b.Layout(c)
	for _, line := range lines {
		if !c.Covers(line.Text, b.Variant) {
			return nil, &pdf.DrawError{Text: line.Text, Variant: b.Variant, Err: pdf.ErrGlyphMissing}
		}
	}

	drawn := make([]string, 0, len(lines))
	for _, line := range lines {
		y := pdf.LineY(b.Y, b.FontSize, line.Index)
		if err := c.DrawText(b.X, y, line.Text, b.Variant, b.FontSize, b.Color); err != nil {
			return nil, err
		}
		drawn = append(drawn, line.Text)
	}
	return drawn, nil
}

// drawFallback draws the transliterated text as one unwrapped line at the
// block origin
func drawFallback(c Canvas, b pdf.TextBlock) (string, error) {
	text := pdf.Transliterate(b.Text)
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if err := c.DrawText(b.X, b.Y, text, b.Variant, b.FontSize, b.Color); err != nil {
		return "", err
	}
	return text, nil
}
