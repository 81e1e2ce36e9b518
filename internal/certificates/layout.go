package certificates

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"exam-portal/certificate-service/pkg/pdf"
)

// BlockName identifies one of the dynamic text blocks of a certificate
type BlockName string

const (
	BlockCertificateNumber BlockName = "certificate_number"
	BlockIssueDate         BlockName = "issue_date"
	BlockParticipantName   BlockName = "participant_name"
	BlockTrainingTitle     BlockName = "training_title"
	BlockCompetencies      BlockName = "competencies"
)

// BlockOrder is the order in which blocks are drawn
var BlockOrder = []BlockName{
	BlockCertificateNumber,
	BlockIssueDate,
	BlockParticipantName,
	BlockTrainingTitle,
	BlockCompetencies,
}

// BlockLayout positions one block. X/Y are the first baseline in PDF points.
type BlockLayout struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	FontSize float64 `yaml:"font_size"`
	Bold     bool    `yaml:"bold"`
	Color    pdf.RGB `yaml:"color"`
	MaxWidth float64 `yaml:"max_width"`
}

// TextBlock binds text to the block position
func (b BlockLayout) TextBlock(text string) pdf.TextBlock {
	variant := pdf.Regular
	if b.Bold {
		variant = pdf.Bold
	}
	return pdf.TextBlock{
		Text:     text,
		X:        b.X,
		Y:        b.Y,
		FontSize: b.FontSize,
		Variant:  variant,
		Color:    b.Color,
		MaxWidth: b.MaxWidth,
	}
}

// Layout describes where certificate data lands on the page
type Layout struct {
	CertificateNumber BlockLayout `yaml:"certificate_number"`
	IssueDate         BlockLayout `yaml:"issue_date"`
	ParticipantName   BlockLayout `yaml:"participant_name"`
	TrainingTitle     BlockLayout `yaml:"training_title"`
	Competencies      BlockLayout `yaml:"competencies"`

	IssuerName    string   `yaml:"issuer_name"`
	IssuerAddress []string `yaml:"issuer_address"`
}

// DefaultMaxWidth is applied to every block unless a layout file overrides it
const DefaultMaxWidth = 400

var (
	inkDark   = pdf.RGB{R: 33, G: 37, B: 41}
	inkAccent = pdf.RGB{R: 22, G: 61, B: 122}
	inkMuted  = pdf.RGB{R: 90, G: 90, B: 90}
)

// DefaultLayout matches the synthesized fallback template
func DefaultLayout() Layout {
	return Layout{
		CertificateNumber: BlockLayout{X: 190, Y: 140, FontSize: 9, Color: inkMuted, MaxWidth: DefaultMaxWidth},
		IssueDate:         BlockLayout{X: 190, Y: 124, FontSize: 9, Color: inkMuted, MaxWidth: DefaultMaxWidth},
		ParticipantName:   BlockLayout{X: 98, Y: 580, FontSize: 26, Bold: true, Color: inkAccent, MaxWidth: DefaultMaxWidth},
		TrainingTitle:     BlockLayout{X: 98, Y: 500, FontSize: 18, Bold: true, Color: inkDark, MaxWidth: DefaultMaxWidth},
		Competencies:      BlockLayout{X: 98, Y: 400, FontSize: 11, Color: inkDark, MaxWidth: DefaultMaxWidth},
		IssuerName:        "Centrum Szkoleń i Certyfikacji",
		IssuerAddress:     []string{"ul. Marszałkowska 1", "00-001 Warszawa"},
	}
}

// Block returns the layout of a named block
func (l Layout) Block(name BlockName) (BlockLayout, bool) {
	switch name {
	case BlockCertificateNumber:
		return l.CertificateNumber, true
	case BlockIssueDate:
		return l.IssueDate, true
	case BlockParticipantName:
		return l.ParticipantName, true
	case BlockTrainingTitle:
		return l.TrainingTitle, true
	case BlockCompetencies:
		return l.Competencies, true
	}
	return BlockLayout{}, false
}

// Validate checks that every block can be laid out
func (l Layout) Validate() error {
	for _, name := range BlockOrder {
		b, _ := l.Block(name)
		if b.FontSize <= 0 {
			return fmt.Errorf("layout %s: font_size must be positive", name)
		}
		if b.MaxWidth <= 0 {
			return fmt.Errorf("layout %s: max_width must be positive", name)
		}
	}
	return nil
}

// LoadLayout overlays the YAML file at path on DefaultLayout. An empty
// path returns the default layout.
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if path == "" {
		return layout, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, fmt.Errorf("failed to read layout file: %w", err)
	}
	if err := yaml.Unmarshal(data, &layout); err != nil {
		return Layout{}, fmt.Errorf("failed to parse layout file: %w", err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, err
	}
	return layout, nil
}
