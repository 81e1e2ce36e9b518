package exams

import (
	"gorm.io/datatypes"
)

// CertificateTemplate overrides the certificate wording for one exam.
// Absent keys fall back to the exam title and default phrases.
type CertificateTemplate struct {
	Training              *string `json:"szkolenie,omitempty"`
	Competencies          *string `json:"kompetencje,omitempty"`
	CompletionDescription *string `json:"opisUkonczenia,omitempty"`
}

// Exam is owned by the exam management service; this service only reads it
type Exam struct {
	ID                  string                                   `gorm:"primaryKey" json:"id"`
	Title               string                                   `gorm:"not null" json:"title"`
	CertificateTemplate datatypes.JSONType[CertificateTemplate] `gorm:"not null;default:'{}'" json:"certificate_template"`
}

type Participant struct {
	ID          string `gorm:"primaryKey" json:"id"`
	DisplayName string `gorm:"not null" json:"display_name"`
}

// Attempt is a participant's single try at an exam
type Attempt struct {
	ID            string      `gorm:"primaryKey" json:"id"`
	ExamID        string      `gorm:"index;not null" json:"exam_id"`
	ParticipantID string      `gorm:"index;not null" json:"participant_id"`
	Passed        bool        `gorm:"not null;default:false" json:"passed"`
	Exam          Exam        `gorm:"foreignKey:ExamID" json:"-"`
	Participant   Participant `gorm:"foreignKey:ParticipantID" json:"-"`
}

func (Attempt) TableName() string {
	return "exam_attempts"
}

// ExamAttempt is the flattened, read-only view consumed by certificate generation
type ExamAttempt struct {
	ID                     string
	ExamID                 string
	ParticipantID          string
	Passed                 bool
	ExamTitle              string
	CertificateTemplate    *CertificateTemplate
	ParticipantDisplayName string
}

func (a *Attempt) view() *ExamAttempt {
	v := &ExamAttempt{
		ID:                     a.ID,
		ExamID:                 a.ExamID,
		ParticipantID:          a.ParticipantID,
		Passed:                 a.Passed,
		ExamTitle:              a.Exam.Title,
		ParticipantDisplayName: a.Participant.DisplayName,
	}
	tpl := a.Exam.CertificateTemplate.Data()
	if tpl.Training != nil || tpl.Competencies != nil || tpl.CompletionDescription != nil {
		v.CertificateTemplate = &tpl
	}
	return v
}
