package certificates

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CertificateRequest identifies the certificate a caller asks for
type CertificateRequest struct {
	ParticipantID string `json:"participantId"`
	ExamID        string `json:"examId"`
	AttemptID     string `json:"attemptId"`
}

// CertificateData holds the values printed on a certificate. It is computed
// once per generation and stored with the record.
type CertificateData struct {
	CertificateID         string `json:"certificateId"`
	IssueDate             string `json:"issueDate"`
	ParticipantName       string `json:"participantName"`
	TrainingTitle         string `json:"trainingTitle"`
	Competencies          string `json:"competencies"`
	CompletionDescription string `json:"completionDescription"`
}

// Value implements driver.Valuer
func (d CertificateData) Value() (driver.Value, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *CertificateData) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = CertificateData{}
		return nil
	case []byte:
		return json.Unmarshal(v, d)
	case string:
		return json.Unmarshal([]byte(v), d)
	default:
		return fmt.Errorf("unsupported certificate_data type %T", value)
	}
}

// CertificateRecord is the durable catalog entry of an issued certificate.
// At most one exists per (ParticipantID, ExamID).
type CertificateRecord struct {
	ID            string          `json:"id" db:"id"`
	AttemptID     string          `json:"attemptId" db:"attempt_id"`
	ParticipantID string          `json:"participantId" db:"participant_id"`
	ExamID        string          `json:"examId" db:"exam_id"`
	Data          CertificateData `json:"certificateData" db:"certificate_data"`
	PDFURL        string          `json:"pdfUrl" db:"pdf_url"`
	GeneratedAt   time.Time       `json:"generatedAt" db:"generated_at"`
}

// GenerateResult separates "artifact produced" from "catalog entry written".
//
// Existing is set when the certificate was issued earlier (or by a concurrent
// request that won the registration); Data is nil in that case. For a fresh
// certificate Registered reports whether the record was written, and
// RegistrationErr carries the failure when it was not.
type GenerateResult struct {
	CertificateID   string
	CertificateURL  string
	Data            *CertificateData
	Existing        bool
	Registered      bool
	RegistrationErr error
	FallbackUsed    bool
}
