package certificates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository is the certificate catalog. Register is insert-only: the first
// record for a (participant, exam) pair wins and later attempts get the
// winner back with created == false.
type Repository interface {
	FindByParticipantExam(ctx context.Context, participantID, examID string) (*CertificateRecord, error)
	Register(ctx context.Context, rec *CertificateRecord) (stored *CertificateRecord, created bool, err error)
}

// ErrRegistryInconsistent is returned when an insert conflicted but the
// conflicting record cannot be read back
var ErrRegistryInconsistent = errors.New("certificate insert conflicted but no record was found")

// SQLRepository implements Repository on PostgreSQL or SQLite
type SQLRepository struct {
	db *sqlx.DB
}

// NewSQLRepository creates a repository over an open sqlx handle
func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS certificates (
		id               TEXT PRIMARY KEY,
		attempt_id       TEXT NOT NULL,
		participant_id   TEXT NOT NULL,
		exam_id          TEXT NOT NULL,
		certificate_data JSONB NOT NULL,
		pdf_url          TEXT NOT NULL,
		generated_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (participant_id, exam_id)
	)
`

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS certificates (
		id               TEXT PRIMARY KEY,
		attempt_id       TEXT NOT NULL,
		participant_id   TEXT NOT NULL,
		exam_id          TEXT NOT NULL,
		certificate_data TEXT NOT NULL,
		pdf_url          TEXT NOT NULL,
		generated_at     TIMESTAMP NOT NULL,
		UNIQUE (participant_id, exam_id)
	)
`

// Migrate creates the certificates table for the handle's dialect
func (r *SQLRepository) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if r.db.DriverName() == "sqlite3" {
		schema = sqliteSchema
	}
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate certificates table: %w", err)
	}
	return nil
}

func (r *SQLRepository) FindByParticipantExam(ctx context.Context, participantID, examID string) (*CertificateRecord, error) {
	query := r.db.Rebind(`
		SELECT id, attempt_id, participant_id, exam_id, certificate_data, pdf_url, generated_at
		FROM certificates
		WHERE participant_id = ? AND exam_id = ?
	`)

	var rec CertificateRecord
	err := r.db.GetContext(ctx, &rec, query, participantID, examID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &rec, nil
}

func (r *SQLRepository) Register(ctx context.Context, rec *CertificateRecord) (*CertificateRecord, bool, error) {
	query := r.db.Rebind(`
		INSERT INTO certificates (id, attempt_id, participant_id, exam_id, certificate_data, pdf_url, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (participant_id, exam_id) DO NOTHING
	`)

	res, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.AttemptID, rec.ParticipantID, rec.ExamID, rec.Data, rec.PDFURL, rec.GeneratedAt.UTC(),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to register certificate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to register certificate: %w", err)
	}
	if n == 1 {
		return rec, true, nil
	}

	winner, err := r.FindByParticipantExam(ctx, rec.ParticipantID, rec.ExamID)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, false, ErrRegistryInconsistent
	}
	return winner, false, nil
}
