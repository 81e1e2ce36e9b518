package certificates

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"exam-portal/certificate-service/internal/exams"
	"exam-portal/certificate-service/pkg/pdf"
)

const (
	DefaultCompetencies          = "Wiedza i umiejętności potwierdzone pozytywnym wynikiem egzaminu końcowego."
	DefaultCompletionDescription = "ukończył(a) z wynikiem pozytywnym szkolenie zakończone egzaminem"

	issueDateLayout = "02.01.2006"
)

// AttemptSource looks up exam attempts. exams.Repository satisfies it.
type AttemptSource interface {
	GetAttempt(ctx context.Context, attemptID string) (*exams.ExamAttempt, error)
}

// Service generates, stores and registers certificates
type Service struct {
	repo      Repository
	attempts  AttemptSource
	templates *TemplateResolver
	assembler *Assembler
	storage   *StorageProvider
	location  *time.Location
	logger    *zap.Logger
	now       func() time.Time

	inflight singleflight.Group
}

// NewService wires the certificate pipeline. A nil location means UTC.
func NewService(
	repo Repository,
	attempts AttemptSource,
	templates *TemplateResolver,
	assembler *Assembler,
	storage *StorageProvider,
	location *time.Location,
	logger *zap.Logger,
) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:      repo,
		attempts:  attempts,
		templates: templates,
		assembler: assembler,
		storage:   storage,
		location:  location,
		logger:    logger,
		now:       time.Now,
	}
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id that service log lines carry
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (s *Service) log(ctx context.Context) *zap.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return s.logger.With(zap.String("request_id", id))
	}
	return s.logger
}

// Validate checks that all identifiers are present
func (r CertificateRequest) Validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" ||
		strings.TrimSpace(r.ExamID) == "" ||
		strings.TrimSpace(r.AttemptID) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Generate returns the certificate of the request's (participant, exam)
// pair, producing it when none exists yet. Concurrent calls for the same
// pair within this process share one generation.
func (s *Service) Generate(ctx context.Context, req CertificateRequest) (*GenerateResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := req.ParticipantID + "\x00" + req.ExamID
	v, err, shared := s.inflight.Do(key, func() (interface{}, error) {
		return s.generate(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log(ctx).Debug("Joined in-flight certificate generation",
			zap.String("participant_id", req.ParticipantID),
			zap.String("exam_id", req.ExamID),
		)
	}
	result := *v.(*GenerateResult)
	return &result, nil
}

func (s *Service) generate(ctx context.Context, req CertificateRequest) (*GenerateResult, error) {
	logger := s.log(ctx).With(
		zap.String("participant_id", req.ParticipantID),
		zap.String("exam_id", req.ExamID),
		zap.String("attempt_id", req.AttemptID),
	)

	existing, err := s.repo.FindByParticipantExam(ctx, req.ParticipantID, req.ExamID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing certificate: %w", err)
	}
	if existing != nil {
		logger.Info("Certificate already issued", zap.String("certificate_id", existing.ID))
		return &GenerateResult{
			CertificateID:  existing.ID,
			CertificateURL: existing.PDFURL,
			Existing:       true,
			Registered:     true,
		}, nil
	}

	attempt, err := s.attempts.GetAttempt(ctx, req.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt: %w", err)
	}
	if !eligible(attempt, req) {
		logger.Info("Attempt not eligible for a certificate")
		return nil, ErrAttemptNotEligible
	}

	now := s.now()
	data := s.certificateData(attempt, now)
	logger = logger.With(zap.String("certificate_id", data.CertificateID))

	content, fallbackUsed, err := s.render(ctx, data, logger)
	if err != nil {
		return nil, err
	}

	key, err := s.storage.UploadCertificate(ctx, data.CertificateID, content)
	if err != nil {
		logger.Error("Certificate upload failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	url, err := s.storage.URL(ctx, key)
	if err != nil {
		logger.Error("Certificate URL unavailable", zap.Error(err))
		s.deleteOrphan(ctx, data.CertificateID, logger)
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	record := &CertificateRecord{
		ID:            data.CertificateID,
		AttemptID:     attempt.ID,
		ParticipantID: req.ParticipantID,
		ExamID:        req.ExamID,
		Data:          *data,
		PDFURL:        url,
		GeneratedAt:   now,
	}

	stored, created, err := s.repo.Register(ctx, record)
	if err != nil {
		logger.Error("Certificate registration failed", zap.Error(err))
		return &GenerateResult{
			CertificateID:   data.CertificateID,
			CertificateURL:  url,
			Data:            data,
			Registered:      false,
			RegistrationErr: err,
			FallbackUsed:    fallbackUsed,
		}, nil
	}

	if !created {
		logger.Info("Certificate registered concurrently, returning existing",
			zap.String("existing_certificate_id", stored.ID),
		)
		s.deleteOrphan(ctx, data.CertificateID, logger)
		return &GenerateResult{
			CertificateID:  stored.ID,
			CertificateURL: stored.PDFURL,
			Existing:       true,
			Registered:     true,
		}, nil
	}

	logger.Info("Certificate generated", zap.String("url", url), zap.Bool("fallback_used", fallbackUsed))
	return &GenerateResult{
		CertificateID:  data.CertificateID,
		CertificateURL: url,
		Data:           data,
		Registered:     true,
		FallbackUsed:   fallbackUsed,
	}, nil
}

func eligible(attempt *exams.ExamAttempt, req CertificateRequest) bool {
	return attempt != nil &&
		attempt.Passed &&
		attempt.ParticipantID == req.ParticipantID &&
		attempt.ExamID == req.ExamID
}

// render assembles the PDF, retrying once over the fallback template when
// the stored one cannot be imported
func (s *Service) render(ctx context.Context, data *CertificateData, logger *zap.Logger) ([]byte, bool, error) {
	tpl, err := s.templates.Resolve(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve template: %w", err)
	}

	content, report, err := s.assembler.Assemble(tpl.Bytes, data)
	if errors.Is(err, pdf.ErrTemplateImport) && !tpl.Fallback {
		logger.Warn("Stored template could not be imported, using fallback",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		s.templates.Invalidate()
		tpl, err = s.templates.Fallback()
		if err != nil {
			return nil, false, fmt.Errorf("failed to resolve template: %w", err)
		}
		content, report, err = s.assembler.Assemble(tpl.Bytes, data)
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to assemble certificate: %w", err)
	}

	return content, tpl.Fallback || report.FallbackUsed(), nil
}

// certificateData derives the printed values. The id embeds the generation
// time so every generation event gets a distinct one.
func (s *Service) certificateData(attempt *exams.ExamAttempt, now time.Time) *CertificateData {
	data := &CertificateData{
		CertificateID:         CertificateID(attempt.ID, now),
		IssueDate:             now.In(s.location).Format(issueDateLayout),
		ParticipantName:       attempt.ParticipantDisplayName,
		TrainingTitle:         attempt.ExamTitle,
		Competencies:          DefaultCompetencies,
		CompletionDescription: DefaultCompletionDescription,
	}
	if tpl := attempt.CertificateTemplate; tpl != nil {
		if tpl.Training != nil {
			data.TrainingTitle = *tpl.Training
		}
		if tpl.Competencies != nil {
			data.Competencies = *tpl.Competencies
		}
		if tpl.CompletionDescription != nil {
			data.CompletionDescription = *tpl.CompletionDescription
		}
	}
	return data
}

// CertificateID formats CERT-<unix millis>-<first 8 characters of the
// attempt id, upper-cased>
func CertificateID(attemptID string, now time.Time) string {
	prefix := []rune(attemptID)
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return fmt.Sprintf("CERT-%d-%s", now.UnixMilli(), strings.ToUpper(string(prefix)))
}

func (s *Service) deleteOrphan(ctx context.Context, certificateID string, logger *zap.Logger) {
	if err := s.storage.DeleteCertificate(ctx, certificateID); err != nil {
		logger.Warn("Failed to delete orphaned certificate", zap.Error(err))
	}
}
