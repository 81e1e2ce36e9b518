package exams

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	GetAttempt(ctx context.Context, attemptID string) (*ExamAttempt, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository returns a read-only attempt repository
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// GetAttempt loads an attempt with its exam and participant. A missing
// attempt yields (nil, nil).
func (r *gormRepository) GetAttempt(ctx context.Context, attemptID string) (*ExamAttempt, error) {
	var attempt Attempt
	err := r.db.WithContext(ctx).
		Preload("Exam").
		Preload("Participant").
		Where("id = ?", attemptID).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load attempt %s: %w", attemptID, err)
	}
	return attempt.view(), nil
}

// AutoMigrate creates the exam tables. Production schemas are owned by the
// exam service; this is used for local sqlite databases and tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Exam{}, &Participant{}, &Attempt{})
}
