package exams

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(db))
	return db
}

func strPtr(s string) *string { return &s }

func TestGetAttemptWithoutTemplate(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&Exam{ID: "e1", Title: "ISO 27001 Auditor"}).Error)
	require.NoError(t, db.Create(&Participant{ID: "p1", DisplayName: "Anna Wiśniewska"}).Error)
	require.NoError(t, db.Create(&Attempt{ID: "a1b2c3d4e5", ExamID: "e1", ParticipantID: "p1", Passed: true}).Error)

	repo := NewRepository(db)
	got, err := repo.GetAttempt(context.Background(), "a1b2c3d4e5")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "e1", got.ExamID)
	assert.Equal(t, "p1", got.ParticipantID)
	assert.True(t, got.Passed)
	assert.Equal(t, "ISO 27001 Auditor", got.ExamTitle)
	assert.Equal(t, "Anna Wiśniewska", got.ParticipantDisplayName)
	assert.Nil(t, got.CertificateTemplate)
}

func TestGetAttemptWithTemplate(t *testing.T) {
	db := newTestDB(t)
	tpl := CertificateTemplate{
		Training:     strPtr("Audytor wiodący ISO/IEC 27001"),
		Competencies: strPtr("Planowanie i prowadzenie audytów SZBI"),
	}
	require.NoError(t, db.Create(&Exam{ID: "e2", Title: "ISO", CertificateTemplate: datatypes.NewJSONType(tpl)}).Error)
	require.NoError(t, db.Create(&Participant{ID: "p2", DisplayName: "Jan Nowak"}).Error)
	require.NoError(t, db.Create(&Attempt{ID: "att-2", ExamID: "e2", ParticipantID: "p2", Passed: false}).Error)

	got, err := NewRepository(db).GetAttempt(context.Background(), "att-2")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.CertificateTemplate)

	assert.False(t, got.Passed)
	assert.Equal(t, "Audytor wiodący ISO/IEC 27001", *got.CertificateTemplate.Training)
	assert.Equal(t, "Planowanie i prowadzenie audytów SZBI", *got.CertificateTemplate.Competencies)
	assert.Nil(t, got.CertificateTemplate.CompletionDescription)
}

func TestGetAttemptMissing(t *testing.T) {
	got, err := NewRepository(newTestDB(t)).GetAttempt(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}
