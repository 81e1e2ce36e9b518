package certificates

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"exam-portal/certificate-service/pkg/pdf"
	"exam-portal/certificate-service/pkg/storage"
)

const testBucket = "certificates"

func newTestResolver(s3 storage.S3Client, ttl time.Duration) *TemplateResolver {
	provider := NewStorageProvider(s3, testBucket, "", 15*time.Minute)
	return NewTemplateResolver(provider, "", ttl, DefaultLayout(), pdf.DefaultFontSet(), zap.NewNop())
}

func putObject(t *testing.T, s3 storage.S3Client, key string, data []byte) {
	t.Helper()
	require.NoError(t, s3.Upload(context.Background(), testBucket, key, bytes.NewReader(data), pdfContentType))
}

func TestResolveMissingTemplateFallsBack(t *testing.T) {
	r := newTestResolver(storage.NewMemoryS3Client(""), 0)

	tpl, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, tpl.Fallback)
	assert.True(t, bytes.HasPrefix(tpl.Bytes, []byte("%PDF-")))

	again, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tpl.Bytes, again.Bytes)
}

func TestResolveEmptyTemplateFallsBack(t *testing.T) {
	s3 := storage.NewMemoryS3Client("")
	putObject(t, s3, "templates/certificate-template.pdf", nil)

	tpl, err := newTestResolver(s3, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, tpl.Fallback)
}

func TestResolveStoredTemplate(t *testing.T) {
	s3 := storage.NewMemoryS3Client("")
	putObject(t, s3, "templates/certificate-template.pdf", []byte("%PDF-stored"))

	tpl, err := newTestResolver(s3, 0).Resolve(context.Background())
	require.NoError(t, err)
	assert.False(t, tpl.Fallback)
	assert.Equal(t, DefaultTemplateName, tpl.Name)
	assert.Equal(t, []byte("%PDF-stored"), tpl.Bytes)
}

func TestResolveCachesForTTL(t *testing.T) {
	s3 := storage.NewMemoryS3Client("")
	putObject(t, s3, "templates/certificate-template.pdf", []byte("%PDF-stored"))

	now := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	r := newTestResolver(s3, time.Minute)
	r.now = func() time.Time { return now }

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.NoError(t, s3.Delete(context.Background(), testBucket, "templates/certificate-template.pdf"))

	now = now.Add(30 * time.Second)
	tpl, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.False(t, tpl.Fallback)

	now = now.Add(time.Minute)
	tpl, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, tpl.Fallback)
}

func TestInvalidateDropsCachedTemplate(t *testing.T) {
	s3 := storage.NewMemoryS3Client("")
	putObject(t, s3, "templates/certificate-template.pdf", []byte("%PDF-stored"))
	r := newTestResolver(s3, time.Hour)

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.NoError(t, s3.Delete(context.Background(), testBucket, "templates/certificate-template.pdf"))
	r.Invalidate()

	tpl, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.True(t, tpl.Fallback)
}

func TestResolveCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestResolver(storage.NewMemoryS3Client(""), 0).Resolve(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFallbackTemplateIsImportable(t *testing.T) {
	fonts := pdf.DefaultFontSet()
	template, err := buildFallbackTemplate(DefaultLayout(), fonts, zap.NewNop())
	require.NoError(t, err)

	doc, err := pdf.NewDocument(template, fonts)
	require.NoError(t, err)
	_, err = doc.Bytes()
	require.NoError(t, err)
}

func TestFallbackTemplateWithCoreFonts(t *testing.T) {
	template, err := buildFallbackTemplate(DefaultLayout(), nil, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(template, []byte("%PDF-")))
}

func TestFallbackCompletionLabelIsDefaultDescription(t *testing.T) {
	assert.Equal(t, DefaultCompletionDescription, labelCompleted)
}
