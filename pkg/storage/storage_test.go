package storage

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryS3ClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryS3Client("https://files.example.com/")

	require.NoError(t, c.Upload(ctx, "certs", "generated/a.pdf", strings.NewReader("%PDF-1.3"), "application/pdf"))
	require.NoError(t, c.Upload(ctx, "other", "generated/b.pdf", strings.NewReader("x"), ""))

	rc, err := c.Download(ctx, "certs", "generated/a.pdf")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(data))

	assert.Equal(t, []string{"generated/a.pdf"}, c.Keys("certs"))

	url, err := c.GetPresignedURL(ctx, "certs", "generated/a.pdf", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/certs/generated/a.pdf", url)

	require.NoError(t, c.Delete(ctx, "certs", "generated/a.pdf"))
	_, err = c.Download(ctx, "certs", "generated/a.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3ClientPresignsOffline(t *testing.T) {
	cfg := aws.Config{
		Region:      "eu-central-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
	}
	c := NewS3Client(cfg, S3Options{Endpoint: "http://localhost:9000", UsePathStyle: true})

	url, err := c.GetPresignedURL(context.Background(), "certs", "generated/certificate-CERT-1-AB.pdf", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/certs/generated/certificate-CERT-1-AB.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
