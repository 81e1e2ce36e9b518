package certificates

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"exam-portal/certificate-service/pkg/storage"
)

const pdfContentType = "application/pdf"

// StorageProvider maps certificate concepts onto object keys in one bucket
type StorageProvider struct {
	s3            storage.S3Client
	bucket        string
	publicBaseURL string
	urlExpiry     time.Duration
}

func NewStorageProvider(s3 storage.S3Client, bucket, publicBaseURL string, urlExpiry time.Duration) *StorageProvider {
	return &StorageProvider{
		s3:            s3,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		urlExpiry:     urlExpiry,
	}
}

func (p *StorageProvider) TemplateKey(name string) string {
	return fmt.Sprintf("templates/%s.pdf", name)
}

func (p *StorageProvider) CertificateKey(certificateID string) string {
	return fmt.Sprintf("generated/certificate-%s.pdf", certificateID)
}

// DownloadTemplate returns the template bytes. storage.ErrObjectNotFound is
// passed through for missing templates.
func (p *StorageProvider) DownloadTemplate(ctx context.Context, name string) ([]byte, error) {
	rc, err := p.s3.Download(ctx, p.bucket, p.TemplateKey(name))
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", name, err)
	}
	return data, nil
}

// UploadCertificate stores the rendered PDF and returns its key
func (p *StorageProvider) UploadCertificate(ctx context.Context, certificateID string, pdf []byte) (string, error) {
	key := p.CertificateKey(certificateID)
	if err := p.s3.Upload(ctx, p.bucket, key, bytes.NewReader(pdf), pdfContentType); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return key, nil
}

func (p *StorageProvider) DeleteCertificate(ctx context.Context, certificateID string) error {
	return p.s3.Delete(ctx, p.bucket, p.CertificateKey(certificateID))
}

// URL returns the public address of key when a public base URL is
// configured, otherwise a presigned GET URL.
func (p *StorageProvider) URL(ctx context.Context, key string) (string, error) {
	if p.publicBaseURL != "" {
		return p.publicBaseURL + "/" + key, nil
	}
	url, err := p.s3.GetPresignedURL(ctx, p.bucket, key, p.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return url, nil
}
