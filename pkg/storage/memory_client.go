package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"
)

// MemoryS3Client keeps objects in process memory. It backs local runs
// without an object store and the package tests.
type MemoryS3Client struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

func NewMemoryS3Client(baseURL string) *MemoryS3Client {
	if baseURL == "" {
		baseURL = "memory://"
	}
	return &MemoryS3Client{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}

func (c *MemoryS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.objects[objectKey(bucket, key)] = data
	return nil
}

func (c *MemoryS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	data, ok := c.objects[objectKey(bucket, key)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *MemoryS3Client) Delete(ctx context.Context, bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.objects, objectKey(bucket, key))
	return nil
}

func (c *MemoryS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	return c.baseURL + objectKey(bucket, key), nil
}

// Keys lists stored object keys of a bucket in lexical order
func (c *MemoryS3Client) Keys(bucket string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	prefix := bucket + "/"
	var keys []string
	for k := range c.objects {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			keys = append(keys, k[len(prefix):])
		}
	}
	sort.Strings(keys)
	return keys
}
