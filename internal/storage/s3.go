// Package storage publishes finished tracks to S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/nadzzz/lrcdrill/internal/config"
)

// Publisher uploads files into one bucket under a key prefix.
type Publisher struct {
	client *minio.Client
	bucket string
	prefix string
	host   string
}

// New creates a Publisher. It does not contact the server; call Check for that.
func New(cfg config.StorageConfig) (*Publisher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	scheme := "https"
	if !cfg.Secure {
		scheme = "http"
	}
	return &Publisher{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		host:   scheme + "://" + cfg.Endpoint,
	}, nil
}

// Check verifies that the bucket exists.
func (p *Publisher) Check(ctx context.Context) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("checking bucket: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", p.bucket)
	}
	return nil
}

// Publish uploads the file at path under key and returns its public URL.
func (p *Publisher) Publish(ctx context.Context, key, path, contentType string) (string, error) {
	objectKey := p.objectKey(key)
	_, err := p.client.FPutObject(ctx, p.bucket, objectKey, path, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"uploaded-at": time.Now().UTC().Format(time.RFC3339)},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", objectKey, err)
	}
	return p.URL(key), nil
}

// URL returns the public URL of key.
func (p *Publisher) URL(key string) string {
	segments := strings.Split(p.objectKey(key), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", p.host, p.bucket, strings.Join(segments, "/"))
}

func (p *Publisher) objectKey(key string) string {
	key = strings.TrimLeft(key, "/")
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}
