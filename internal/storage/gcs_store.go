package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"mitr-backend/internal/domain"
)

const posterPrefix = "posters/"

// GCSPosterStore sube portadas a un bucket de Google Cloud Storage.
type GCSPosterStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

func NewGCSPosterStore(ctx context.Context, bucket, cdnDomain, credentialsFile string) (*GCSPosterStore, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSPosterStore{
		client:    client,
		bucket:    bucket,
		cdnDomain: strings.TrimSpace(cdnDomain),
	}, nil
}

func (s *GCSPosterStore) Upload(ctx context.Context, filename, contentType string, r io.Reader) (domain.Poster, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	key := posterKey(filename)
	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return domain.Poster{}, fmt.Errorf("write poster %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return domain.Poster{}, fmt.Errorf("close poster writer %q: %w", key, err)
	}
	return domain.Poster{PublicID: key, URL: publicURL(s.bucket, s.cdnDomain, key)}, nil
}

// Delete trata un objeto inexistente como ya borrado.
func (s *GCSPosterStore) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete poster %q: %w", publicID, err)
	}
	return nil
}

func (s *GCSPosterStore) Close() error {
	return s.client.Close()
}

func posterKey(filename string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	return posterPrefix + uuid.NewString() + ext
}

func publicURL(bucket, cdnDomain, key string) string {
	if cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}
