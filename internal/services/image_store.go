package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
)

// ImageStore persists uploaded image bytes and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, name string) error
}

// LocalImageStore writes images under a directory served at /uploads/.
type LocalImageStore struct {
	dir string
}

func NewLocalImageStore(dir string) (*LocalImageStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &LocalImageStore{dir: dir}, nil
}

func (s *LocalImageStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	filePath := filepath.Join(s.dir, name)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		os.Remove(filePath) // Clean up on error
		return "", err
	}
	return "/uploads/" + name, nil
}

func (s *LocalImageStore) Delete(ctx context.Context, name string) error {
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// GCSImageStore writes images to a Cloud Storage bucket.
type GCSImageStore struct {
	gcs    *storage.Client
	bucket string
}

// NewGCSImageStore creates a storage client once at server startup.
func NewGCSImageStore(ctx context.Context, bucket string) (*GCSImageStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("image store: storage client: %w", err)
	}
	return &GCSImageStore{gcs: client, bucket: bucket}, nil
}

func (s *GCSImageStore) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	w := s.gcs.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	w.Metadata = map[string]string{"source": "ecosync-upload"}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("write: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close: %w", err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, url.PathEscape(name)), nil
}

func (s *GCSImageStore) Delete(ctx context.Context, name string) error {
	err := s.gcs.Bucket(s.bucket).Object(name).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *GCSImageStore) Close() error {
	return s.gcs.Close()
}
