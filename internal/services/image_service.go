package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
)

var (
	ErrImageNotFound = errNotFound("image not found")
	ErrInvalidImage  = errors.New("invalid image file")
)

// ImageModerator screens image bytes before they are stored.
// It returns ErrImageRejected for unsafe content.
type ImageModerator interface {
	Screen(ctx context.Context, data []byte) error
}

type ImageService struct {
	mu        sync.RWMutex
	store     ImageStore
	moderator ImageModerator
	images    map[string]*imageRecord // imageID -> image info
}

type imageRecord struct {
	ID       string
	Filename string
	UserID   string
}

// NewImageService creates the service. moderator may be nil.
func NewImageService(store ImageStore, moderator ImageModerator) *ImageService {
	return &ImageService{
		store:     store,
		moderator: moderator,
		images:    make(map[string]*imageRecord),
	}
}

func (s *ImageService) Upload(ctx context.Context, userID, filename, contentType string, file io.Reader) (*models.ImageUploadResponse, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if buf.Len() == 0 {
		return nil, ErrInvalidImage
	}

	if s.moderator != nil {
		if err := s.moderator.Screen(ctx, buf.Bytes()); err != nil {
			if errors.Is(err, ErrImageRejected) {
				logrus.WithField("user", userID).Warn("image rejected by moderation")
			}
			return nil, err
		}
	}

	imageID := uuid.New().String()

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	newFilename := imageID + ext

	url, err := s.store.Put(ctx, newFilename, contentType, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.mu.Lock()
	s.images[imageID] = &imageRecord{
		ID:       imageID,
		Filename: newFilename,
		UserID:   userID,
	}
	s.mu.Unlock()

	return &models.ImageUploadResponse{
		ID:       imageID,
		URL:      url,
		Filename: newFilename,
	}, nil
}

func (s *ImageService) Delete(ctx context.Context, userID, imageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, exists := s.images[imageID]
	if !exists {
		return ErrImageNotFound
	}

	// Only allow the owner to delete
	if record.UserID != userID {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, record.Filename); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	delete(s.images, imageID)
	return nil
}
