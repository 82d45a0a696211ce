package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

// ErrImageRejected is returned when SafeSearch flags an image as unsafe.
var ErrImageRejected = errors.New("image rejected: violates community guidelines")

// SafeSearchModerator screens uploads inline with Vision SafeSearch.
type SafeSearchModerator struct {
	vision *vision.Service
}

// NewSafeSearchModerator creates a Vision client once at server startup.
// It uses Application Default Credentials.
func NewSafeSearchModerator(ctx context.Context) (*SafeSearchModerator, error) {
	svc, err := vision.NewService(ctx, option.WithScopes(vision.CloudPlatformScope))
	if err != nil {
		return nil, fmt.Errorf("moderation: vision client: %w", err)
	}
	return &SafeSearchModerator{vision: svc}, nil
}

func (m *SafeSearchModerator) Screen(ctx context.Context, data []byte) error {
	ss, err := DetectSafeSearch(ctx, m.vision, imageContent(data))
	if err != nil {
		return fmt.Errorf("moderation: safesearch: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"adult":    ss.Adult,
		"violence": ss.Violence,
		"racy":     ss.Racy,
		"unsafe":   ss.IsUnsafe(),
	}).Debug("SafeSearch result")

	if ss.IsUnsafe() {
		return ErrImageRejected
	}
	return nil
}
