package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abhiyeduru/mentlearn-api/internal/models"
	appErrors "github.com/abhiyeduru/mentlearn-api/pkg/errors"
	"github.com/abhiyeduru/mentlearn-api/pkg/storage"
)

type mediaUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// MediaLimits caps upload sizes per kind.
type MediaLimits struct {
	MaxImageBytes int64
	MaxVideoBytes int64
}

// MediaUpload describes a stored media object.
type MediaUpload struct {
	URL         string
	Key         string
	Kind        storage.MediaKind
	ContentType string
	Size        int64
}

// MediaService hands staff uploads to the media host and returns permanent URLs.
type MediaService struct {
	uploader mediaUploader
	limits   MediaLimits
	logger   *zap.Logger
}

// NewMediaService constructs the media service. A nil uploader disables uploads.
func NewMediaService(uploader mediaUploader, limits MediaLimits, logger *zap.Logger) *MediaService {
	if limits.MaxImageBytes <= 0 {
		limits.MaxImageBytes = 10 * 1024 * 1024
	}
	if limits.MaxVideoBytes <= 0 {
		limits.MaxVideoBytes = 100 * 1024 * 1024
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MediaService{uploader: uploader, limits: limits, logger: logger}
}

// Limit returns the size ceiling for kind.
func (s *MediaService) Limit(kind storage.MediaKind) int64 {
	if kind == storage.MediaKindVideo {
		return s.limits.MaxVideoBytes
	}
	return s.limits.MaxImageBytes
}

// Upload validates kind, size and type, then stores body under media/<kind>/<uuid><ext>.
func (s *MediaService) Upload(ctx context.Context, actor models.Actor, kind storage.MediaKind, filename, contentType string, size int64, body io.Reader) (*MediaUpload, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if s.uploader == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "media uploads are not configured")
	}
	if kind != storage.MediaKindImage && kind != storage.MediaKindVideo {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be image or video")
	}
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if limit := s.Limit(kind); size > limit {
		return nil, appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("%s exceeds %d MB", kind, limit/(1024*1024)))
	}
	resolvedType, ext, ok := storage.ResolveMediaType(kind, contentType, filename)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported %s type", kind))
	}

	key := storage.MediaKey(kind, uuid.NewString(), ext)
	url, err := s.uploader.Upload(ctx, key, resolvedType, body, size)
	if err != nil {
		s.logger.Error("media upload failed", zap.String("key", key), zap.Error(err))
		return nil, appErrors.Persistence(err, "media host unavailable")
	}
	s.logger.Info("media uploaded", zap.String("key", key), zap.Int64("size", size), zap.String("actor", actor.UserID))
	return &MediaUpload{URL: url, Key: key, Kind: kind, ContentType: resolvedType, Size: size}, nil
}
