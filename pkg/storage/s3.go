package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// MediaKind distinguishes the two upload classes accepted by the media host.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"

	// FolderMedia is the S3 prefix for uploaded media objects.
	FolderMedia = "media"
)

var allowedMedia = map[MediaKind]map[string]string{
	MediaKindImage: {
		"image/jpeg": ".jpg",
		"image/jpg":  ".jpg",
		"image/png":  ".png",
		"image/webp": ".webp",
		"image/gif":  ".gif",
	},
	MediaKindVideo: {
		"video/mp4":       ".mp4",
		"video/quicktime": ".mov",
		"video/webm":      ".webm",
	},
}

var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
}

// ResolveMediaType returns the canonical content type and extension for an
// upload of the given kind. ok is false when neither the declared content type
// nor the filename extension is allowed for that kind.
func ResolveMediaType(kind MediaKind, contentType, filename string) (string, string, bool) {
	allowed, known := allowedMedia[kind]
	if !known {
		return "", "", false
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ext, ok := allowed[ct]; ok {
		return ct, ext, true
	}
	ext := strings.ToLower(path.Ext(filename))
	if guessed, ok := extensionTypes[ext]; ok {
		if canonical, ok := allowed[guessed]; ok {
			return guessed, canonical, true
		}
	}
	return "", "", false
}

// MediaKey returns the object key media/<kind>/<name><ext>.
func MediaKey(kind MediaKind, name, ext string) string {
	return path.Join(FolderMedia, string(kind), name+ext)
}

// S3Config holds S3 client configuration.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	// PublicBaseURL overrides the default virtual-hosted bucket URL, e.g. a CDN origin.
	PublicBaseURL string
}

// S3 uploads media objects and returns their permanent public URL.
type S3 struct {
	uploader *manager.Uploader
	cfg      S3Config
	logger   *zap.Logger
}

// NewS3 builds an S3 uploader. Static credentials are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("media bucket not configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	} else {
		logger.Warn("media S3 client using default credential chain")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
	})
	logger.Info("media S3 client ready", zap.String("region", cfg.Region), zap.String("bucket", cfg.Bucket))
	return &S3{uploader: uploader, cfg: cfg, logger: logger}, nil
}

// Upload streams body to the configured bucket under key.
func (s *S3) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return "", fmt.Errorf("upload: %w", err)
	}
	return PublicObjectURL(s.cfg, key), nil
}

// PublicObjectURL returns the stable HTTPS URL for an object key.
func PublicObjectURL(cfg S3Config, key string) string {
	if base := strings.TrimRight(cfg.PublicBaseURL, "/"); base != "" {
		return base + "/" + strings.TrimLeft(key, "/")
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", cfg.Bucket, cfg.Region, strings.TrimLeft(key, "/"))
}
