package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"promptmaker-backend/shared/config"
	"promptmaker-backend/shared/logger"
)

var (
	ErrAvatarTooLarge      = errors.New("avatar exceeds the maximum upload size")
	ErrAvatarType          = errors.New("avatar must be a png, jpeg, gif or webp image")
	ErrStorageNotAvailable = errors.New("avatar storage is not configured")
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// AvatarService stores user avatars in a MinIO bucket
type AvatarService struct {
	client     *minio.Client
	bucketName string
	baseURL    string
	maxBytes   int64
}

func NewAvatarService(ctx context.Context, cfg *config.Config) (*AvatarService, error) {
	parsedURL, err := url.Parse(cfg.MinIOServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MinIO endpoint: %w", err)
	}

	minioClient, err := minio.New(parsedURL.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIORootUser, cfg.MinIORootPassword, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	service := &AvatarService{
		client:     minioClient,
		bucketName: cfg.MinIOBucketName,
		baseURL:    strings.TrimRight(cfg.MinIOServerURL, "/"),
		maxBytes:   cfg.GetAvatarMaxBytes(),
	}

	if err := service.initializeBucket(ctx); err != nil {
		return nil, err
	}

	return service, nil
}

func (s *AvatarService) initializeBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Log.Info("avatar bucket created", zap.String("bucket", s.bucketName))
	}

	return nil
}

// MaxBytes returns the upload size limit
func (s *AvatarService) MaxBytes() int64 {
	if s == nil {
		return 0
	}
	return s.maxBytes
}

// ValidateAvatar checks the declared content type and size of an upload
func ValidateAvatar(contentType string, size, maxBytes int64) error {
	if _, ok := avatarExtensions[contentType]; !ok {
		return ErrAvatarType
	}
	if size <= 0 || (maxBytes > 0 && size > maxBytes) {
		return ErrAvatarTooLarge
	}
	return nil
}

// AvatarObjectKey names the object for a new avatar of userID
func AvatarObjectKey(userID uuid.UUID, contentType string, now time.Time) string {
	return path.Join("avatars", userID.String(), fmt.Sprintf("%d%s", now.UnixNano(), avatarExtensions[contentType]))
}

// objectURL returns the public URL for key
func (s *AvatarService) objectURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucketName, key)
}

// objectKeyFromURL reverses objectURL. ok is false for URLs outside this bucket.
func (s *AvatarService) objectKeyFromURL(objectURL string) (string, bool) {
	prefix := fmt.Sprintf("%s/%s/", s.baseURL, s.bucketName)
	if !strings.HasPrefix(objectURL, prefix) {
		return "", false
	}
	return strings.TrimPrefix(objectURL, prefix), true
}

// Upload stores a validated avatar and returns its public URL
func (s *AvatarService) Upload(ctx context.Context, userID uuid.UUID, file io.Reader, contentType string, size int64) (string, error) {
	if s == nil || s.client == nil {
		return "", ErrStorageNotAvailable
	}
	if err := ValidateAvatar(contentType, size, s.maxBytes); err != nil {
		return "", err
	}

	key := AvatarObjectKey(userID, contentType, time.Now())
	_, err := s.client.PutObject(ctx, s.bucketName, key, file, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload avatar: %w", err)
	}

	logger.Log.Info("avatar uploaded", zap.String("user_id", userID.String()), zap.String("key", key))
	return s.objectURL(key), nil
}

// Remove deletes a previously uploaded avatar. URLs this service did not issue are ignored.
func (s *AvatarService) Remove(ctx context.Context, objectURL string) error {
	if s == nil || s.client == nil || objectURL == "" {
		return nil
	}

	key, ok := s.objectKeyFromURL(objectURL)
	if !ok {
		return nil
	}

	if err := s.client.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove avatar %s: %w", key, err)
	}
	return nil
}
