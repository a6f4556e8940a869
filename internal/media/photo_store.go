package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"account-service/internal/client"
	"account-service/internal/config"
	"account-service/internal/util"

	"github.com/google/uuid"
)

const photoKeyPrefix = "user_photos/"

var (
	ErrUnsupportedPhotoType = errors.New("photo must be jpg, jpeg or png")
	ErrPhotoTooLarge        = errors.New("photo exceeds the maximum allowed size")
)

var photoContentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// PhotoStore validates and stores profile photos.
type PhotoStore interface {
	UploadPhoto(ctx context.Context, accountID uuid.UUID, filename string, size int64, body io.Reader) (string, error)
}

type S3PhotoStore struct {
	s3       *client.S3Client
	maxBytes int64
	baseURL  string
}

func NewS3PhotoStore(cfg *config.Config, s3 *client.S3Client) *S3PhotoStore {
	return &S3PhotoStore{
		s3:       s3,
		maxBytes: cfg.Media.MaxPhotoBytes,
		baseURL:  strings.TrimSuffix(cfg.S3.PublicBaseURL, "/"),
	}
}

// UploadPhoto checks extension and size before touching storage, then
// returns the stored photo's public location.
func (p *S3PhotoStore) UploadPhoto(ctx context.Context, accountID uuid.UUID, filename string, size int64, body io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType, ok := photoContentTypes[ext]
	if !ok {
		return "", ErrUnsupportedPhotoType
	}
	if size > p.maxBytes {
		return "", ErrPhotoTooLarge
	}

	key := photoKeyPrefix + accountID.String() + ext

	if err := p.s3.PutObject(ctx, key, contentType, body); err != nil {
		util.Error("Failed to upload photo",
			zap.String("account_id", accountID.String()),
			zap.Error(err))
		return "", fmt.Errorf("failed to upload photo: %w", err)
	}

	util.Info("Photo uploaded",
		zap.String("account_id", accountID.String()),
		zap.String("key", key),
		zap.Int64("size", size))

	if p.baseURL != "" {
		return p.baseURL + "/" + key, nil
	}
	return key, nil
}
