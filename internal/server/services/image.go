package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/logging"
	"github.com/dmitrijs2005/webapp/internal/server/config"
	"github.com/dmitrijs2005/webapp/internal/server/metrics"
	"github.com/dmitrijs2005/webapp/internal/server/models"
	"github.com/dmitrijs2005/webapp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/webapp/internal/server/storage"
)

// ImageKeyPrefix is the object store folder of profile pictures.
const ImageKeyPrefix = "user-profile-pics"

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// UploadInput is a single uploaded file.
type UploadInput struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ImageService manages the single profile picture of an account across the
// database row and the object store.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	metrics     metrics.Recorder
	logger      logging.Logger
	maxBytes    int64

	NowFunc func() time.Time
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore,
	rec metrics.Recorder, logger logging.Logger, cfg *config.Config) *ImageService {
	return &ImageService{
		db:          db,
		repomanager: m,
		store:       store,
		metrics:     rec,
		logger:      logger.With("module", "images"),
		maxBytes:    cfg.MaxUploadBytes,
		NowFunc:     time.Now,
	}
}

// MaxBytes is the largest accepted upload.
func (s *ImageService) MaxBytes() int64 {
	return s.maxBytes
}

// Upload stores the picture and records it. An account that already has a
// picture gets common.ErrorAlreadyExists and must delete it first.
func (s *ImageService) Upload(ctx context.Context, userID string, in UploadInput) (*models.Image, error) {
	if strings.TrimSpace(in.FileName) == "" || in.Body == nil {
		return nil, fmt.Errorf("%w: missing file", common.ErrorValidation)
	}
	if !allowedImageTypes[strings.ToLower(in.ContentType)] {
		return nil, common.ErrorUnsupportedMedia
	}
	if in.Size > s.maxBytes {
		return nil, common.ErrorTooLarge
	}

	repo := s.repomanager.Images(s.db)

	_, err := repo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		return nil, common.ErrorAlreadyExists
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	now := s.NowFunc().UTC()
	key := StorageKey(userID, in.FileName, now)

	start := time.Now()
	location, err := s.store.Put(ctx, key, in.Body, in.Size, in.ContentType)
	metrics.Since(s.metrics, "S3Upload", start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorDependency, err)
	}

	img := &models.Image{
		ID:          uuid.NewString(),
		UserID:      userID,
		URL:         location,
		StorageKey:  key,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
		UploadedAt:  now,
	}

	start = time.Now()
	_, err = repo.Create(ctx, img)
	metrics.Since(s.metrics, "DB_CreateImage", start)
	if err != nil {
		s.discard(ctx, key)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "profile picture uploaded", "user_id", userID, "image_id", img.ID)
	return img, nil
}

// Get returns the picture of userID or common.ErrorNotFound.
func (s *ImageService) Get(ctx context.Context, userID string) (*models.Image, error) {
	start := time.Now()
	img, err := s.repomanager.Images(s.db).GetByUserID(ctx, userID)
	metrics.Since(s.metrics, "DB_GetImage", start)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return img, nil
}

// Delete removes the stored object and then the row. When the object store
// fails the row is kept.
func (s *ImageService) Delete(ctx context.Context, userID string) error {
	img, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.store.Delete(ctx, img.StorageKey)
	metrics.Since(s.metrics, "S3Delete", start)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorDependency, err)
	}

	start = time.Now()
	err = s.repomanager.Images(s.db).Delete(ctx, img.ID)
	metrics.Since(s.metrics, "DB_DeleteImage", start)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	s.logger.Info(ctx, "profile picture deleted", "user_id", userID, "image_id", img.ID)
	return nil
}

// discard removes an object whose row could not be written.
func (s *ImageService) discard(ctx context.Context, key string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), key); err != nil {
		s.logger.Warn(ctx, "failed to remove orphaned object", "key", key, "error", err)
	}
}

// StorageKey builds user-profile-pics/<user>/<unix millis>-<file name>.
func StorageKey(userID, fileName string, at time.Time) string {
	return fmt.Sprintf("%s/%s/%d-%s", ImageKeyPrefix, userID, at.UnixMilli(), sanitizeFileName(fileName))
}

func sanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 || name == "." || name == "/" {
		return "file"
	}
	return b.String()
}
