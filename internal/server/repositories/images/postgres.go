package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/webapp/internal/common"
	"github.com/dmitrijs2005/webapp/internal/dbx"
	"github.com/dmitrijs2005/webapp/internal/server/models"
)

// UserConstraint is the unique constraint allowing one image per user.
const UserConstraint = "images_user_id_key"

// PostgresRepository implements profile image storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the image row. A second image for the same user yields
// common.ErrorAlreadyExists.
func (r *PostgresRepository) Create(ctx context.Context, img *models.Image) (*models.Image, error) {
	query := `
		INSERT INTO images (id, user_id, url, storage_key, file_name, content_type, size_bytes, upload_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		img.ID, img.UserID, img.URL, img.StorageKey, img.FileName, img.ContentType, img.Size, img.UploadedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, UserConstraint) {
			return nil, common.ErrorAlreadyExists
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

// GetByUserID returns the image owned by userID or common.ErrorNotFound.
func (r *PostgresRepository) GetByUserID(ctx context.Context, userID string) (*models.Image, error) {
	query := `
		SELECT id, user_id, url, storage_key, file_name, content_type, size_bytes, upload_date
		FROM images
		WHERE user_id = $1
	`
	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&img.ID, &img.UserID, &img.URL, &img.StorageKey, &img.FileName, &img.ContentType, &img.Size, &img.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return img, nil
}

// Delete removes the image row by id.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM images WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
