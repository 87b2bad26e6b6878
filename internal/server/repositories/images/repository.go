package images

import (
	"context"

	"github.com/dmitrijs2005/webapp/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) (*models.Image, error)
	GetByUserID(ctx context.Context, userID string) (*models.Image, error)
	Delete(ctx context.Context, id string) error
}
