package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/webapp/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, id string, upd models.UserUpdate) error
	GetByVerificationToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	MarkVerified(ctx context.Context, id string, now time.Time) error
}
