package users

import (
	"context"

	"github.com/dmitrijs2005/saralseva/internal/server/models"
)

// Repository is typed access to the users entity. Lookups that match nothing
// return common.ErrorNotFound.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	Create(ctx context.Context, user *models.User) (int64, error)
	UpdateLastLogin(ctx context.Context, id int64) (bool, error)
	Update(ctx context.Context, id int64, fields map[string]any) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetAll(ctx context.Context, page, limit int) ([]models.User, error)
}
