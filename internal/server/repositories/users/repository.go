package users

import (
	"context"

	"github.com/keywarden/keywarden/internal/server/models"
)

// Repository is the persistence boundary for identity records.
//
// GetByEmailAndKey is an exact-match filter on both fields. It must not
// distinguish between "email absent" and "email present but key wrong";
// both return common.ErrorNotFound.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByEmailAndKey(ctx context.Context, email, authKey string) (*models.User, error)
}
