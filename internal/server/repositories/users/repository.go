package users

import (
	"context"

	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

type Repository interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// CreateExternal inserts a user with the given role name unless the
	// email is already taken. created is false when another row won.
	CreateExternal(ctx context.Context, email, placeholder, roleName string) (id int64, created bool, err error)
	ListCredentials(ctx context.Context) ([]models.Credential, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}
