package roles

import (
	"context"

	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

type Repository interface {
	GetByName(ctx context.Context, name string) (*models.Role, error)
}
