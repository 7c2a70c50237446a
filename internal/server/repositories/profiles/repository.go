package profiles

import (
	"context"

	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, profile *models.Profile) error
}
