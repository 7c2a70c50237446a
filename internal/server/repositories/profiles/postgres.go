package profiles

import (
	"context"
	"fmt"

	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, profile *models.Profile) error {
	query :=
		`INSERT INTO perfiles (id_usuario, nombre, apellido1)
		 VALUES ($1, $2, $3)
		 `

	if _, err := r.db.ExecContext(ctx, query, profile.UserID, profile.Nombre, profile.Apellido1); err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}
