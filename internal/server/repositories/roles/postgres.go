package roles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xchange-erasmus/xchange-api/internal/common"
	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT id_rol, tipo FROM roles WHERE tipo = $1`

	role := &models.Role{}
	if err := r.db.QueryRowContext(ctx, query, name).Scan(&role.ID, &role.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return role, nil
}
