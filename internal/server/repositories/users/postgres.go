package users

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

const selectUser = `SELECT u.id_usuario, u.email, u.password, u.id_rol, r.tipo
		 FROM usuarios u
		 JOIN roles r ON r.id_rol = u.id_rol
		 `

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.PasswordHash, &user.RoleID, &user.RoleName)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+`WHERE u.email = $1`, email)
}

func (r *PostgresRepository) CreateExternal(ctx context.Context, email, placeholder, roleName string) (int64, bool, error) {
	query :=
		`INSERT INTO usuarios (email, password, id_rol)
		 SELECT $1, $2, id_rol FROM roles WHERE tipo = $3
		 ON CONFLICT (email) DO NOTHING
		 RETURNING id_usuario
		 `

	var id int64
	err := r.db.QueryRowContext(ctx, query, email, placeholder, roleName).Scan(&id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}

	return id, true, nil
}

func (r *PostgresRepository) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	query := `SELECT id_usuario, password FROM usuarios ORDER BY id_usuario`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []models.Credential
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(&c.UserID, &c.PasswordHash); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	query := `UPDATE usuarios SET password = $1 WHERE id_usuario = $2`

	res, err := r.db.ExecContext(ctx, query, passwordHash, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}

	return nil
}
