package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xchange-erasmus/xchange-api/internal/server/models"
)

const qInsert = `(?s)^INSERT\s+INTO\s+perfiles\s*\(id_usuario,\s*nombre,\s*apellido1\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*$`

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WithArgs(int64(12), "The Octocat", "GitHub").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgresRepository(db)
	err = repo.Create(context.Background(), &models.Profile{UserID: 12, Nombre: "The Octocat", Apellido1: "GitHub"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_DBError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(qInsert).
		WithArgs(int64(12), "x", "GitHub").
		WillReturnError(errors.New("fk violation"))

	err = NewPostgresRepository(db).Create(context.Background(), &models.Profile{UserID: 12, Nombre: "x", Apellido1: "GitHub"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error: fk violation")
}
