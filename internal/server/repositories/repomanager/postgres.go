// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// binding repositories to a pool or transaction and applying the embedded
// goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/server/migrations"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/profiles"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/roles"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/users"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Profiles(db dbx.DBTX) profiles.Repository {
	return profiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Roles(db dbx.DBTX) roles.Repository {
	return roles.NewPostgresRepository(db)
}

// migrator is the part of *goose.Provider RunMigrations needs.
type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newMigrator is a test seam over goose.NewProvider.
var newMigrator = func(db *sql.DB) (migrator, error) {
	return goose.NewProvider(goose.DialectPostgres, db, migrations.Migrations)
}

// RunMigrations applies every pending embedded migration and returns the
// versions it applied.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) ([]int64, error) {
	p, err := newMigrator(db)
	if err != nil {
		return nil, fmt.Errorf("migrations setup: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	applied := make([]int64, 0, len(results))
	for _, r := range results {
		applied = append(applied, r.Source.Version)
	}
	return applied, nil
}

func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}
