package repomanager

import (
	"context"
	"database/sql"

	"github.com/xchange-erasmus/xchange-api/internal/dbx"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/profiles"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/roles"
	"github.com/xchange-erasmus/xchange-api/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to either the pool or an open
// transaction, so services can compose several writes atomically.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) ([]int64, error)
	Users(db dbx.DBTX) users.Repository
	Profiles(db dbx.DBTX) profiles.Repository
	Roles(db dbx.DBTX) roles.Repository
}
