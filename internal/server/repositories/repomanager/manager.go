package repomanager

import (
	"context"
	"database/sql"

	"github.com/keywarden/keywarden/internal/dbx"
	"github.com/keywarden/keywarden/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX handle
// and exposes a schema migration hook. Passing the handle at call time keeps
// the connection pool a dependency rather than a singleton, so tests can
// substitute fakes.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}
