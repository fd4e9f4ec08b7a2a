// Package repomanager provides a factory for repositories bound to either a
// plain connection pool or an open transaction, so services can run multi-row
// sequences atomically without the repositories knowing the difference.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/avelkers/medrecord/internal/dbx"
	"github.com/avelkers/medrecord/internal/server/repositories/documents"
	"github.com/avelkers/medrecord/internal/server/repositories/files"
	"github.com/avelkers/medrecord/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Files(db dbx.DBTX) files.Repository
	Documents(db dbx.DBTX) documents.Repository
}
