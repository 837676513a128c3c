// Package repomanager vends the server repositories bound to a dbx.DBTX and
// runs the embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/sessions"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Challenges(db dbx.DBTX) challenges.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	Blobs(db dbx.DBTX) blobs.Repository
}
