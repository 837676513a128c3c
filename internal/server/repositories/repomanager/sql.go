package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/server/migrations"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/blobs"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/challenges"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/sessions"
	"github.com/pressly/goose/v3"
)

// SQLRepositoryManager vends the SQL repositories. The dialect only matters
// to goose; the repository statements are shared.
type SQLRepositoryManager struct {
	dialect dbx.Dialect
}

func (m *SQLRepositoryManager) Challenges(db dbx.DBTX) challenges.Repository {
	return challenges.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewSQLRepository(db)
}

func (m *SQLRepositoryManager) Blobs(db dbx.DBTX) blobs.Repository {
	return blobs.NewSQLRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded migrations with goose.
func (m *SQLRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(string(m.dialect)); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}

func NewSQLRepositoryManager(dialect dbx.Dialect) *SQLRepositoryManager {
	return &SQLRepositoryManager{dialect: dialect}
}
