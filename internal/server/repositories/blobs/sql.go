package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/server/models"
)

type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Create(ctx context.Context, b *models.Blob) (bool, error) {
	query := `
		INSERT INTO blobs (fingerprint, size, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (fingerprint) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query, b.Fingerprint, b.Size, b.CreatedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}

func (r *SQLRepository) Get(ctx context.Context, fingerprint string) (*models.Blob, error) {
	query := `
		SELECT fingerprint, size, created_at
		FROM blobs
		WHERE fingerprint = $1
	`
	b := &models.Blob{}
	if err := r.db.QueryRowContext(ctx, query, fingerprint).Scan(&b.Fingerprint, &b.Size, &b.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return b, nil
}
