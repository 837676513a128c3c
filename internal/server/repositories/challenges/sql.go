package challenges

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/server/models"
)

// SQLRepository implements Repository over dbx.DBTX. The statements run on
// both PostgreSQL and SQLite.
type SQLRepository struct {
	db dbx.DBTX
}

func NewSQLRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Upsert(ctx context.Context, c *models.Challenge) error {
	query := `
		INSERT INTO challenges (address, nonce, issued_at, expires_at, consumed)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (address) DO UPDATE SET
			nonce = EXCLUDED.nonce,
			issued_at = EXCLUDED.issued_at,
			expires_at = EXCLUDED.expires_at,
			consumed = FALSE
	`
	if _, err := r.db.ExecContext(ctx, query, c.Address, c.Nonce, c.IssuedAt.UTC(), c.ExpiresAt.UTC()); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, address string) (*models.Challenge, error) {
	query := `
		SELECT address, nonce, issued_at, expires_at, consumed
		FROM challenges
		WHERE address = $1
	`
	c := &models.Challenge{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(&c.Address, &c.Nonce, &c.IssuedAt, &c.ExpiresAt, &c.Consumed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *SQLRepository) Consume(ctx context.Context, address, nonce string) (bool, error) {
	query := `
		UPDATE challenges SET consumed = TRUE
		WHERE address = $1 AND nonce = $2 AND consumed = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, address, nonce)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}
