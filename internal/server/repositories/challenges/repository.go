// Package challenges stores the nonce challenges issued during wallet
// authentication, one row per address.
package challenges

import (
	"context"

	"github.com/dmitrijs2005/hashdrive/internal/server/models"
)

type Repository interface {
	// Upsert stores c, replacing any challenge held for c.Address.
	Upsert(ctx context.Context, c *models.Challenge) error

	// Get returns the challenge for address or common.ErrorNotFound.
	Get(ctx context.Context, address string) (*models.Challenge, error)

	// Consume marks the challenge answered. It reports false when the
	// challenge was already consumed or replaced by a different nonce.
	Consume(ctx context.Context, address, nonce string) (bool, error)
}
