// Package sessions stores the server-side half of issued session tokens so
// they can be revoked before they expire.
package sessions

import (
	"context"

	"github.com/dmitrijs2005/hashdrive/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Session) error

	// Get returns the session with id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Revoke marks the session revoked; an unknown id yields common.ErrorNotFound.
	Revoke(ctx context.Context, id string) error

	// ListActive returns the non-revoked sessions of address. Expiry is left
	// to the caller.
	ListActive(ctx context.Context, address string) ([]*models.Session, error)
}
