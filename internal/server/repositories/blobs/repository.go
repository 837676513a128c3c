// Package blobs stores metadata of content-addressed blobs.
package blobs

import (
	"context"

	"github.com/dmitrijs2005/hashdrive/internal/server/models"
)

type Repository interface {
	// Create records b. Recording an existing fingerprint again is a no-op
	// and reports false.
	Create(ctx context.Context, b *models.Blob) (bool, error)

	// Get returns the metadata for fingerprint or common.ErrorNotFound.
	Get(ctx context.Context, fingerprint string) (*models.Blob, error)
}
