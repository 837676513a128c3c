// Package storage holds the blob backends behind the storage service. Blobs
// are keyed by their fingerprint and never rewritten once stored.
package storage

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/hashdrive/internal/hasher"
)

var (
	ErrNotFound  = errors.New("blob not found")
	ErrIOFailure = errors.New("blob i/o failure")
	ErrStoreFull = errors.New("blob store full")
	ErrTooLarge  = errors.New("blob exceeds size limit")
)

// Backend stores blob bytes. Put of an existing fingerprint is a no-op.
type Backend interface {
	Put(ctx context.Context, fp hasher.Fingerprint, data []byte) error
	Get(ctx context.Context, fp hasher.Fingerprint) ([]byte, error)
	Has(ctx context.Context, fp hasher.Fingerprint) (bool, error)
	Delete(ctx context.Context, fp hasher.Fingerprint) error
}
