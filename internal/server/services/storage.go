package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/server/models"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hashdrive/internal/server/storage"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

var (
	ErrMissingCredential = errors.New("wallet address missing")
	ErrHashMismatch      = errors.New("file hash mismatch")
)

// Registry is the read side of the ledger registry used for downloads.
type Registry interface {
	Get(ctx context.Context, index uint64) (registry.FileRecord, error)
	CanDownload(ctx context.Context, index uint64, address string) (bool, error)
}

// Authorizer resolves download credentials.
type Authorizer interface {
	Authenticate(ctx context.Context, token string) (string, error)
	HasLiveSession(ctx context.Context, address string) (bool, error)
}

// Credential is presented on download: a session token, a wallet address,
// or both. When both are given they must name the same wallet.
type Credential struct {
	Token   string
	Address string
}

type Blob struct {
	Filename    string
	Fingerprint hasher.Fingerprint
	Data        []byte
}

type StorageOptions struct {
	MaxUploadSize int64
	RequireGrant  bool
}

type StorageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	backend     storage.Backend
	registry    Registry
	auth        Authorizer
	opts        StorageOptions
	logger      logging.Logger
	now         func() time.Time
}

func NewStorageService(db *sql.DB, m repomanager.RepositoryManager, backend storage.Backend,
	reg Registry, auth Authorizer, opts StorageOptions, logger logging.Logger) *StorageService {
	return &StorageService{
		db:          db,
		repomanager: m,
		backend:     backend,
		registry:    reg,
		auth:        auth,
		opts:        opts,
		logger:      logger.With("module", "storage_service"),
		now:         time.Now,
	}
}

// Store reads r fully and stores it under its fingerprint. Storing bytes
// that are already present writes nothing and returns the same fingerprint.
// A blob written by this call is removed again when its metadata row cannot
// be recorded.
func (s *StorageService) Store(ctx context.Context, r io.Reader) (hasher.Fingerprint, error) {
	var buf bytes.Buffer
	limit := s.opts.MaxUploadSize
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	fp, n, err := hasher.SumReader(io.TeeReader(r, &buf))
	if err != nil {
		return "", fmt.Errorf("%w: read upload: %w", common.ErrStorageFailure, err)
	}
	if limit > 0 && n > limit {
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, storage.ErrTooLarge)
	}

	existed, err := s.backend.Has(ctx, fp)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	if err := s.backend.Put(ctx, fp, buf.Bytes()); err != nil {
		s.logger.Error(ctx, "blob write failed", "fingerprint", fp.String(), "error", err.Error())
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	created, err := s.repomanager.Blobs(s.db).Create(ctx, &models.Blob{
		Fingerprint: fp.String(),
		Size:        n,
		CreatedAt:   s.now(),
	})
	if err != nil {
		if !existed {
			s.discard(ctx, fp)
		}
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	s.logger.Info(ctx, "blob stored", "fingerprint", fp.String(), "size", n, "new", created)
	return fp, nil
}

func (s *StorageService) discard(ctx context.Context, fp hasher.Fingerprint) {
	if err := s.backend.Delete(ctx, fp); err != nil {
		s.logger.Warn(ctx, "orphaned blob left behind", "fingerprint", fp.String(), "error", err.Error())
	}
}

// Retrieve authorizes cred, resolves index through the registry and returns
// the verified bytes. Authorization is checked before the index is looked up.
func (s *StorageService) Retrieve(ctx context.Context, index uint64, cred Credential) (*Blob, error) {
	address, err := s.authorize(ctx, cred)
	if err != nil {
		return nil, err
	}

	if s.opts.RequireGrant {
		ok, err := s.registry.CanDownload(ctx, index, address)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, err
		}
		if !ok {
			s.logger.Warn(ctx, "download not granted", "address", address, "index", index)
			return nil, fmt.Errorf("%w: no download grant", common.ErrUnauthorized)
		}
	}

	rec, err := s.registry.Get(ctx, index)
	if err != nil {
		return nil, err
	}

	fp, err := hasher.Parse(rec.FileHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}

	data, err := s.load(ctx, fp)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "blob served", "address", address, "index", index, "fingerprint", fp.String())
	return &Blob{Filename: rec.Filename, Fingerprint: fp, Data: data}, nil
}

// RetrieveByFingerprint is Retrieve without the ledger lookup.
func (s *StorageService) RetrieveByFingerprint(ctx context.Context, fingerprint string, cred Credential) (*Blob, error) {
	if _, err := s.authorize(ctx, cred); err != nil {
		return nil, err
	}

	fp, err := hasher.Parse(fingerprint)
	if err != nil {
		return nil, err
	}

	data, err := s.load(ctx, fp)
	if err != nil {
		return nil, err
	}
	return &Blob{Filename: fp.String(), Fingerprint: fp, Data: data}, nil
}

func (s *StorageService) load(ctx context.Context, fp hasher.Fingerprint) ([]byte, error) {
	data, err := s.backend.Get(ctx, fp)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: blob %s", common.ErrNotFound, fp)
		}
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	if !hasher.Verify(data, fp) {
		s.logger.Error(ctx, "stored blob does not match its fingerprint", "fingerprint", fp.String())
		return nil, fmt.Errorf("%w: %w", common.ErrStorageFailure, ErrHashMismatch)
	}
	return data, nil
}

func (s *StorageService) authorize(ctx context.Context, cred Credential) (string, error) {
	if cred.Token != "" {
		address, err := s.auth.Authenticate(ctx, cred.Token)
		if err != nil {
			return "", err
		}
		if cred.Address != "" && cred.Address != address {
			return "", fmt.Errorf("%w: wallet does not match token", common.ErrUnauthorized)
		}
		return address, nil
	}

	if cred.Address == "" {
		return "", fmt.Errorf("%w: %w", common.ErrUnauthorized, ErrMissingCredential)
	}
	if err := wallet.ValidateAddress(cred.Address); err != nil {
		return "", fmt.Errorf("%w: malformed wallet address", common.ErrUnauthorized)
	}

	ok, err := s.auth.HasLiveSession(ctx, cred.Address)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: no live session", common.ErrUnauthorized)
	}
	return cred.Address, nil
}
