// Package services contains the client-side application services. The
// Orchestrator drives connect, upload, download and grant flows across the
// HashDrive server and the ledger, on an explicit session.Session.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/client/api"
	"github.com/dmitrijs2005/hashdrive/internal/client/session"
	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/filex"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

// API is the subset of the server client used by the orchestrator.
type API interface {
	Nonce(ctx context.Context, address string) (string, error)
	Verify(ctx context.Context, address, signature string) (string, error)
	Logout(ctx context.Context, token string) error
	Upload(ctx context.Context, filename string, r io.Reader) (api.UploadResult, error)
	Download(ctx context.Context, index uint64, address, token string) (*api.Download, error)
}

// Registry is the ledger side used by the orchestrator.
type Registry interface {
	Submit(ctx context.Context, filename string, fp hasher.Fingerprint, signer wallet.Signer) (registry.FileRecord, error)
	Grant(ctx context.Context, index uint64, grantee string, signer wallet.Signer) error
	List(ctx context.Context) ([]registry.FileRecord, error)
	Balance(ctx context.Context, address string) (uint64, error)
}

type Options struct {
	// SignTimeout bounds every signature request. Zero means no bound
	// beyond the caller's context.
	SignTimeout time.Duration
}

type Orchestrator struct {
	api      API
	registry Registry
	opts     Options
	logger   logging.Logger
}

func NewOrchestrator(a API, r Registry, opts Options, logger logging.Logger) *Orchestrator {
	return &Orchestrator{api: a, registry: r, opts: opts, logger: logger.With("module", "orchestrator")}
}

// boundedSigner applies the sign timeout to each signature.
type boundedSigner struct {
	wallet.Signer
	timeout time.Duration
}

func (s boundedSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	sig, err := s.Signer.Sign(ctx, message)
	if err != nil && !errors.Is(err, wallet.ErrSignCancelled) && ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %w", wallet.ErrSignCancelled, err)
	}
	return sig, err
}

func (o *Orchestrator) signer(sess *session.Session) (wallet.Signer, error) {
	s := sess.Signer()
	if s == nil {
		return nil, fmt.Errorf("%w: no wallet loaded", common.ErrPreconditionFailed)
	}
	return boundedSigner{Signer: s, timeout: o.opts.SignTimeout}, nil
}

// Connect runs the challenge/response login and stores the token in sess.
func (o *Orchestrator) Connect(ctx context.Context, sess *session.Session) error {
	signer, err := o.signer(sess)
	if err != nil {
		return err
	}
	address := signer.Address()

	nonce, err := o.api.Nonce(ctx, address)
	if err != nil {
		return err
	}

	sig, err := signer.Sign(ctx, []byte(nonce))
	if err != nil {
		return err
	}

	token, err := o.api.Verify(ctx, address, wallet.EncodeSignature(sig))
	if err != nil {
		return err
	}

	sess.SetToken(token)
	o.logger.Info(ctx, "connected", "address", address)
	return nil
}

// Logout revokes the server session and forgets the token locally even when
// the server call fails.
func (o *Orchestrator) Logout(ctx context.Context, sess *session.Session) error {
	token := sess.Token()
	sess.Disconnect()
	if token == "" {
		return nil
	}
	return o.api.Logout(ctx, token)
}

// Upload stores path on the server and registers it on the ledger, waiting
// for finality. When the store step succeeds and registration fails, the
// blob stays on the server unregistered and the registration error is
// returned.
func (o *Orchestrator) Upload(ctx context.Context, sess *session.Session, path string) (registry.FileRecord, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return registry.FileRecord{}, fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	if !fi.Mode().IsRegular() {
		return registry.FileRecord{}, fmt.Errorf("%w: %s is not a regular file", common.ErrPreconditionFailed, path)
	}
	if !sess.Connected() {
		return registry.FileRecord{}, fmt.Errorf("%w: wallet not connected", common.ErrPreconditionFailed)
	}
	signer, err := o.signer(sess)
	if err != nil {
		return registry.FileRecord{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return registry.FileRecord{}, fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	defer f.Close()

	filename := filepath.Base(path)
	res, err := o.api.Upload(ctx, filename, f)
	if err != nil {
		return registry.FileRecord{}, err
	}

	fp, err := hasher.Parse(res.FileHash)
	if err != nil {
		return registry.FileRecord{}, fmt.Errorf("%w: server returned %w", common.ErrStorageFailure, err)
	}
	o.logger.Info(ctx, "blob stored", "fingerprint", fp.String(), "file", filename)

	rec, err := o.registry.Submit(ctx, filename, fp, signer)
	if err != nil {
		o.logger.Warn(ctx, "blob stored but not registered", "fingerprint", fp.String(), "error", err.Error())
		return registry.FileRecord{}, err
	}

	if _, err := o.Refresh(ctx, sess); err != nil {
		o.logger.Warn(ctx, "refresh after upload failed", "error", err.Error())
	}
	return rec, nil
}

// Refresh reads the registry afresh into sess.
func (o *Orchestrator) Refresh(ctx context.Context, sess *session.Session) ([]registry.FileRecord, error) {
	files, err := o.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	sess.SetFiles(files)
	return files, nil
}

// Download fetches record index from the last listed files into destDir and
// returns the written path. The bytes are checked against the ledger hash
// before anything is written.
func (o *Orchestrator) Download(ctx context.Context, sess *session.Session, index uint64, destDir string) (string, error) {
	if len(sess.Files()) == 0 {
		return "", fmt.Errorf("%w: file list is empty, run list first", common.ErrPreconditionFailed)
	}
	rec, ok := sess.File(index)
	if !ok {
		return "", fmt.Errorf("%w: unknown index %d", common.ErrPreconditionFailed, index)
	}
	address := sess.Address()
	if address == "" {
		return "", fmt.Errorf("%w: no wallet loaded", common.ErrPreconditionFailed)
	}

	d, err := o.api.Download(ctx, index, address, sess.Token())
	if err != nil {
		return "", err
	}

	fp, err := hasher.Parse(rec.FileHash)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	if !hasher.Verify(d.Data, fp) {
		return "", fmt.Errorf("%w: downloaded bytes do not match %s", common.ErrStorageFailure, fp)
	}

	path, err := filex.WriteAtomic(destDir, rec.Filename, bytes.NewReader(d.Data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrStorageFailure, err)
	}
	o.logger.Info(ctx, "downloaded", "index", index, "path", path)
	return path, nil
}

// Grant lets grantee download record index. Only the uploader can grant.
func (o *Orchestrator) Grant(ctx context.Context, sess *session.Session, index uint64, grantee string) error {
	if err := wallet.ValidateAddress(grantee); err != nil {
		return fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	signer, err := o.signer(sess)
	if err != nil {
		return err
	}
	return o.registry.Grant(ctx, index, grantee, signer)
}

// Balance returns the ledger balance of address.
func (o *Orchestrator) Balance(ctx context.Context, address string) (uint64, error) {
	if err := wallet.ValidateAddress(address); err != nil {
		return 0, fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}
	return o.registry.Balance(ctx, address)
}
