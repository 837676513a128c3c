// Package services contains server-side business logic. This file implements
// AuthService: wallet challenge issuance, signature verification and the
// sessions that back issued tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/server/auth"
	"github.com/dmitrijs2005/hashdrive/internal/server/config"
	"github.com/dmitrijs2005/hashdrive/internal/server/models"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/google/uuid"
)

// NonceSize is the number of random bytes in a challenge nonce.
const NonceSize = 32

// lockStripes bounds the issuance locks regardless of how many addresses
// ask for challenges.
const lockStripes = 64

// rejection is an internal reason for a failed verification. It is logged
// and then replaced by common.ErrAuthFailure.
type rejection string

func (r rejection) Error() string { return string(r) }

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	jwtSecret   []byte
	nonceTTL    time.Duration
	tokenTTL    time.Duration
	logger      logging.Logger
	locks       [lockStripes]sync.Mutex
	now         func() time.Time
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		jwtSecret:   []byte(cfg.SecretKey),
		nonceTTL:    cfg.NonceTTL,
		tokenTTL:    cfg.TokenTTL,
		logger:      logger.With("module", "auth_service"),
		now:         time.Now,
	}
}

func (s *AuthService) lock(address string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(address))
	return &s.locks[h.Sum32()%lockStripes]
}

// IssueNonce creates a fresh challenge for address, replacing any previous
// one. Invalid addresses yield common.ErrInvalidAddress.
func (s *AuthService) IssueNonce(ctx context.Context, address string) (string, error) {
	if err := wallet.ValidateAddress(address); err != nil {
		return "", err
	}

	mu := s.lock(address)
	mu.Lock()
	defer mu.Unlock()

	nonce, err := common.MakeRandHexString(NonceSize)
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	now := s.now()
	err = s.repomanager.Challenges(s.db).Upsert(ctx, &models.Challenge{
		Address:   address,
		Nonce:     nonce,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.nonceTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store challenge: %w", err)
	}

	s.logger.Info(ctx, "challenge issued", "address", address, "ttl", s.nonceTTL.String())
	return nonce, nil
}

// Verify checks signature over the live challenge of address and, on
// success, consumes the challenge and returns a session token. Every
// rejection is reported as common.ErrAuthFailure. A rejected attempt leaves
// the challenge usable until it expires.
func (s *AuthService) Verify(ctx context.Context, address, signature string) (string, error) {
	now := s.now()
	var session *models.Session

	err := s.verify(ctx, address, signature, now, &session)
	if err != nil {
		var r rejection
		if errors.As(err, &r) {
			s.logger.Warn(ctx, "authentication rejected", "address", address, "reason", r.Error())
			return "", common.ErrAuthFailure
		}
		s.logger.Error(ctx, "authentication failed", "address", address, "error", err.Error())
		return "", fmt.Errorf("verify: %w", err)
	}

	token, err := auth.GenerateToken(address, session.ID, s.jwtSecret, now, s.tokenTTL)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info(ctx, "session opened", "address", address, "session", session.ID)
	return token, nil
}

func (s *AuthService) verify(ctx context.Context, address, signature string, now time.Time, out **models.Session) error {
	if err := wallet.ValidateAddress(address); err != nil {
		return rejection("invalid address")
	}
	sig, err := wallet.DecodeSignature(signature)
	if err != nil {
		return rejection("undecodable signature")
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		challenges := s.repomanager.Challenges(tx)

		ch, err := challenges.Get(ctx, address)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return rejection("no challenge")
			}
			return err
		}
		if ch.Consumed {
			return rejection("challenge already used")
		}
		if !ch.Live(now) {
			return rejection("challenge expired")
		}

		if err := wallet.VerifyMessage(address, []byte(ch.Nonce), sig); err != nil {
			return rejection("signature mismatch")
		}

		ok, err := challenges.Consume(ctx, address, ch.Nonce)
		if err != nil {
			return err
		}
		if !ok {
			return rejection("challenge already used")
		}

		session := &models.Session{
			ID:        uuid.NewString(),
			Address:   address,
			IssuedAt:  now,
			ExpiresAt: now.Add(s.tokenTTL),
		}
		if err := s.repomanager.Sessions(tx).Create(ctx, session); err != nil {
			return err
		}
		*out = session
		return nil
	})
}

// Authenticate resolves token to its wallet address. Invalid, expired or
// revoked tokens yield common.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}

	session, err := s.repomanager.Sessions(s.db).Get(ctx, claims.SessionID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("%w: unknown session", common.ErrUnauthorized)
		}
		return "", err
	}
	if !session.Live(s.now()) || session.Address != claims.Address() {
		return "", fmt.Errorf("%w: session closed", common.ErrUnauthorized)
	}
	return session.Address, nil
}

// HasLiveSession reports whether address holds an unexpired, unrevoked
// session.
func (s *AuthService) HasLiveSession(ctx context.Context, address string) (bool, error) {
	sessions, err := s.repomanager.Sessions(s.db).ListActive(ctx, address)
	if err != nil {
		return false, err
	}
	now := s.now()
	for _, session := range sessions {
		if session.Live(now) {
			return true, nil
		}
	}
	return false, nil
}

// Logout revokes the session behind token.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, s.jwtSecret)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrUnauthorized, err)
	}
	if err := s.repomanager.Sessions(s.db).Revoke(ctx, claims.SessionID()); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrUnauthorized
		}
		return err
	}
	s.logger.Info(ctx, "session closed", "address", claims.Address(), "session", claims.SessionID())
	return nil
}
