package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/server/config"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/stretchr/testify/require"
)

// setupDB opens a migrated SQLite database in a temp dir.
func setupDB(t *testing.T) (*sql.DB, *repomanager.SQLRepositoryManager) {
	t.Helper()
	db, dialect, err := dbx.Open("sqlite:" + filepath.Join(t.TempDir(), "hashdrive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := repomanager.NewSQLRepositoryManager(dialect)
	require.NoError(t, m.RunMigrations(context.Background(), db))
	return db, m
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.SecretKey = "test-secret"
	return c
}

// clock is a settable time source. It starts at the wall clock because
// token expiry is checked against real time.
type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock {
	return &clock{t: time.Now().UTC().Truncate(time.Second)}
}

func newAuth(t *testing.T) (*AuthService, *clock) {
	t.Helper()
	db, m := setupDB(t)
	s := NewAuthService(db, m, testConfig(), logging.Nop())
	c := newClock()
	s.now = c.now
	return s, c
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	return w
}

func signNonce(t *testing.T, w *wallet.Wallet, nonce string) string {
	t.Helper()
	sig, err := w.Sign(context.Background(), []byte(nonce))
	require.NoError(t, err)
	return wallet.EncodeSignature(sig)
}

// login runs the full challenge flow and returns a token.
func login(t *testing.T, s *AuthService, w *wallet.Wallet) string {
	t.Helper()
	ctx := context.Background()
	nonce, err := s.IssueNonce(ctx, w.Address())
	require.NoError(t, err)
	token, err := s.Verify(ctx, w.Address(), signNonce(t, w, nonce))
	require.NoError(t, err)
	return token
}
