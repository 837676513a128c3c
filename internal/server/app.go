// Package server wires the HashDrive HTTP server: database and migrations,
// the blob backend, the ledger connection and the HTTP API, with graceful
// shutdown on signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/hashdrive/internal/dbx"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/rpc"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/server/config"
	"github.com/dmitrijs2005/hashdrive/internal/server/httpapi"
	"github.com/dmitrijs2005/hashdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/hashdrive/internal/server/services"
	"github.com/dmitrijs2005/hashdrive/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	ledger *rpc.Client
	http   *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)

	if err := ensureSQLiteDir(c.DatabaseDSN); err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	db, dialect, err := dbx.Open(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewSQLRepositoryManager(dialect)
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	backend, err := newBackend(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	lc, err := rpc.NewClient(c.LedgerAddr)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ledger client init error: %w", err)
	}

	reg := registry.New(lc, registry.Options{}, logger)
	as := services.NewAuthService(db, rm, c, logger)
	ss := services.NewStorageService(db, rm, backend, reg, as, services.StorageOptions{
		MaxUploadSize: c.MaxUploadSize,
		RequireGrant:  c.RequireGrant,
	}, logger)

	h := httpapi.NewServer(c.ListenAddr, as, ss, reg, httpapi.Options{
		MaxUploadSize: c.MaxUploadSize,
		CORSOrigin:    c.CORSOrigin,
	}, logger)

	return &App{config: c, logger: logger, db: db, ledger: lc, http: h}, nil
}

func newBackend(ctx context.Context, c *config.Config) (storage.Backend, error) {
	switch strings.ToLower(c.StorageBackend) {
	case "file", "":
		return storage.NewFileBackend(c.StorageDir)
	case "s3":
		return storage.NewS3Backend(ctx, storage.S3Options{
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Bucket:   c.S3Bucket,
			Region:   c.S3Region,
			Endpoint: c.S3BaseEndpoint,
		})
	case "memory":
		return storage.NewMemoryBackend(0), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN.
func ensureSQLiteDir(dsn string) error {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return nil
	}
	path := strings.TrimPrefix(dsn, "sqlite:")
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves HTTP until ctx is cancelled or a signal arrives, then releases
// the database and the ledger connection.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "ledger", app.config.LedgerAddr, "storage", app.config.StorageBackend)

	app.initSignalHandler(cancelFunc)

	if err := app.http.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
	}

	if err := app.ledger.Close(); err != nil {
		app.logger.Error(ctx, "closing ledger client", "error", err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "closing database", "error", err.Error())
	}
	app.logger.Info(ctx, "Server stopped")
}
