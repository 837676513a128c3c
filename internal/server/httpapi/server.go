// Package httpapi exposes the HashDrive server over HTTP: wallet
// authentication, uploads, the ledger file list and authorized downloads.
package httpapi

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type AuthService interface {
	IssueNonce(ctx context.Context, address string) (string, error)
	Verify(ctx context.Context, address, signature string) (string, error)
	Logout(ctx context.Context, token string) error
}

type StorageService interface {
	Store(ctx context.Context, r io.Reader) (hasher.Fingerprint, error)
	Retrieve(ctx context.Context, index uint64, cred services.Credential) (*services.Blob, error)
	RetrieveByFingerprint(ctx context.Context, fingerprint string, cred services.Credential) (*services.Blob, error)
}

type Registry interface {
	List(ctx context.Context) ([]registry.FileRecord, error)
	Total(ctx context.Context) (uint64, error)
}

type Options struct {
	// MaxUploadSize bounds the request body of an upload. Zero disables the
	// check here; the storage service still applies its own limit.
	MaxUploadSize int64
	CORSOrigin    string
}

type Server struct {
	address  string
	auth     AuthService
	storage  StorageService
	registry Registry
	opts     Options
	logger   logging.Logger
}

func NewServer(address string, a AuthService, s StorageService, r Registry, opts Options, l logging.Logger) *Server {
	return &Server{
		address:  address,
		auth:     a,
		storage:  s,
		registry: r,
		opts:     opts,
		logger:   l.With("module", "http_server"),
	}
}

// Handler returns the routed API with logging and CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /auth/nonce/{address}", s.handleNonce)
	mux.HandleFunc("POST /auth/verify", s.handleVerify)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /upload/{$}", s.handleUpload)
	mux.HandleFunc("GET /files/{$}", s.handleFiles)
	mux.HandleFunc("GET /files/total", s.handleTotal)
	mux.HandleFunc("GET /download/{index}", s.handleDownload)
	mux.HandleFunc("GET /blobs/{fingerprint}", s.handleBlob)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok")
	})

	return s.withLogging(s.withCORS(mux))
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on lis until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
