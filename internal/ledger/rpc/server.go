package rpc

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Server struct {
	address string
	ledger  ledger.Service
	logger  logging.Logger
}

func NewServer(address string, l ledger.Service, logger logging.Logger) *Server {
	return &Server{
		address: address,
		ledger:  l,
		logger:  logger.With("module", "ledger_rpc"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor))
	srv.RegisterService(&serviceDesc, s.ledger)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping ledger gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting ledger gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}

func (s *Server) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	if err != nil {
		s.logger.Warn(ctx, "rpc failed", "method", info.FullMethod,
			"duration", time.Since(start).String(), "error", err.Error())
		return nil, toStatus(err)
	}
	return resp, nil
}

// toStatus maps ledger errors onto gRPC codes; the client reverses it.
func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}

	code := codes.Internal
	switch {
	case errors.Is(err, common.ErrInsufficientFunds):
		code = codes.FailedPrecondition
	case errors.Is(err, common.ErrTxRejected), errors.Is(err, ledger.ErrMalformedTx):
		code = codes.InvalidArgument
	case errors.Is(err, common.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	}
	return status.Error(code, err.Error())
}
