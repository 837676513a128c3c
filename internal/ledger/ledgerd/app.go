// Package ledgerd wires the ledger node: bbolt storage, block production and
// the gRPC endpoint.
package ledgerd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/hashdrive/internal/ledger/config"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/node"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/rpc"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/store"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
)

type App struct {
	config *config.Config
	logger logging.Logger
	store  *store.BoltStore
	node   *node.Node
}

func NewApp(c *config.Config) (*App, error) {
	logger := logging.New(c.LogFormat, c.LogLevel, os.Stdout)

	s, err := store.Open(c.BoltPath)
	if err != nil {
		return nil, fmt.Errorf("ledger store init error: %w", err)
	}

	n := node.New(s, node.Options{
		Confirmations:  c.Confirmations,
		Fee:            c.Fee,
		InitialBalance: c.InitialBalance,
	}, logger)

	return &App{config: c, logger: logger, store: s, node: n}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled or a signal arrives.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting ledger node...", "store", app.config.BoltPath)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.node.Run(ctx, app.config.BlockInterval)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := rpc.NewServer(app.config.ListenAddr, app.node, app.logger).Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.store.Close(); err != nil {
		app.logger.Error(ctx, "closing ledger store", "error", err.Error())
	}
	app.logger.Info(ctx, "Ledger node stopped")
}
