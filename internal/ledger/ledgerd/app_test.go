package ledgerd

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/ledger/config"
	"github.com/stretchr/testify/require"
)

func TestApp_RunStopsOnCancel(t *testing.T) {
	c := &config.Config{}
	c.LoadDefaults()
	c.ListenAddr = "127.0.0.1:0"
	c.BoltPath = filepath.Join(t.TempDir(), "ledger.db")
	c.BlockInterval = 10 * time.Millisecond
	c.LogLevel = "error"

	app, err := NewApp(c)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("ledger app did not stop")
	}
}

func TestNewApp_BadStorePath(t *testing.T) {
	dir := t.TempDir()
	c := &config.Config{}
	c.LoadDefaults()
	c.BoltPath = dir // a directory cannot be opened as a database file

	_, err := NewApp(c)
	require.Error(t, err)
}
