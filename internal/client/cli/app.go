package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"github.com/dmitrijs2005/hashdrive/internal/client/api"
	"github.com/dmitrijs2005/hashdrive/internal/client/config"
	"github.com/dmitrijs2005/hashdrive/internal/client/services"
	"github.com/dmitrijs2005/hashdrive/internal/client/session"
	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/rpc"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/fatih/color"
)

// getPassword and loadWallet are indirections used to facilitate testing.
var (
	getPassword = GetPassword
	loadWallet  = wallet.Load
)

var errDeclined = errors.New("declined by user")

type orchestrator interface {
	Connect(ctx context.Context, sess *session.Session) error
	Logout(ctx context.Context, sess *session.Session) error
	Upload(ctx context.Context, sess *session.Session, path string) (registry.FileRecord, error)
	Refresh(ctx context.Context, sess *session.Session) ([]registry.FileRecord, error)
	Download(ctx context.Context, sess *session.Session, index uint64, destDir string) (string, error)
	Grant(ctx context.Context, sess *session.Session, index uint64, grantee string) error
	Balance(ctx context.Context, address string) (uint64, error)
}

type App struct {
	config  *config.Config
	orch    orchestrator
	sess    *session.Session
	lines   *lineReader
	out     io.Writer
	closeFn func() error

	spinMu  sync.Mutex
	spinner *spinner.Spinner

	// autoConnect makes commands that need a server session connect first.
	autoConnect bool
	// assumeYes approves signature requests without prompting.
	assumeYes bool
}

// NewApp wires the server client, the ledger client and the orchestrator.
func NewApp(c *config.Config, in io.Reader, out io.Writer) (*App, error) {
	logger := logging.New("text", c.LogLevel, os.Stderr)

	lc, err := rpc.NewClient(c.LedgerAddr)
	if err != nil {
		return nil, fmt.Errorf("ledger client init error: %w", err)
	}

	reg := registry.New(lc, registry.Options{
		PollInterval:    c.PollInterval,
		FinalityTimeout: c.FinalityTimeout,
	}, logger)

	orch := services.NewOrchestrator(api.New(c.ServerURL, c.RequestTimeout), reg, services.Options{
		SignTimeout: c.SignTimeout,
	}, logger)

	return &App{
		config:      c,
		orch:        orch,
		sess:        session.New(),
		lines:       newLineReader(in),
		out:         out,
		closeFn:     lc.Close,
		autoConnect: true,
	}, nil
}

func (a *App) Close() error {
	if a.closeFn == nil {
		return nil
	}
	return a.closeFn()
}

func (a *App) isConnected() bool {
	return a.sess.Connected()
}

// unlock loads the keyfile into the session once.
func (a *App) unlock() error {
	if a.sess.Signer() != nil {
		return nil
	}
	if _, err := os.Stat(a.config.WalletPath); err != nil {
		return fmt.Errorf("%w: no wallet at %s, run 'wallet new'", common.ErrPreconditionFailed, a.config.WalletPath)
	}

	pass, err := getPassword(a.out, "Wallet passphrase")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	w, err := loadWallet(a.config.WalletPath, pass)
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrPreconditionFailed, err)
	}

	if a.assumeYes {
		a.sess.SetSigner(w)
	} else {
		a.sess.SetSigner(wallet.ConfirmingSigner{Signer: w, Confirm: a.confirm})
	}
	return nil
}

// confirm asks the user to approve a signature.
func (a *App) confirm(ctx context.Context, address string, message []byte) error {
	a.stopSpinner()

	preview := string(message)
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	answer, err := GetSimpleText(ctx, a.lines, fmt.Sprintf("Sign with %s?\n  %s\n[y/N]", address, preview), a.out)
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	default:
		return errDeclined
	}
}

func (a *App) ensureConnected(ctx context.Context) error {
	if err := a.unlock(); err != nil {
		return err
	}
	if a.autoConnect && !a.sess.Connected() {
		return a.orch.Connect(ctx, a.sess)
	}
	return nil
}

// spin shows a spinner with suffix until the returned func is called. A
// confirmation prompt stops the spinner early.
func (a *App) spin(suffix string) func() {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(a.out))
	s.Suffix = " " + suffix

	a.spinMu.Lock()
	a.spinner = s
	a.spinMu.Unlock()

	s.Start()
	return a.stopSpinner
}

func (a *App) stopSpinner() {
	a.spinMu.Lock()
	defer a.spinMu.Unlock()
	if a.spinner != nil {
		a.spinner.Stop()
		a.spinner = nil
	}
}

func (a *App) ok(format string, args ...any) {
	green := color.New(color.FgGreen).SprintFunc()
	fmt.Fprintf(a.out, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}
