package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/client/config"
	"github.com/dmitrijs2005/hashdrive/internal/client/session"
	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrch struct {
	calls   []string
	files   []registry.FileRecord
	balance uint64
	err     error

	uploadPath  string
	downloadDir string
	grantee     string
}

func (f *fakeOrch) Connect(ctx context.Context, sess *session.Session) error {
	f.calls = append(f.calls, "connect")
	if f.err != nil {
		return f.err
	}
	sess.SetToken("tok")
	return nil
}

func (f *fakeOrch) Logout(ctx context.Context, sess *session.Session) error {
	f.calls = append(f.calls, "logout")
	sess.Disconnect()
	return f.err
}

func (f *fakeOrch) Upload(ctx context.Context, sess *session.Session, path string) (registry.FileRecord, error) {
	f.calls = append(f.calls, "upload")
	f.uploadPath = path
	if f.err != nil {
		return registry.FileRecord{}, f.err
	}
	return registry.FileRecord{Index: 0, Filename: filepath.Base(path), FileHash: "ab12", Uploader: sess.Address()}, nil
}

func (f *fakeOrch) Refresh(ctx context.Context, sess *session.Session) ([]registry.FileRecord, error) {
	f.calls = append(f.calls, "refresh")
	if f.err != nil {
		return nil, f.err
	}
	sess.SetFiles(f.files)
	return f.files, nil
}

func (f *fakeOrch) Download(ctx context.Context, sess *session.Session, index uint64, destDir string) (string, error) {
	f.calls = append(f.calls, "download")
	f.downloadDir = destDir
	if f.err != nil {
		return "", f.err
	}
	return filepath.Join(destDir, "a.txt"), nil
}

func (f *fakeOrch) Grant(ctx context.Context, sess *session.Session, index uint64, grantee string) error {
	f.calls = append(f.calls, "grant")
	f.grantee = grantee
	return f.err
}

func (f *fakeOrch) Balance(ctx context.Context, address string) (uint64, error) {
	f.calls = append(f.calls, "balance")
	return f.balance, f.err
}

func stubPassword(t *testing.T, pw string) {
	t.Helper()
	orig := getPassword
	getPassword = func(io.Writer, string) ([]byte, error) { return []byte(pw), nil }
	t.Cleanup(func() { getPassword = orig })
}

// newKeyfile writes a wallet encrypted with pass into a temp dir.
func newKeyfile(t *testing.T, pass string) (string, *wallet.Wallet) {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "wallet.json")
	require.NoError(t, wallet.Save(path, w, []byte(pass)))
	return path, w
}

func newTestApp(t *testing.T, orch *fakeOrch, input string) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.WalletPath = filepath.Join(t.TempDir(), "missing.json")
	cfg.DownloadDir = t.TempDir()

	var out bytes.Buffer
	return &App{
		config:      cfg,
		orch:        orch,
		sess:        session.New(),
		lines:       newLineReader(strings.NewReader(input)),
		out:         &out,
		autoConnect: true,
	}, &out
}

func TestUnlock_NoWallet(t *testing.T) {
	a, _ := newTestApp(t, &fakeOrch{}, "")
	err := a.unlock()
	require.ErrorIs(t, err, common.ErrPreconditionFailed)
	assert.Contains(t, err.Error(), "wallet new")
}

func TestUnlock_WrongPassphrase(t *testing.T) {
	path, _ := newKeyfile(t, "right")
	a, _ := newTestApp(t, &fakeOrch{}, "")
	a.config.WalletPath = path
	stubPassword(t, "wrong")

	err := a.unlock()
	require.ErrorIs(t, err, common.ErrPreconditionFailed)
	require.ErrorIs(t, err, wallet.ErrWrongPassphrase)
	assert.Nil(t, a.sess.Signer())
}

func TestUnlock_SignerKind(t *testing.T) {
	path, w := newKeyfile(t, "pw")
	stubPassword(t, "pw")

	a, _ := newTestApp(t, &fakeOrch{}, "")
	a.config.WalletPath = path
	require.NoError(t, a.unlock())
	_, gated := a.sess.Signer().(wallet.ConfirmingSigner)
	assert.True(t, gated, "signatures must be confirmed by default")
	assert.Equal(t, w.Address(), a.sess.Address())

	b, _ := newTestApp(t, &fakeOrch{}, "")
	b.config.WalletPath = path
	b.assumeYes = true
	require.NoError(t, b.unlock())
	_, plain := b.sess.Signer().(*wallet.Wallet)
	assert.True(t, plain)
}

func TestUnlock_OnlyOnce(t *testing.T) {
	path, _ := newKeyfile(t, "pw")
	a, _ := newTestApp(t, &fakeOrch{}, "")
	a.config.WalletPath = path

	asked := 0
	orig := getPassword
	getPassword = func(io.Writer, string) ([]byte, error) { asked++; return []byte("pw"), nil }
	t.Cleanup(func() { getPassword = orig })

	require.NoError(t, a.unlock())
	require.NoError(t, a.unlock())
	assert.Equal(t, 1, asked)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input   string
		wantErr error
	}{
		{"y\n", nil},
		{"YES\n", nil},
		{"n\n", errDeclined},
		{"\n", errDeclined},
		{"", io.EOF},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			a, out := newTestApp(t, &fakeOrch{}, tt.input)
			err := a.confirm(context.Background(), "1abc", []byte(strings.Repeat("n", 100)))
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			assert.Contains(t, out.String(), "Sign with 1abc?")
			assert.Contains(t, out.String(), "...")
		})
	}
}

func TestConfirmingSigner_DeclineCancelsSignature(t *testing.T) {
	_, w := newKeyfile(t, "pw")
	a, _ := newTestApp(t, &fakeOrch{}, "n\n")

	s := wallet.ConfirmingSigner{Signer: w, Confirm: a.confirm}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := s.Sign(ctx, []byte("nonce"))
	require.ErrorIs(t, err, wallet.ErrSignCancelled)
	require.ErrorIs(t, err, errDeclined)
}

func TestClose(t *testing.T) {
	a := &App{}
	require.NoError(t, a.Close())

	boom := errors.New("boom")
	a.closeFn = func() error { return boom }
	require.ErrorIs(t, a.Close(), boom)
}

func TestSpin_StopIsIdempotent(t *testing.T) {
	a, _ := newTestApp(t, &fakeOrch{}, "")
	stop := a.spin("working")
	a.stopSpinner()
	stop()
	assert.Nil(t, a.spinner)
}

func TestNewApp_WiresClients(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	a, err := NewApp(cfg, strings.NewReader(""), io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.True(t, a.autoConnect)
	assert.False(t, a.isConnected())
	assert.NotNil(t, a.orch)
}
