package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unlocked returns an app with a wallet already in the session.
func unlocked(t *testing.T, orch *fakeOrch) (*App, *wallet.Wallet, *bytes.Buffer) {
	t.Helper()
	a, out := newTestApp(t, orch, "")
	w, err := wallet.Generate()
	require.NoError(t, err)
	a.sess.SetSigner(w)
	return a, w, out
}

func stubNewPassword(t *testing.T, pw string, err error) {
	t.Helper()
	orig := getNewPassword
	getNewPassword = func(io.Writer) ([]byte, error) { return []byte(pw), err }
	t.Cleanup(func() { getNewPassword = orig })
}

func TestWalletNew(t *testing.T) {
	stubNewPassword(t, "pw", nil)
	a, out := newTestApp(t, &fakeOrch{}, "")
	a.config.WalletPath = filepath.Join(t.TempDir(), "keys", "wallet.json")

	require.NoError(t, a.WalletNew(context.Background(), false))
	address, err := wallet.PeekAddress(a.config.WalletPath)
	require.NoError(t, err)
	assert.Contains(t, out.String(), address)

	err = a.WalletNew(context.Background(), false)
	require.ErrorIs(t, err, common.ErrPreconditionFailed)
	again, _ := wallet.PeekAddress(a.config.WalletPath)
	assert.Equal(t, address, again, "existing keyfile must survive without --force")

	require.NoError(t, a.WalletNew(context.Background(), true))
	replaced, _ := wallet.PeekAddress(a.config.WalletPath)
	assert.NotEqual(t, address, replaced)

	w, err := wallet.Load(a.config.WalletPath, []byte("pw"))
	require.NoError(t, err)
	assert.Equal(t, replaced, w.Address())
}

func TestWalletNew_PassphraseMismatch(t *testing.T) {
	stubNewPassword(t, "", errPassphraseMismatch)
	a, _ := newTestApp(t, &fakeOrch{}, "")

	err := a.WalletNew(context.Background(), false)
	require.ErrorIs(t, err, common.ErrPreconditionFailed)
	_, statErr := os.Stat(a.config.WalletPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWalletShow(t *testing.T) {
	path, w := newKeyfile(t, "pw")
	orch := &fakeOrch{balance: 42}
	a, out := newTestApp(t, orch, "")
	a.config.WalletPath = path

	require.NoError(t, a.WalletShow(context.Background()))
	assert.Contains(t, out.String(), "address: "+w.Address())
	assert.Contains(t, out.String(), "balance: 42")
}

func TestWalletShow_NoKeyfile(t *testing.T) {
	a, _ := newTestApp(t, &fakeOrch{}, "")
	require.ErrorIs(t, a.WalletShow(context.Background()), common.ErrPreconditionFailed)
}

func TestConnect(t *testing.T) {
	orch := &fakeOrch{}
	a, w, out := unlocked(t, orch)

	require.NoError(t, a.Connect(context.Background()))
	assert.True(t, a.isConnected())
	assert.Contains(t, out.String(), "connected as "+w.Address())
}

func TestConnect_Failure(t *testing.T) {
	orch := &fakeOrch{err: common.ErrAuthFailure}
	a, _, _ := unlocked(t, orch)

	require.ErrorIs(t, a.Connect(context.Background()), common.ErrAuthFailure)
	assert.False(t, a.isConnected())
}

func TestLogout(t *testing.T) {
	orch := &fakeOrch{}
	a, _, out := unlocked(t, orch)

	require.NoError(t, a.Logout(context.Background()))
	assert.Empty(t, orch.calls)
	assert.Contains(t, out.String(), "not connected")

	a.sess.SetToken("tok")
	require.NoError(t, a.Logout(context.Background()))
	assert.Equal(t, []string{"logout"}, orch.calls)
	assert.False(t, a.isConnected())
}

func TestUpload_AutoConnects(t *testing.T) {
	orch := &fakeOrch{}
	a, _, out := unlocked(t, orch)

	require.NoError(t, a.Upload(context.Background(), "/tmp/report.pdf"))
	assert.Equal(t, []string{"connect", "upload"}, orch.calls)
	assert.Equal(t, "/tmp/report.pdf", orch.uploadPath)
	assert.Contains(t, out.String(), "report.pdf registered as #0")
}

func TestUpload_ShellDoesNotAutoConnect(t *testing.T) {
	orch := &fakeOrch{}
	a, _, _ := unlocked(t, orch)
	a.autoConnect = false

	_ = a.Upload(context.Background(), "/tmp/report.pdf")
	assert.Equal(t, []string{"upload"}, orch.calls)
}

func TestUpload_ConnectFailureStops(t *testing.T) {
	orch := &fakeOrch{err: common.ErrAuthFailure}
	a, _, _ := unlocked(t, orch)

	require.ErrorIs(t, a.Upload(context.Background(), "x"), common.ErrAuthFailure)
	assert.Equal(t, []string{"connect"}, orch.calls)
}

func TestList(t *testing.T) {
	orch := &fakeOrch{files: []registry.FileRecord{
		{Index: 0, Filename: "a.txt", FileHash: "aa", Uploader: "1alice"},
		{Index: 1, Filename: "b.txt", FileHash: "bb", Uploader: "1bob"},
	}}
	a, out := newTestApp(t, orch, "")

	require.NoError(t, a.List(context.Background()))
	s := out.String()
	assert.Contains(t, s, "INDEX")
	assert.Contains(t, s, "a.txt")
	assert.Contains(t, s, "1bob")
	assert.Len(t, a.sess.Files(), 2)
}

func TestList_Empty(t *testing.T) {
	a, out := newTestApp(t, &fakeOrch{}, "")
	require.NoError(t, a.List(context.Background()))
	assert.Contains(t, out.String(), "no files")
}

func TestDownload_RefreshesAndUsesDefaultDir(t *testing.T) {
	orch := &fakeOrch{files: []registry.FileRecord{{Index: 0, Filename: "a.txt", FileHash: "aa"}}}
	a, _, out := unlocked(t, orch)

	require.NoError(t, a.Download(context.Background(), 0, ""))
	assert.Equal(t, []string{"connect", "refresh", "download"}, orch.calls)
	assert.Equal(t, a.config.DownloadDir, orch.downloadDir)
	assert.Contains(t, out.String(), "saved to")
}

func TestDownload_KeepsListedFiles(t *testing.T) {
	orch := &fakeOrch{}
	a, _, _ := unlocked(t, orch)
	a.sess.SetToken("tok")
	a.sess.SetFiles([]registry.FileRecord{{Index: 3, Filename: "c.txt"}})

	require.NoError(t, a.Download(context.Background(), 3, "out"))
	assert.Equal(t, []string{"download"}, orch.calls)
	assert.Equal(t, "out", orch.downloadDir)
}

func TestGrant(t *testing.T) {
	orch := &fakeOrch{}
	a, _, out := unlocked(t, orch)

	require.NoError(t, a.Grant(context.Background(), 2, "1bob"))
	assert.Equal(t, []string{"grant"}, orch.calls)
	assert.Equal(t, "1bob", orch.grantee)
	assert.Contains(t, out.String(), "1bob may download #2")
}

func TestGrant_NeedsWallet(t *testing.T) {
	orch := &fakeOrch{}
	a, _ := newTestApp(t, orch, "")

	require.ErrorIs(t, a.Grant(context.Background(), 0, "1bob"), common.ErrPreconditionFailed)
	assert.Empty(t, orch.calls)
}
