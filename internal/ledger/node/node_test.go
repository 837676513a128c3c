package node

import (
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/store"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNode(t *testing.T, opts Options) *Node {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return New(s, opts, logging.Nop())
}

func newWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.Generate()
	require.NoError(t, err)
	return w
}

var nonceSeq int

func sign(t *testing.T, w *wallet.Wallet, tx *ledger.Transaction) *ledger.Transaction {
	t.Helper()
	nonceSeq++
	tx.PublicKey = w.PublicKey()
	tx.Nonce = "n" + strconv.Itoa(nonceSeq)
	tx.Timestamp = 1700000000
	sig, err := w.Sign(context.Background(), tx.SigningPayload())
	require.NoError(t, err)
	tx.Signature = sig
	return tx
}

func uploadTx(t *testing.T, w *wallet.Wallet, name string, content string) *ledger.Transaction {
	return sign(t, w, &ledger.Transaction{
		Kind:     ledger.KindUpload,
		Filename: name,
		FileHash: hasher.Sum([]byte(content)).String(),
	})
}

func grantTx(t *testing.T, w *wallet.Wallet, index uint64, grantee string) *ledger.Transaction {
	return sign(t, w, &ledger.Transaction{Kind: ledger.KindGrant, Index: index, Grantee: grantee})
}

func TestSubmit_FinalAfterConfirmations(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 3})
	w := newWallet(t)

	id, err := n.Submit(ctx, uploadTx(t, w, "report.pdf", "hello world"))
	require.NoError(t, err)

	st, err := n.TxStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatePending, st.State)
	assert.Equal(t, uint64(0), st.Confirmations)

	for i := 1; i <= 2; i++ {
		_, err := n.MineBlock(ctx)
		require.NoError(t, err)
		st, err = n.TxStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, ledger.StatePending, st.State)
		assert.Equal(t, uint64(i), st.Confirmations)

		total, err := n.TotalFiles(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), total, "pending uploads are not visible")
	}

	sum, err := n.MineBlock(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Finalized)

	st, err = n.TxStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateFinal, st.State)
	assert.Equal(t, uint64(0), st.Index)

	rec, err := n.GetFile(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, ledger.Record{
		Index:    0,
		Filename: "report.pdf",
		FileHash: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		Uploader: w.Address(),
	}, *rec)
}

func TestSubmit_IndexesAreAscendingAndDuplicatesAllowed(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1})
	w := newWallet(t)

	for range 3 {
		_, err := n.Submit(ctx, uploadTx(t, w, "same.txt", "same"))
		require.NoError(t, err)
	}
	_, err := n.MineBlock(ctx)
	require.NoError(t, err)

	total, err := n.TotalFiles(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(3), total)
	for i := uint64(0); i < total; i++ {
		rec, err := n.GetFile(ctx, i)
		require.NoError(t, err)
		assert.Equal(t, i, rec.Index)
		assert.Equal(t, "same.txt", rec.Filename)
	}
}

func TestSubmit_ResubmitReturnsSameID(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1})
	tx := uploadTx(t, newWallet(t), "a", "a")

	id1, err := n.Submit(ctx, tx)
	require.NoError(t, err)
	id2, err := n.Submit(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	_, err = n.MineBlock(ctx)
	require.NoError(t, err)
	total, _ := n.TotalFiles(ctx)
	assert.Equal(t, uint64(1), total)
}

func TestSubmit_Rejections(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1})
	w := newWallet(t)

	tampered := uploadTx(t, w, "a.txt", "a")
	tampered.Filename = "b.txt"

	badHash := sign(t, w, &ledger.Transaction{Kind: ledger.KindUpload, Filename: "x", FileHash: "XYZ"})

	unsigned := uploadTx(t, w, "a.txt", "a")
	unsigned.Signature = nil

	cases := map[string]*ledger.Transaction{
		"tampered payload": tampered,
		"bad file hash":    badHash,
		"missing sig":      unsigned,
		"unknown kind":     sign(t, w, &ledger.Transaction{Kind: "burn"}),
	}
	for name, tx := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := n.Submit(ctx, tx)
			assert.ErrorIs(t, err, common.ErrTxRejected)
		})
	}
}

func TestSubmit_UploaderIsSigner(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1})
	alice, mallory := newWallet(t), newWallet(t)

	// the record names whoever signed, never a claimed address.
	_, err := n.Submit(ctx, uploadTx(t, mallory, "a", "a"))
	require.NoError(t, err)
	_, err = n.MineBlock(ctx)
	require.NoError(t, err)

	rec, err := n.GetFile(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, mallory.Address(), rec.Uploader)
	assert.NotEqual(t, alice.Address(), rec.Uploader)
}

func TestGrant_OnlyUploaderMayGrant(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1})
	alice, bob, carol := newWallet(t), newWallet(t), newWallet(t)

	_, err := n.Submit(ctx, uploadTx(t, alice, "a", "a"))
	require.NoError(t, err)
	_, err = n.MineBlock(ctx)
	require.NoError(t, err)

	ok, err := n.CanDownload(ctx, 0, alice.Address())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = n.CanDownload(ctx, 0, bob.Address())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = n.Submit(ctx, grantTx(t, carol, 0, bob.Address()))
	assert.ErrorIs(t, err, common.ErrTxRejected)
	assert.ErrorIs(t, err, ledger.ErrNotUploader)

	_, err = n.Submit(ctx, grantTx(t, alice, 5, bob.Address()))
	assert.ErrorIs(t, err, common.ErrTxRejected)
	assert.ErrorIs(t, err, common.ErrNotFound)

	id, err := n.Submit(ctx, grantTx(t, alice, 0, bob.Address()))
	require.NoError(t, err)
	_, err = n.MineBlock(ctx)
	require.NoError(t, err)

	st, err := n.TxStatus(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateFinal, st.State)

	ok, err = n.CanDownload(ctx, 0, bob.Address())
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = n.CanDownload(ctx, 0, carol.Address())
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = n.CanDownload(ctx, 9, bob.Address())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestFees_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	n := newNode(t, Options{Confirmations: 1, Fee: 10, InitialBalance: 25})
	w := newWallet(t)

	bal, err := n.Balance(ctx, w.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(25), bal)

	_, err = n.Submit(ctx, uploadTx(t, w, "1", "1"))
	require.NoError(t, err)
	_, err = n.Submit(ctx, uploadTx(t, w, "2", "2"))
	require.NoError(t, err)

	// two fees are reserved by pending transactions.
	_, err = n.Submit(ctx, uploadTx(t, w, "3", "3"))
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)

	_, err = n.MineBlock(ctx)
	require.NoError(t, err)

	bal, err = n.Balance(ctx, w.Address())
	require.NoError(t, err)
	assert.Equal(t, uint64(5), bal)

	_, err = n.Submit(ctx, uploadTx(t, w, "4", "4"))
	assert.ErrorIs(t, err, common.ErrInsufficientFunds)
}

func TestTxStatus_Unknown(t *testing.T) {
	n := newNode(t, Options{})
	_, err := n.TxStatus(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, err, ledger.ErrUnknownTx)
}

func TestGetFile_Missing(t *testing.T) {
	n := newNode(t, Options{})
	_, err := n.GetFile(context.Background(), 0)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestMineBlock_EmptyAdvancesHeight(t *testing.T) {
	n := newNode(t, Options{})
	for want := uint64(1); want <= 3; want++ {
		sum, err := n.MineBlock(context.Background())
		require.NoError(t, err)
		assert.Equal(t, BlockSummary{Height: want}, sum)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	n := newNode(t, Options{Confirmations: 1})
	ctx, cancel := context.WithCancel(context.Background())

	id, err := n.Submit(ctx, uploadTx(t, newWallet(t), "a", "a"))
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		n.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st, err := n.TxStatus(context.Background(), id)
		return err == nil && st.State == ledger.StateFinal
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	<-done
}
