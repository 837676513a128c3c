package session

import (
	"testing"

	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	s := New()
	assert.Empty(t, s.Address())
	assert.False(t, s.Connected())

	w, err := wallet.Generate()
	require.NoError(t, err)

	s.SetSigner(w)
	assert.Equal(t, w.Address(), s.Address())
	assert.False(t, s.Connected())

	s.SetToken("tok")
	assert.True(t, s.Connected())
	assert.Equal(t, "tok", s.Token())

	s.Disconnect()
	assert.False(t, s.Connected())
	assert.Equal(t, w.Address(), s.Address())

	s.SetToken("tok")
	other, err := wallet.Generate()
	require.NoError(t, err)
	s.SetSigner(other)
	assert.Empty(t, s.Token(), "switching wallets drops the token")
}

func TestSession_Files(t *testing.T) {
	s := New()
	_, ok := s.File(0)
	assert.False(t, ok)

	files := []ledger.Record{{Index: 0, Filename: "a"}, {Index: 1, Filename: "b"}}
	s.SetFiles(files)
	files[0].Filename = "mutated"

	rec, ok := s.File(0)
	require.True(t, ok)
	assert.Equal(t, "a", rec.Filename)

	_, ok = s.File(5)
	assert.False(t, ok)

	got := s.Files()
	got[1].Filename = "changed"
	rec, _ = s.File(1)
	assert.Equal(t, "b", rec.Filename)
}
