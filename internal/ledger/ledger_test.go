package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func uploadTx() *Transaction {
	return &Transaction{
		Kind:      KindUpload,
		Filename:  "report.pdf",
		FileHash:  "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		PublicKey: []byte{2, 1, 2, 3},
		Nonce:     "n-1",
		Timestamp: 1700000000,
		Signature: []byte{9, 9},
	}
}

func TestSigningPayload_CoversFields(t *testing.T) {
	a := uploadTx()
	b := uploadTx()
	assert.Equal(t, a.SigningPayload(), b.SigningPayload())

	b.Filename = "other.pdf"
	assert.NotEqual(t, a.SigningPayload(), b.SigningPayload())

	c := uploadTx()
	c.Nonce = "n-2"
	assert.NotEqual(t, a.SigningPayload(), c.SigningPayload())
}

func TestSigningPayload_FilenameCannotInjectFields(t *testing.T) {
	a := uploadTx()
	a.Filename = "x\nfilehash=deadbeef"
	assert.NotContains(t, string(a.SigningPayload()), "\nfilehash=deadbeef\n")
}

func TestID_DependsOnSignature(t *testing.T) {
	a := uploadTx()
	b := uploadTx()
	assert.Equal(t, a.ID(), b.ID())
	b.Signature = []byte{1}
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, a.ID(), 64)
}

func TestCheckShape(t *testing.T) {
	assert.NoError(t, uploadTx().CheckShape())

	cases := map[string]func(*Transaction){
		"no pubkey":    func(tx *Transaction) { tx.PublicKey = nil },
		"no signature": func(tx *Transaction) { tx.Signature = nil },
		"no nonce":     func(tx *Transaction) { tx.Nonce = "" },
		"no filename":  func(tx *Transaction) { tx.Filename = "" },
		"no filehash":  func(tx *Transaction) { tx.FileHash = "" },
		"bad kind":     func(tx *Transaction) { tx.Kind = "burn" },
		"grant no grantee": func(tx *Transaction) {
			tx.Kind = KindGrant
			tx.Grantee = ""
		},
	}
	for name, mutate := range cases {
		tx := uploadTx()
		mutate(tx)
		assert.ErrorIs(t, tx.CheckShape(), ErrMalformedTx, name)
	}
}
