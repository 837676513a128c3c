// Package ledger defines the append-only file registry shared by the ledger
// node and its clients: signed transactions, their lifecycle and the records
// they produce once final.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// TxKind selects what a transaction does once final.
type TxKind string

const (
	// KindUpload appends a file record.
	KindUpload TxKind = "upload"
	// KindGrant lets another address download a record. Only the record's
	// uploader may grant.
	KindGrant TxKind = "grant"
)

// TxState is the lifecycle of a submitted transaction.
type TxState string

const (
	StatePending  TxState = "pending"
	StateFinal    TxState = "final"
	StateRejected TxState = "rejected"
)

var (
	ErrMalformedTx = errors.New("malformed transaction")
	ErrUnknownTx   = errors.New("unknown transaction")
	ErrNotUploader = errors.New("only the uploader may grant access")
	ErrUnavailable = errors.New("ledger unavailable")
)

const payloadDomain = "hashdrive-ledger/v1"

// Transaction is a state change signed by a wallet. The signer's address is
// derived from PublicKey by the node; there is no uploader field to spoof.
type Transaction struct {
	Kind      TxKind
	Filename  string
	FileHash  string
	Index     uint64
	Grantee   string
	PublicKey []byte
	Nonce     string
	Timestamp int64
	Signature []byte
}

// SigningPayload is the canonical byte string covered by Signature.
func (t *Transaction) SigningPayload() []byte {
	var b strings.Builder
	b.WriteString(payloadDomain)
	b.WriteString("\nkind=" + string(t.Kind))
	switch t.Kind {
	case KindUpload:
		b.WriteString("\nfilename=" + strconv.Quote(t.Filename))
		b.WriteString("\nfilehash=" + t.FileHash)
	case KindGrant:
		b.WriteString("\nindex=" + strconv.FormatUint(t.Index, 10))
		b.WriteString("\ngrantee=" + t.Grantee)
	}
	b.WriteString("\npubkey=" + hex.EncodeToString(t.PublicKey))
	b.WriteString("\nnonce=" + t.Nonce)
	b.WriteString("\ntimestamp=" + strconv.FormatInt(t.Timestamp, 10))
	return []byte(b.String())
}

// ID is the transaction hash: SHA-256 over the payload and the signature.
func (t *Transaction) ID() string {
	h := sha256.New()
	h.Write(t.SigningPayload())
	h.Write(t.Signature)
	return hex.EncodeToString(h.Sum(nil))
}

// CheckShape validates the fields a node can check without state.
func (t *Transaction) CheckShape() error {
	switch {
	case len(t.PublicKey) == 0:
		return fmt.Errorf("%w: missing public key", ErrMalformedTx)
	case len(t.Signature) == 0:
		return fmt.Errorf("%w: missing signature", ErrMalformedTx)
	case t.Nonce == "":
		return fmt.Errorf("%w: missing nonce", ErrMalformedTx)
	}

	switch t.Kind {
	case KindUpload:
		if t.Filename == "" {
			return fmt.Errorf("%w: empty filename", ErrMalformedTx)
		}
		if t.FileHash == "" {
			return fmt.Errorf("%w: empty file hash", ErrMalformedTx)
		}
	case KindGrant:
		if t.Grantee == "" {
			return fmt.Errorf("%w: empty grantee", ErrMalformedTx)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrMalformedTx, t.Kind)
	}
	return nil
}

// Record is an immutable registry entry created by a final upload.
type Record struct {
	Index    uint64 `json:"index"`
	Filename string `json:"filename"`
	FileHash string `json:"filehash"`
	Uploader string `json:"uploader"`
}

// TxStatus reports where a transaction is in its lifecycle. Index is only
// meaningful for final uploads.
type TxStatus struct {
	TxID          string
	State         TxState
	Confirmations uint64
	Index         uint64
	Reason        string
}

// Service is the ledger API. The node implements it in-process and the rpc
// client implements it over the network.
type Service interface {
	Submit(ctx context.Context, tx *Transaction) (string, error)
	TxStatus(ctx context.Context, txid string) (*TxStatus, error)
	TotalFiles(ctx context.Context) (uint64, error)
	GetFile(ctx context.Context, index uint64) (*Record, error)
	CanDownload(ctx context.Context, index uint64, address string) (bool, error)
	Balance(ctx context.Context, address string) (uint64, error)
}
