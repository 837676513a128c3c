package rpc

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"google.golang.org/protobuf/types/known/structpb"
)

// Messages travel as google.protobuf.Struct so the service needs no
// generated code. Byte fields are hex (public key) or base64 (signature).

func txToStruct(tx *ledger.Transaction) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"kind":      string(tx.Kind),
		"filename":  tx.Filename,
		"filehash":  tx.FileHash,
		"index":     tx.Index,
		"grantee":   tx.Grantee,
		"pubkey":    hex.EncodeToString(tx.PublicKey),
		"nonce":     tx.Nonce,
		"timestamp": tx.Timestamp,
		"signature": base64.StdEncoding.EncodeToString(tx.Signature),
	})
}

func txFromStruct(s *structpb.Struct) (*ledger.Transaction, error) {
	f := s.GetFields()

	index, err := uintField(f, "index")
	if err != nil {
		return nil, err
	}
	ts := f["timestamp"].GetNumberValue()
	if ts != math.Trunc(ts) {
		return nil, fmt.Errorf("%w: timestamp is not an integer", ledger.ErrMalformedTx)
	}
	pub, err := hex.DecodeString(f["pubkey"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: pubkey: %w", ledger.ErrMalformedTx, err)
	}
	sig, err := base64.StdEncoding.DecodeString(f["signature"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("%w: signature: %w", ledger.ErrMalformedTx, err)
	}

	return &ledger.Transaction{
		Kind:      ledger.TxKind(f["kind"].GetStringValue()),
		Filename:  f["filename"].GetStringValue(),
		FileHash:  f["filehash"].GetStringValue(),
		Index:     index,
		Grantee:   f["grantee"].GetStringValue(),
		PublicKey: pub,
		Nonce:     f["nonce"].GetStringValue(),
		Timestamp: int64(ts),
		Signature: sig,
	}, nil
}

func statusToStruct(st *ledger.TxStatus) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"txid":          st.TxID,
		"state":         string(st.State),
		"confirmations": st.Confirmations,
		"index":         st.Index,
		"reason":        st.Reason,
	})
}

func statusFromStruct(s *structpb.Struct) (*ledger.TxStatus, error) {
	f := s.GetFields()
	conf, err := uintField(f, "confirmations")
	if err != nil {
		return nil, err
	}
	index, err := uintField(f, "index")
	if err != nil {
		return nil, err
	}
	return &ledger.TxStatus{
		TxID:          f["txid"].GetStringValue(),
		State:         ledger.TxState(f["state"].GetStringValue()),
		Confirmations: conf,
		Index:         index,
		Reason:        f["reason"].GetStringValue(),
	}, nil
}

func recordToStruct(r *ledger.Record) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"index":    r.Index,
		"filename": r.Filename,
		"filehash": r.FileHash,
		"uploader": r.Uploader,
	})
}

func recordFromStruct(s *structpb.Struct) (*ledger.Record, error) {
	f := s.GetFields()
	index, err := uintField(f, "index")
	if err != nil {
		return nil, err
	}
	return &ledger.Record{
		Index:    index,
		Filename: f["filename"].GetStringValue(),
		FileHash: f["filehash"].GetStringValue(),
		Uploader: f["uploader"].GetStringValue(),
	}, nil
}

func accessToStruct(index uint64, address string) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{"index": index, "address": address})
}

func accessFromStruct(s *structpb.Struct) (uint64, string, error) {
	f := s.GetFields()
	index, err := uintField(f, "index")
	if err != nil {
		return 0, "", err
	}
	return index, f["address"].GetStringValue(), nil
}

// uintField reads a non-negative integral number; a missing field is zero.
func uintField(f map[string]*structpb.Value, key string) (uint64, error) {
	v := f[key].GetNumberValue()
	if v < 0 || v != math.Trunc(v) || v > 1<<53 {
		return 0, fmt.Errorf("%w: %s is not a valid index", ledger.ErrMalformedTx, key)
	}
	return uint64(v), nil
}
