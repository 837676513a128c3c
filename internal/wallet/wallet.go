// Package wallet implements the wallet capability: a secp256k1 key that
// yields an address and signs messages with the Bitcoin Signed Message
// scheme. Verification helpers are used by the server and the ledger node.
package wallet

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	bsm "github.com/bsv-blockchain/go-sdk/compat/bsm"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/dmitrijs2005/hashdrive/internal/common"
)

var (
	ErrBadSignature  = errors.New("signature does not match address")
	ErrInvalidKey    = errors.New("invalid private key")
	ErrSignCancelled = errors.New("signing cancelled")
)

// Signer is the capability the client holds. Sign may suspend for as long as
// the holder needs (e.g. waiting for a user to confirm) and must return when
// ctx is done.
type Signer interface {
	Address() string
	PublicKey() []byte
	Sign(ctx context.Context, message []byte) ([]byte, error)
}

// Wallet is a Signer backed by an in-memory private key.
type Wallet struct {
	priv    *ec.PrivateKey
	address string
}

var _ Signer = (*Wallet)(nil)

// Generate creates a wallet with a fresh random key.
func Generate() (*Wallet, error) {
	priv, err := ec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromPrivateKey(priv)
}

// FromPrivateKeyBytes restores a wallet from a 32-byte scalar.
func FromPrivateKeyBytes(b []byte) (*Wallet, error) {
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidKey, len(b))
	}
	priv, _ := ec.PrivateKeyFromBytes(b)
	if priv == nil {
		return nil, ErrInvalidKey
	}
	return fromPrivateKey(priv)
}

func fromPrivateKey(priv *ec.PrivateKey) (*Wallet, error) {
	addr, err := script.NewAddressFromPublicKey(priv.PubKey(), true)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return &Wallet{priv: priv, address: addr.AddressString}, nil
}

func (w *Wallet) Address() string { return w.address }

// PublicKey returns the 33-byte compressed public key.
func (w *Wallet) PublicKey() []byte { return w.priv.PubKey().Compressed() }

// PrivateKeyBytes exposes the raw scalar for the keystore. Callers wipe it.
func (w *Wallet) PrivateKeyBytes() []byte { return w.priv.Serialize() }

// Sign produces a compact Bitcoin Signed Message signature over message.
func (w *Wallet) Sign(ctx context.Context, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignCancelled, err)
	}
	sig, err := bsm.SignMessage(w.priv, message)
	if err != nil {
		return nil, fmt.Errorf("sign message: %w", err)
	}
	return sig, nil
}

// ValidateAddress checks that s decodes as a P2PKH address.
func ValidateAddress(s string) error {
	if s == "" {
		return common.ErrInvalidAddress
	}
	if _, err := script.NewAddressFromString(s); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidAddress, err)
	}
	return nil
}

// AddressFromPublicKey derives the mainnet address of a compressed or
// uncompressed public key.
func AddressFromPublicKey(pub []byte) (string, error) {
	pk, err := ec.PublicKeyFromBytes(pub)
	if err != nil {
		return "", fmt.Errorf("parse public key: %w", err)
	}
	addr, err := script.NewAddressFromPublicKey(pk, true)
	if err != nil {
		return "", fmt.Errorf("derive address: %w", err)
	}
	return addr.AddressString, nil
}

// VerifyMessage checks that sig is a signature over message by the key
// behind address.
func VerifyMessage(address string, message, sig []byte) error {
	if err := bsm.VerifyMessage(address, sig, message); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return nil
}

// VerifyWithPublicKey checks sig against pub and returns the signer's address.
func VerifyWithPublicKey(pub, message, sig []byte) (string, error) {
	address, err := AddressFromPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	if err := VerifyMessage(address, message, sig); err != nil {
		return "", err
	}
	return address, nil
}

// EncodeSignature renders a signature for JSON transport.
func EncodeSignature(sig []byte) string {
	return base64.StdEncoding.EncodeToString(sig)
}

// DecodeSignature parses the output of EncodeSignature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadSignature, err)
	}
	return sig, nil
}
