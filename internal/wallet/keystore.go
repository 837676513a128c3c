package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/cryptox"
)

const keyfileVersion = 1

var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted keyfile")

// keyfile is the on-disk form of an encrypted wallet.
type keyfile struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Save encrypts w's private key with passphrase and writes it to path with
// 0600 permissions. An existing file is replaced atomically.
func Save(path string, w *Wallet, passphrase []byte) error {
	salt, err := cryptox.NewSalt()
	if err != nil {
		return err
	}
	key := cryptox.DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	secret := w.PrivateKeyBytes()
	defer common.WipeByteArray(secret)

	ct, nonce, err := cryptox.Seal(secret, key)
	if err != nil {
		return fmt.Errorf("seal key: %w", err)
	}

	data, err := json.MarshalIndent(keyfile{
		Version:    keyfileVersion,
		Address:    w.Address(),
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ct,
	}, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create keyfile dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write keyfile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write keyfile: %w", err)
	}
	return nil
}

// Load decrypts the keyfile at path.
func Load(path string, passphrase []byte) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keyfile: %w", err)
	}

	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse keyfile: %w", err)
	}
	if kf.Version != keyfileVersion {
		return nil, fmt.Errorf("unsupported keyfile version %d", kf.Version)
	}

	key := cryptox.DeriveKey(passphrase, kf.Salt)
	defer common.WipeByteArray(key)

	secret, err := cryptox.Open(kf.Ciphertext, kf.Nonce, key)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	defer common.WipeByteArray(secret)

	w, err := FromPrivateKeyBytes(secret)
	if err != nil {
		return nil, err
	}
	if w.Address() != kf.Address {
		return nil, ErrWrongPassphrase
	}
	return w, nil
}

// PeekAddress returns the address recorded in a keyfile without decrypting it.
func PeekAddress(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read keyfile: %w", err)
	}
	var kf keyfile
	if err := json.Unmarshal(data, &kf); err != nil {
		return "", fmt.Errorf("parse keyfile: %w", err)
	}
	return kf.Address, nil
}
