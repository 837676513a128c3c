// Package session holds the state of one CLI session: the unlocked wallet,
// the server token and the last fetched file list. It is passed explicitly
// to every client operation.
package session

import (
	"sync"

	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

type Session struct {
	mu     sync.RWMutex
	signer wallet.Signer
	token  string
	files  []ledger.Record
}

func New() *Session {
	return &Session{}
}

// SetSigner installs the wallet and drops any state tied to a previous one.
func (s *Session) SetSigner(signer wallet.Signer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signer = signer
	s.token = ""
}

func (s *Session) Signer() wallet.Signer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer
}

// Address returns the wallet address, or "" when no wallet is loaded.
func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.signer == nil {
		return ""
	}
	return s.signer.Address()
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Connected reports whether a wallet is loaded and holds a server token.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signer != nil && s.token != ""
}

func (s *Session) SetFiles(files []ledger.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append([]ledger.Record(nil), files...)
}

func (s *Session) Files() []ledger.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.Record(nil), s.files...)
}

// File looks up index in the last fetched list.
func (s *Session) File(index uint64) (ledger.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, f := range s.files {
		if f.Index == index {
			return f, true
		}
	}
	return ledger.Record{}, false
}

// Disconnect forgets the token. The wallet stays loaded.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
