// Package store persists ledger state in a bbolt database: the chain height,
// submitted transactions, the append-only record list, account balances and
// download grants.
package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"go.etcd.io/bbolt"
)

var (
	bucketMeta     = []byte("meta")
	bucketTxs      = []byte("txs")
	bucketPending  = []byte("pending")
	bucketRecords  = []byte("records")
	bucketAccounts = []byte("accounts")
	bucketGrants   = []byte("grants")

	keyHeight = []byte("height")
)

var ErrNotFound = errors.New("store: not found")

// StoredTx is a transaction plus the node's bookkeeping for it.
type StoredTx struct {
	Tx             ledger.Transaction
	Signer         string
	State          ledger.TxState
	IncludedHeight uint64
	Index          uint64
	Reason         string
}

// BoltStore wraps a bbolt database holding the ledger.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens or creates the database at path, creating parent directories.
func Open(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("store: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketTxs, bucketPending, bucketRecords, bucketAccounts, bucketGrants} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error { return s.db.Close() }

// View runs fn in a read-only transaction.
func (s *BoltStore) View(fn func(tx *Tx) error) error {
	return s.db.View(func(btx *bbolt.Tx) error { return fn(&Tx{btx: btx}) })
}

// Update runs fn in a read-write transaction; every change made by fn is
// committed atomically or not at all.
func (s *BoltStore) Update(fn func(tx *Tx) error) error {
	return s.db.Update(func(btx *bbolt.Tx) error { return fn(&Tx{btx: btx}) })
}

// Tx exposes typed ledger operations over a bbolt transaction.
type Tx struct {
	btx *bbolt.Tx
}

func (t *Tx) Height() uint64 {
	v := t.btx.Bucket(bucketMeta).Get(keyHeight)
	if v == nil {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

func (t *Tx) SetHeight(h uint64) error {
	return t.btx.Bucket(bucketMeta).Put(keyHeight, u64Key(h))
}

// PutTx stores st and tracks it as pending until its state leaves pending.
func (t *Tx) PutTx(id string, st *StoredTx) error {
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("encode tx: %w", err)
	}
	if err := t.btx.Bucket(bucketTxs).Put([]byte(id), data); err != nil {
		return fmt.Errorf("put tx: %w", err)
	}

	pending := t.btx.Bucket(bucketPending)
	if st.State == ledger.StatePending {
		if pending.Get([]byte(id)) == nil {
			seq, err := pending.NextSequence()
			if err != nil {
				return err
			}
			return pending.Put([]byte(id), u64Key(seq))
		}
		return nil
	}
	return pending.Delete([]byte(id))
}

func (t *Tx) GetTx(id string) (*StoredTx, error) {
	data := t.btx.Bucket(bucketTxs).Get([]byte(id))
	if data == nil {
		return nil, ErrNotFound
	}
	var st StoredTx
	if err := decodeGob(data, &st); err != nil {
		return nil, fmt.Errorf("decode tx: %w", err)
	}
	return &st, nil
}

// PendingIDs lists pending transaction ids in submission order.
func (t *Tx) PendingIDs() []string {
	type entry struct {
		id  string
		seq uint64
	}
	var entries []entry
	_ = t.btx.Bucket(bucketPending).ForEach(func(k, v []byte) error {
		entries = append(entries, entry{id: string(k), seq: binary.BigEndian.Uint64(v)})
		return nil
	})
	// bbolt iterates by key; order by sequence for FIFO inclusion.
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.id
	}
	return ids
}

// RecordCount is the number of final records, which is also the next index.
func (t *Tx) RecordCount() uint64 {
	k, _ := t.btx.Bucket(bucketRecords).Cursor().Last()
	if k == nil {
		return 0
	}
	return binary.BigEndian.Uint64(k) + 1
}

// AppendRecord assigns the next index to r and stores it.
func (t *Tx) AppendRecord(r *ledger.Record) (uint64, error) {
	b := t.btx.Bucket(bucketRecords)
	index := t.RecordCount()
	r.Index = index

	data, err := encodeGob(r)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}
	if err := b.Put(u64Key(index), data); err != nil {
		return 0, fmt.Errorf("put record: %w", err)
	}
	return index, nil
}

func (t *Tx) GetRecord(index uint64) (*ledger.Record, error) {
	data := t.btx.Bucket(bucketRecords).Get(u64Key(index))
	if data == nil {
		return nil, ErrNotFound
	}
	var r ledger.Record
	if err := decodeGob(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &r, nil
}

// Balance returns the balance of address and whether the account exists.
func (t *Tx) Balance(address string) (uint64, bool) {
	v := t.btx.Bucket(bucketAccounts).Get([]byte(address))
	if v == nil {
		return 0, false
	}
	return binary.BigEndian.Uint64(v), true
}

func (t *Tx) SetBalance(address string, amount uint64) error {
	return t.btx.Bucket(bucketAccounts).Put([]byte(address), u64Key(amount))
}

func (t *Tx) PutGrant(index uint64, address string) error {
	return t.btx.Bucket(bucketGrants).Put(grantKey(index, address), []byte{1})
}

func (t *Tx) HasGrant(index uint64, address string) bool {
	return t.btx.Bucket(bucketGrants).Get(grantKey(index, address)) != nil
}

// u64Key encodes v big-endian so keys sort numerically.
func u64Key(v uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, v)
	return k
}

func grantKey(index uint64, address string) []byte {
	return append(u64Key(index), []byte(address)...)
}

func encodeGob(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeGob(data []byte, v any) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}
