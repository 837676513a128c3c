// Package node implements the ledger node: it validates signed transactions,
// produces blocks, and turns transactions into records once they have
// enough confirmations.
package node

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/ledger/store"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

// Options tune block production and fees.
type Options struct {
	// Confirmations is the number of blocks, counting the including block,
	// after which a transaction is final. Values below 1 are treated as 1.
	Confirmations uint64
	// Fee is debited from the signer when a transaction is included.
	Fee uint64
	// InitialBalance is credited to an address the first time it is seen.
	InitialBalance uint64
}

// BlockSummary describes what one MineBlock call did.
type BlockSummary struct {
	Height    uint64
	Included  int
	Finalized int
	Rejected  int
}

var _ ledger.Service = (*Node)(nil)

type Node struct {
	store  *store.BoltStore
	opts   Options
	logger logging.Logger
	mu     sync.Mutex
}

func New(s *store.BoltStore, opts Options, l logging.Logger) *Node {
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	return &Node{store: s, opts: opts, logger: l.With("module", "ledger_node")}
}

func rejected(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrTxRejected, cause)
}

// Submit validates tx and queues it for the next block. The signer is derived
// from tx.PublicKey and must have produced tx.Signature. Resubmitting an
// identical transaction returns the same id.
func (n *Node) Submit(ctx context.Context, tx *ledger.Transaction) (string, error) {
	if err := tx.CheckShape(); err != nil {
		return "", rejected(err)
	}

	signer, err := wallet.VerifyWithPublicKey(tx.PublicKey, tx.SigningPayload(), tx.Signature)
	if err != nil {
		return "", rejected(err)
	}

	switch tx.Kind {
	case ledger.KindUpload:
		if _, err := hasher.Parse(tx.FileHash); err != nil {
			return "", rejected(err)
		}
	case ledger.KindGrant:
		if err := wallet.ValidateAddress(tx.Grantee); err != nil {
			return "", rejected(err)
		}
	}

	id := tx.ID()

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.store.Update(func(stx *store.Tx) error {
		if _, err := stx.GetTx(id); err == nil {
			return nil
		}

		if tx.Kind == ledger.KindGrant {
			if err := n.checkGrant(stx, tx.Index, signer); err != nil {
				return err
			}
		}

		if n.opts.Fee > 0 {
			available := n.balance(stx, signer) - min(n.balance(stx, signer), n.reserved(stx, signer))
			if available < n.opts.Fee {
				return fmt.Errorf("%w: %d available, fee %d", common.ErrInsufficientFunds, available, n.opts.Fee)
			}
		}

		return stx.PutTx(id, &store.StoredTx{Tx: *tx, Signer: signer, State: ledger.StatePending})
	})
	if err != nil {
		n.logger.Warn(ctx, "transaction refused", "txid", id, "signer", signer, "error", err.Error())
		return "", err
	}

	n.logger.Info(ctx, "transaction accepted", "txid", id, "kind", string(tx.Kind), "signer", signer)
	return id, nil
}

func (n *Node) checkGrant(stx *store.Tx, index uint64, signer string) error {
	rec, err := stx.GetRecord(index)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return rejected(fmt.Errorf("record %d: %w", index, common.ErrNotFound))
		}
		return err
	}
	if rec.Uploader != signer {
		return rejected(ledger.ErrNotUploader)
	}
	return nil
}

func (n *Node) balance(stx *store.Tx, address string) uint64 {
	if bal, ok := stx.Balance(address); ok {
		return bal
	}
	return n.opts.InitialBalance
}

// reserved sums the fees of signer's transactions that are pending and not
// yet included, since their fee has not been debited.
func (n *Node) reserved(stx *store.Tx, signer string) uint64 {
	var total uint64
	for _, id := range stx.PendingIDs() {
		st, err := stx.GetTx(id)
		if err != nil || st.Signer != signer || st.IncludedHeight != 0 {
			continue
		}
		total += n.opts.Fee
	}
	return total
}

// MineBlock advances the chain by one block: pending transactions are
// included (paying their fee) and those with enough confirmations become final.
func (n *Node) MineBlock(ctx context.Context) (BlockSummary, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	var sum BlockSummary
	err := n.store.Update(func(stx *store.Tx) error {
		sum = BlockSummary{Height: stx.Height() + 1}
		if err := stx.SetHeight(sum.Height); err != nil {
			return err
		}

		for _, id := range stx.PendingIDs() {
			st, err := stx.GetTx(id)
			if err != nil {
				return err
			}

			if st.IncludedHeight == 0 {
				bal := n.balance(stx, st.Signer)
				if bal < n.opts.Fee {
					st.State = ledger.StateRejected
					st.Reason = common.ErrInsufficientFunds.Error()
					sum.Rejected++
					if err := stx.PutTx(id, st); err != nil {
						return err
					}
					continue
				}
				if err := stx.SetBalance(st.Signer, bal-n.opts.Fee); err != nil {
					return err
				}
				st.IncludedHeight = sum.Height
				sum.Included++
			}

			if sum.Height-st.IncludedHeight+1 >= n.opts.Confirmations {
				if err := n.finalize(stx, st); err != nil {
					return err
				}
				if st.State == ledger.StateFinal {
					sum.Finalized++
				} else {
					sum.Rejected++
				}
			}

			if err := stx.PutTx(id, st); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return BlockSummary{}, fmt.Errorf("mine block: %w", err)
	}

	if sum.Included+sum.Finalized+sum.Rejected > 0 {
		n.logger.Info(ctx, "block mined", "height", sum.Height, "included", sum.Included,
			"finalized", sum.Finalized, "rejected", sum.Rejected)
	}
	return sum, nil
}

func (n *Node) finalize(stx *store.Tx, st *store.StoredTx) error {
	switch st.Tx.Kind {
	case ledger.KindUpload:
		index, err := stx.AppendRecord(&ledger.Record{
			Filename: st.Tx.Filename,
			FileHash: st.Tx.FileHash,
			Uploader: st.Signer,
		})
		if err != nil {
			return err
		}
		st.Index = index
	case ledger.KindGrant:
		if err := n.checkGrant(stx, st.Tx.Index, st.Signer); err != nil {
			st.State = ledger.StateRejected
			st.Reason = err.Error()
			return nil
		}
		if err := stx.PutGrant(st.Tx.Index, st.Tx.Grantee); err != nil {
			return err
		}
		st.Index = st.Tx.Index
	}
	st.State = ledger.StateFinal
	return nil
}

// TxStatus reports the state of a submitted transaction.
func (n *Node) TxStatus(ctx context.Context, txid string) (*ledger.TxStatus, error) {
	var status *ledger.TxStatus
	err := n.store.View(func(stx *store.Tx) error {
		st, err := stx.GetTx(txid)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("%w: %w %s", common.ErrNotFound, ledger.ErrUnknownTx, txid)
			}
			return err
		}

		status = &ledger.TxStatus{TxID: txid, State: st.State, Index: st.Index, Reason: st.Reason}
		if st.IncludedHeight > 0 && st.State != ledger.StateRejected {
			status.Confirmations = stx.Height() - st.IncludedHeight + 1
		}
		return nil
	})
	return status, err
}

// TotalFiles returns the number of final records.
func (n *Node) TotalFiles(ctx context.Context) (uint64, error) {
	var total uint64
	err := n.store.View(func(stx *store.Tx) error {
		total = stx.RecordCount()
		return nil
	})
	return total, err
}

// GetFile returns the record at index.
func (n *Node) GetFile(ctx context.Context, index uint64) (*ledger.Record, error) {
	var rec *ledger.Record
	err := n.store.View(func(stx *store.Tx) error {
		var err error
		rec, err = stx.GetRecord(index)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("record %d: %w", index, common.ErrNotFound)
		}
		return err
	})
	return rec, err
}

// CanDownload reports whether address uploaded the record at index or was
// granted access to it.
func (n *Node) CanDownload(ctx context.Context, index uint64, address string) (bool, error) {
	var ok bool
	err := n.store.View(func(stx *store.Tx) error {
		rec, err := stx.GetRecord(index)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("record %d: %w", index, common.ErrNotFound)
			}
			return err
		}
		ok = rec.Uploader == address || stx.HasGrant(index, address)
		return nil
	})
	return ok, err
}

// Balance returns the spendable balance of address.
func (n *Node) Balance(ctx context.Context, address string) (uint64, error) {
	var bal uint64
	err := n.store.View(func(stx *store.Tx) error {
		bal = n.balance(stx, address)
		return nil
	})
	return bal, err
}

// Run mines a block every interval until ctx is done.
func (n *Node) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	n.logger.Info(ctx, "block production started", "interval", interval.String(),
		"confirmations", n.opts.Confirmations)

	for {
		select {
		case <-ticker.C:
			if _, err := n.MineBlock(ctx); err != nil {
				n.logger.Error(ctx, "block production failed", "error", err.Error())
			}
		case <-ctx.Done():
			n.logger.Info(ctx, "block production stopped")
			return
		}
	}
}
