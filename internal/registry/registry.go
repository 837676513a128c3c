// Package registry is the client side of the ledger: it signs and submits
// upload and grant transactions, waits for finality and reads file records.
package registry

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/hasher"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/logging"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
	"github.com/google/uuid"
)

// FileRecord is a final ledger entry.
type FileRecord = ledger.Record

type Options struct {
	PollInterval    time.Duration
	FinalityTimeout time.Duration
}

type Client struct {
	ledger ledger.Service
	opts   Options
	logger logging.Logger
	now    func() time.Time
}

func New(l ledger.Service, opts Options, logger logging.Logger) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.FinalityTimeout <= 0 {
		opts.FinalityTimeout = time.Minute
	}
	return &Client{
		ledger: l,
		opts:   opts,
		logger: logger.With("module", "registry"),
		now:    time.Now,
	}
}

// chainErr keeps ErrNotFound visible and files everything else under
// ErrChainFailure.
func chainErr(err error) error {
	if errors.Is(err, common.ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", common.ErrChainFailure, err)
}

// Submit registers (filename, fp) on the ledger, signed by signer, and waits
// until the record is final. The ledger derives the uploader from the
// signature. Nothing is retried.
func (c *Client) Submit(ctx context.Context, filename string, fp hasher.Fingerprint, signer wallet.Signer) (FileRecord, error) {
	tx := &ledger.Transaction{
		Kind:     ledger.KindUpload,
		Filename: filename,
		FileHash: fp.String(),
	}

	st, err := c.send(ctx, tx, signer)
	if err != nil {
		return FileRecord{}, err
	}
	return c.Get(ctx, st.Index)
}

// Grant lets grantee download the record at index. Only the uploader's
// signature is accepted by the ledger.
func (c *Client) Grant(ctx context.Context, index uint64, grantee string, signer wallet.Signer) error {
	if err := wallet.ValidateAddress(grantee); err != nil {
		return err
	}
	_, err := c.send(ctx, &ledger.Transaction{Kind: ledger.KindGrant, Index: index, Grantee: grantee}, signer)
	return err
}

func (c *Client) send(ctx context.Context, tx *ledger.Transaction, signer wallet.Signer) (*ledger.TxStatus, error) {
	tx.PublicKey = signer.PublicKey()
	tx.Nonce = uuid.NewString()
	tx.Timestamp = c.now().Unix()

	sig, err := signer.Sign(ctx, tx.SigningPayload())
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	tx.Signature = sig

	txid, err := c.ledger.Submit(ctx, tx)
	if err != nil {
		return nil, chainErr(err)
	}
	c.logger.Info(ctx, "transaction submitted", "txid", txid, "kind", string(tx.Kind), "address", signer.Address())

	return c.awaitFinal(ctx, txid)
}

func (c *Client) awaitFinal(ctx context.Context, txid string) (*ledger.TxStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.opts.FinalityTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	for {
		st, err := c.ledger.TxStatus(waitCtx, txid)
		if err != nil && waitCtx.Err() == nil {
			return nil, chainErr(err)
		}

		if err == nil {
			switch st.State {
			case ledger.StateFinal:
				c.logger.Info(ctx, "transaction final", "txid", txid, "confirmations", st.Confirmations)
				return st, nil
			case ledger.StateRejected:
				if st.Reason == common.ErrInsufficientFunds.Error() {
					return nil, fmt.Errorf("%w: %w", common.ErrChainFailure, common.ErrInsufficientFunds)
				}
				return nil, fmt.Errorf("%w: %w: %s", common.ErrChainFailure, common.ErrTxRejected, st.Reason)
			}
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %w", common.ErrChainFailure, ctx.Err())
			}
			c.logger.Warn(ctx, "transaction not final in time", "txid", txid, "timeout", c.opts.FinalityTimeout.String())
			return nil, fmt.Errorf("%w: %w: tx %s", common.ErrChainFailure, common.ErrFinalityTimeout, txid)
		case <-ticker.C:
		}
	}
}

// Records yields every final record in ascending index order. Each call
// reads the ledger afresh.
func (c *Client) Records(ctx context.Context) iter.Seq2[FileRecord, error] {
	return func(yield func(FileRecord, error) bool) {
		total, err := c.ledger.TotalFiles(ctx)
		if err != nil {
			yield(FileRecord{}, chainErr(err))
			return
		}
		for i := uint64(0); i < total; i++ {
			rec, err := c.ledger.GetFile(ctx, i)
			if err != nil {
				yield(FileRecord{}, chainErr(err))
				return
			}
			if !yield(*rec, nil) {
				return
			}
		}
	}
}

// List collects Records.
func (c *Client) List(ctx context.Context) ([]FileRecord, error) {
	var out []FileRecord
	for rec, err := range c.Records(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, index uint64) (FileRecord, error) {
	rec, err := c.ledger.GetFile(ctx, index)
	if err != nil {
		return FileRecord{}, chainErr(err)
	}
	return *rec, nil
}

func (c *Client) Total(ctx context.Context) (uint64, error) {
	n, err := c.ledger.TotalFiles(ctx)
	if err != nil {
		return 0, chainErr(err)
	}
	return n, nil
}

// CanDownload reports whether address uploaded, or was granted, the record.
func (c *Client) CanDownload(ctx context.Context, index uint64, address string) (bool, error) {
	ok, err := c.ledger.CanDownload(ctx, index, address)
	if err != nil {
		return false, chainErr(err)
	}
	return ok, nil
}

func (c *Client) Balance(ctx context.Context, address string) (uint64, error) {
	bal, err := c.ledger.Balance(ctx, address)
	if err != nil {
		return 0, chainErr(err)
	}
	return bal, nil
}
