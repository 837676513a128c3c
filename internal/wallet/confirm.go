package wallet

import (
	"context"
	"fmt"
)

// ConfirmFunc asks the key holder to approve signing message. It returns nil
// to approve and an error to refuse.
type ConfirmFunc func(ctx context.Context, address string, message []byte) error

// ConfirmingSigner gates every signature behind Confirm. Confirm runs on its
// own goroutine so that a holder who never answers cannot outlive ctx; it
// must itself stop waiting once ctx is done.
type ConfirmingSigner struct {
	Signer
	Confirm ConfirmFunc
}

func (s ConfirmingSigner) Sign(ctx context.Context, message []byte) ([]byte, error) {
	done := make(chan error, 1)
	go func() {
		done <- s.Confirm(ctx, s.Address(), message)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrSignCancelled, ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSignCancelled, err)
		}
	}
	return s.Signer.Sign(ctx, message)
}
