// Package common defines sentinel errors and constants shared by the
// HashDrive server, ledger node and client. Callers match errors with
// errors.Is; lower layers wrap them with fmt.Errorf("...: %w", err).
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Workflow taxonomy.
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrAuthFailure        = errors.New("authentication failed")
	ErrStorageFailure     = errors.New("storage failure")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = ErrorNotFound
	ErrChainFailure       = errors.New("chain failure")

	// Chain failure causes. They are always reported wrapped in ErrChainFailure.
	ErrTxRejected        = errors.New("transaction rejected")
	ErrFinalityTimeout   = errors.New("timed out waiting for finality")
	ErrInsufficientFunds = errors.New("insufficient funds")

	// Validation errors.
	ErrInvalidAddress     = errors.New("invalid address")
	ErrInvalidFingerprint = errors.New("invalid fingerprint")

	// Token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
