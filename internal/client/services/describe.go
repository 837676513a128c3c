package services

import (
	"context"
	"errors"
	"strings"

	"github.com/dmitrijs2005/hashdrive/internal/client/api"
	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/wallet"
)

// Describe turns an orchestrator error into the message shown to the user.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, wallet.ErrSignCancelled):
		return "Signing was declined or timed out."
	case errors.Is(err, common.ErrPreconditionFailed):
		return "Cannot proceed: " + cause(err, common.ErrPreconditionFailed) + "."
	case errors.Is(err, common.ErrInvalidAddress):
		return "That is not a valid wallet address."
	case errors.Is(err, common.ErrAuthFailure):
		return "Authentication failed. Connect again to get a new challenge."
	case errors.Is(err, common.ErrUnauthorized):
		return "Not authorized to download this file. Connect your wallet or ask the uploader for a grant."
	case errors.Is(err, common.ErrNotFound):
		return "No such file."
	case errors.Is(err, common.ErrChainFailure) && errors.Is(err, common.ErrFinalityTimeout):
		return "The ledger did not confirm the transaction in time. The file is stored but was not registered."
	case errors.Is(err, common.ErrChainFailure) && errors.Is(err, common.ErrInsufficientFunds):
		return "The wallet cannot pay the ledger fee."
	case errors.Is(err, common.ErrChainFailure) && errors.Is(err, ledger.ErrNotUploader):
		return "Only the uploader can grant access to a file."
	case errors.Is(err, common.ErrChainFailure) && errors.Is(err, common.ErrTxRejected):
		return "The ledger rejected the transaction."
	case errors.Is(err, common.ErrChainFailure):
		return "The ledger is unavailable. Try again later."
	case errors.Is(err, common.ErrStorageFailure):
		return "The file could not be stored or failed its integrity check."
	case errors.Is(err, api.ErrUnavailable):
		return "The server is unreachable."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Cancelled."
	default:
		return "Unexpected error: " + err.Error()
	}
}

// cause strips the sentinel prefix from a wrapped message.
func cause(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
