package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/netx"
)

var ErrUnavailable = errors.New("server unavailable")

// classify wraps an error response into the common taxonomy.
func classify(e *netx.HTTPError) error {
	var sentinel error
	switch e.StatusCode {
	case http.StatusBadRequest:
		switch e.Detail {
		case "invalid address":
			sentinel = common.ErrInvalidAddress
		case "file hash mismatch":
			sentinel = common.ErrStorageFailure
		default:
			sentinel = common.ErrPreconditionFailed
		}
	case http.StatusUnauthorized:
		if e.Detail == "authentication failed" {
			sentinel = common.ErrAuthFailure
		} else {
			sentinel = common.ErrUnauthorized
		}
	case http.StatusNotFound:
		sentinel = common.ErrNotFound
	case http.StatusBadGateway:
		sentinel = common.ErrChainFailure
	case http.StatusRequestEntityTooLarge, http.StatusInsufficientStorage:
		sentinel = common.ErrStorageFailure
	default:
		if e.StatusCode >= http.StatusInternalServerError {
			sentinel = common.ErrStorageFailure
		} else {
			return e
		}
	}
	return fmt.Errorf("%w: %w", sentinel, e)
}
