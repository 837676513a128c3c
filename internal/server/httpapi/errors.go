package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/ledger"
	"github.com/dmitrijs2005/hashdrive/internal/server/services"
	"github.com/dmitrijs2005/hashdrive/internal/server/storage"
)

type errorResponse struct {
	Detail string `json:"detail"`
}

// statusFor maps the error taxonomy to an HTTP status and a client-facing
// detail. Internal causes never reach the detail.
func statusFor(err error) (int, string) {
	// Authorization outcomes win over any validation cause they wrap.
	switch {
	case errors.Is(err, common.ErrAuthFailure):
		return http.StatusUnauthorized, "authentication failed"
	case errors.Is(err, services.ErrMissingCredential):
		return http.StatusUnauthorized, "wallet address missing"
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, common.ErrInvalidAddress):
		return http.StatusBadRequest, "invalid address"
	case errors.Is(err, common.ErrInvalidFingerprint):
		return http.StatusBadRequest, "invalid fingerprint"
	case errors.Is(err, services.ErrHashMismatch):
		return http.StatusBadRequest, "file hash mismatch"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, storage.ErrStoreFull):
		return http.StatusInsufficientStorage, "storage full"
	case errors.Is(err, common.ErrChainFailure), errors.Is(err, ledger.ErrUnavailable):
		return http.StatusBadGateway, "ledger unavailable"
	case errors.Is(err, common.ErrStorageFailure):
		return http.StatusInternalServerError, "storage failure"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, detail := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err.Error())
	}
	writeJSON(w, code, errorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
