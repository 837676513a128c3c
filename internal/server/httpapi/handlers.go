package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/hashdrive/internal/common"
	"github.com/dmitrijs2005/hashdrive/internal/registry"
	"github.com/dmitrijs2005/hashdrive/internal/server/services"
	"github.com/dmitrijs2005/hashdrive/internal/server/storage"
)

// multipartOverhead is the slack allowed above MaxUploadSize for multipart
// framing and the other form fields.
const multipartOverhead = 1 << 20

type nonceResponse struct {
	Nonce string `json:"nonce"`
}

type verifyRequest struct {
	Address   string `json:"address"`
	Signature string `json:"signature"`
}

type verifyResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

type uploadResponse struct {
	Filename string `json:"filename"`
	FileHash string `json:"file_hash"`
}

type filesResponse struct {
	Files []registry.FileRecord `json:"files"`
}

type totalResponse struct {
	Total uint64 `json:"total"`
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	nonce, err := s.auth.IssueNonce(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonceResponse{Nonce: nonce})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed request"})
		return
	}

	token, err := s.auth.Verify(r.Context(), req.Address, req.Signature)
	if err != nil {
		code, detail := statusFor(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "verify failed", "error", err.Error())
		}
		writeJSON(w, code, verifyResponse{Success: false, Detail: detail})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Success: true, Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		s.writeError(w, r, common.ErrUnauthorized)
		return
	}
	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Success: true})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.writeError(w, r, storage.ErrTooLarge)
		case errors.Is(err, http.ErrMissingFile):
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "file is required"})
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "malformed multipart body"})
		}
		return
	}
	defer file.Close()

	fp, err := s.storage.Store(r.Context(), file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Filename: filepath.Base(header.Filename),
		FileHash: fp.String(),
	})
}

func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.registry.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if files == nil {
		files = []registry.FileRecord{}
	}
	writeJSON(w, http.StatusOK, filesResponse{Files: files})
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	n, err := s.registry.Total(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, totalResponse{Total: n})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid index"})
		return
	}

	blob, err := s.storage.Retrieve(r.Context(), index, credential(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBlob(w, blob)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	blob, err := s.storage.RetrieveByFingerprint(r.Context(), r.PathValue("fingerprint"), credential(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeBlob(w, blob)
}

func writeBlob(w http.ResponseWriter, blob *services.Blob) {
	h := w.Header()
	h.Set("Content-Type", "application/octet-stream")
	h.Set("Content-Disposition", contentDisposition(blob.Filename))
	h.Set(common.FileHashHeaderName, blob.Fingerprint.String())
	h.Set("Content-Length", fmt.Sprint(len(blob.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob.Data)
}

// contentDisposition quotes plain ASCII names and falls back to RFC 2231
// encoding for anything else.
func contentDisposition(name string) string {
	plain := true
	for _, c := range name {
		if c < 0x20 || c > 0x7e || c == '"' || c == '\\' {
			plain = false
			break
		}
	}
	if plain {
		return `attachment; filename="` + name + `"`
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

func credential(r *http.Request) services.Credential {
	return services.Credential{
		Token:   bearerToken(r),
		Address: strings.TrimSpace(r.Header.Get(common.WalletHeaderName)),
	}
}

func bearerToken(r *http.Request) string {
	v := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(v, common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(v, common.BearerPrefix))
}
