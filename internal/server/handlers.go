package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"docstore/internal/models"
	"docstore/internal/store"
	"docstore/internal/tiered"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	ErrorCode int    `json:"error_code"`
}

// StatusResponse reports row counts per location.
type StatusResponse struct {
	Offloading bool                `json:"offloading"`
	Inline     store.LocationStats `json:"inline"`
	Offloaded  store.LocationStats `json:"offloaded"`
}

const locationHeader = "X-Docstore-Location"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.blobs.Files().Stats(r.Context())
	if err != nil {
		s.writeErrorReq(w, r, err)
		return
	}
	s.metrics.SetFilesByLocation(string(models.LocationInline), stats.Inline.Files)
	s.metrics.SetFilesByLocation(string(models.LocationOffloaded), stats.Offloaded.Files)
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Offloading: s.blobs.Offloading(),
		Inline:     stats.Inline,
		Offloaded:  stats.Offloaded,
	})
}

func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if err := tiered.ValidatePath(key); err != nil {
		s.writeErrorReq(w, r, err)
		return
	}

	file, err := s.blobs.Get(r.Context(), key)
	if err != nil {
		s.writeErrorReq(w, r, err)
		return
	}

	w.Header().Set("Content-Type", file.MediaType)
	w.Header().Set("ETag", contentETag(file.Content))
	w.Header().Set(locationHeader, string(file.Location))
	http.ServeContent(w, r, key, file.UpdatedAt, bytes.NewReader(file.Content))
}

// contentETag is a strong validator over the stored bytes.
func contentETag(content []byte) string {
	sum := blake2b.Sum256(content)
	return fmt.Sprintf(`"%x"`, sum[:16])
}

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, err error) {
	status, code, numericCode := classifyError(err)
	message := err.Error()

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
		message = http.StatusText(status)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, ErrorResponse{Error: message, Code: code, ErrorCode: numericCode})
}

func classifyError(err error) (int, string, int) {
	var fetchErr *tiered.FetchError
	switch {
	case errors.Is(err, tiered.ErrInvalidPath):
		return http.StatusBadRequest, "invalid_argument", ErrCodeInvalidPath
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not_found", ErrCodeFileNotFound
	case errors.As(err, &fetchErr):
		return http.StatusBadGateway, "object_storage", ErrCodeObjectStorage
	case errors.Is(err, store.ErrTx):
		return http.StatusInternalServerError, "store_failure", ErrCodeStoreFailure
	default:
		return http.StatusInternalServerError, "internal", defaultErrorCodeByStatus(http.StatusInternalServerError)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}
