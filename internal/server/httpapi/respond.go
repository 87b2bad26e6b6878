package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/webapp/internal/common"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeServiceError maps service sentinels to statuses. Internal error text
// is logged and never sent to the client.
func (s *Server) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		writeError(w, http.StatusBadRequest, "invalid_request")
	case errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusBadRequest, "invalid_or_expired_token")
	case errors.Is(err, common.ErrorAlreadyExists):
		writeError(w, http.StatusBadRequest, "already_exists")
	case errors.Is(err, common.ErrorUnsupportedMedia):
		writeError(w, http.StatusBadRequest, "unsupported_media_type")
	case errors.Is(err, common.ErrorTooLarge):
		writeError(w, http.StatusBadRequest, "file_too_large")
	case errors.Is(err, common.ErrorUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, common.ErrorAlreadyVerified):
		writeError(w, http.StatusForbidden, "already_verified")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	default:
		s.logger.Error(ctx, "request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

func hasBody(r *http.Request) bool {
	return r.ContentLength != 0
}
