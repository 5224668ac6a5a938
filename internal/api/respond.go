package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jrlabs/appforge/internal/apperr"
	"github.com/jrlabs/appforge/internal/logger"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			logger.L().Warn("failed to encode response", zap.Error(err))
		}
	}
}

// respondError maps the error taxonomy onto HTTP statuses. Validation and
// not-found resolve at this boundary; transport and malformed-response
// errors only reach here when no fallback existed for the operation.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeTransport, apperr.CodeMalformedResponse:
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		logger.L().Error("request failed", zap.Error(err))
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
