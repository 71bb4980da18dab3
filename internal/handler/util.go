package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/support-chat/internal/service"
	"github.com/capitalize-ai/support-chat/pkg/logger"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Provider and internal failures are logged in full but surfaced
// generically; end users never see internal error detail verbatim.
func writeServiceError(w http.ResponseWriter, log *logger.Logger, err error) {
	var validation *service.ValidationError
	var provider *service.ProviderError

	switch {
	case errors.Is(err, service.ErrAgentNotFound):
		writeError(w, http.StatusNotFound, "agent not found")
	case errors.Is(err, service.ErrAgentInactive):
		writeError(w, http.StatusConflict, "agent is inactive")
	case errors.Is(err, service.ErrAgentAccess):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrInvalidConversation):
		writeError(w, http.StatusBadRequest, "invalid conversation")
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  "validation failed",
			"errors": validation.Problems,
		})
	case errors.As(err, &provider):
		log.Error("provider failure", zap.Error(err))
		writeError(w, http.StatusBadGateway, "something went wrong, please try again")
	default:
		log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "something went wrong, please try again")
	}
}
