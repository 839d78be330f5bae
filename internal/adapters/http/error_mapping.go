package httpadapter

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/kirillkom/denial-appeal-assistant/internal/core/domain"
)

const unavailableMessage = "pipeline unavailable, retry later"

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// classifyError returns the HTTP status and the machine-readable error code.
func classifyError(err error) (int, string) {
	switch {
	case domain.IsKind(err, domain.ErrNoDenialLetter):
		return http.StatusBadRequest, "no_denial_letter"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case domain.IsKind(err, domain.ErrDocumentNotFound), domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "not_found"
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable, "unavailable"
	case domain.IsKind(err, domain.ErrRenderFailed):
		return http.StatusBadGateway, "render_failed"
	case domain.IsKind(err, domain.ErrOracle):
		return http.StatusBadGateway, "oracle_error"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		message = unavailableMessage
		w.Header().Set("Retry-After", "5")
	case http.StatusInternalServerError:
		message = "internal error"
	}
	if status >= 500 && !errors.Is(err, r.Context().Err()) {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"code", code,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}
