package shared

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"timesheet/internal/domain/errs"
	"timesheet/internal/transport/http/api"
)

// FailDomain maps a domain error to its HTTP status and error code.
func FailDomain(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, errs.ErrInsufficientBalance):
		api.Fail(w, http.StatusUnprocessableEntity, "insufficient_balance", err.Error(), requestID)
	case errors.Is(err, errs.ErrValidation):
		if field, reason, ok := errs.Field(err); ok {
			FailValidation(w, requestID, []ValidationIssue{{Field: field, Reason: reason}})
			return
		}
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), requestID)
	case errors.Is(err, errs.ErrInvalidTransition):
		api.Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	case errors.Is(err, errs.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "not_found", "resource not found", requestID)
	case errors.Is(err, errs.ErrForbidden):
		api.Fail(w, http.StatusForbidden, "forbidden", "insufficient permissions", requestID)
	default:
		slog.Error("request failed", "requestId", requestID, "err", err)
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}

// ClientIP prefers the first X-Forwarded-For hop, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); fwd != "" {
		if value := strings.TrimSpace(strings.Split(fwd, ",")[0]); value != "" {
			return value
		}
	}
	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
