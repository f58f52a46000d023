package api

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tradege/stek-sub008/internal/casino"
	"github.com/tradege/stek-sub008/internal/session"
)

var (
	errMissingUser = errors.New("missing or malformed X-User-ID header")
	errBadBody     = errors.New("malformed request body")
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps a service error to a status code and JSON body. The
// mapping keeps retryable conditions (lock timeouts) apart from
// permanent rejections.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		status = http.StatusInternalServerError
		code   = "internal"
		msg    = "internal server error"
	)

	var ve validator.ValidationErrors
	switch {
	case errors.Is(err, errMissingUser):
		status, code, msg = http.StatusUnauthorized, "unauthorized", err.Error()
	case errors.Is(err, errBadBody):
		status, code, msg = http.StatusBadRequest, "bad_request", err.Error()
	case errors.As(err, &ve):
		status, code, msg = http.StatusBadRequest, "validation", ve.Error()
	case casino.IsValidation(err):
		status, code, msg = http.StatusBadRequest, "validation", err.Error()
	case errors.Is(err, casino.ErrInsufficientFunds):
		status, code, msg = http.StatusPaymentRequired, "insufficient_funds", err.Error()
	case errors.Is(err, casino.ErrNotFound), errors.Is(err, session.ErrNotFound):
		status, code, msg = http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, casino.ErrSessionActive):
		status, code, msg = http.StatusConflict, "session_active", err.Error()
	case errors.Is(err, casino.ErrSessionState):
		status, code, msg = http.StatusConflict, "session_state", err.Error()
	case errors.Is(err, casino.ErrLockTimeout):
		status, code, msg = http.StatusServiceUnavailable, "busy", "wallet is busy, retry the request"
	default:
		s.log.WithError(err).Error("unhandled service error")
	}

	s.writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
