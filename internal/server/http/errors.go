package http

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/server/services"
	"github.com/dmitrijs2005/saralseva/internal/server/validation"
)

const (
	msgValidationFailed = "Validation failed"
	msgInternal         = "Internal server error"
	msgNotFound         = "Endpoint not found"
	msgNoToken          = "No token, authorization denied"
	msgTooLarge         = "Request entity too large"
	msgInvalidBody      = "Request body must be valid JSON"
)

// errorStatus maps an error to the status and message sent to the client.
// Unknown errors become 500 with a generic message.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrEmailTaken):
		return http.StatusConflict, "User already exists with this email"
	case errors.Is(err, services.ErrPhoneTaken):
		return http.StatusConflict, "User already exists with this phone number"
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	case errors.Is(err, services.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge, msgTooLarge
	case errors.Is(err, errBadBody):
		return http.StatusBadRequest, msgInvalidBody
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, msgValidationFailed
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "Duplicate entry - resource already exists"
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, "Unauthorized access"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Resource not found"
	case errors.Is(err, common.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, please try again later."
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError is the single exit for failed requests. Server faults are
// logged with full detail; the client only sees the generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		s.writeFailure(w, r, http.StatusBadRequest, msgValidationFailed, verrs)
		return
	}

	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	s.writeFailure(w, r, status, message, nil)
}
