package http

// errors.go maps service errors to status codes and renders them for the
// caller: an htmx fragment, a JSON body on /api routes, or plain text.

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"combos/internal/amqp"
	applog "combos/internal/log"
	"combos/internal/services"
)

var (
	errAsyncDisabled  = errors.New("async search is not configured")
	errSheetsDisabled = errors.New("spreadsheet source is not configured")
	errSourceFailed   = errors.New("could not read entries from the spreadsheet")
	errQueueFailed    = errors.New("search queue unavailable")
)

// ErrorBody is the JSON shape of every /api error.
type ErrorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor picks the status code and a stable machine-readable code for err.
func statusFor(err error) (int, string) {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, errMalformedRequest):
		return http.StatusBadRequest, "malformed_request"
	case services.IsValidation(err):
		return http.StatusUnprocessableEntity, "invalid_input"
	case errors.Is(err, services.ErrSearchTimeout):
		return http.StatusGatewayTimeout, "search_timeout"
	case errors.Is(err, errAsyncDisabled), errors.Is(err, errSheetsDisabled):
		return http.StatusServiceUnavailable, "not_configured"
	case errors.Is(err, errQueueFailed), errors.Is(err, amqp.ErrCircuitOpen):
		return http.StatusServiceUnavailable, "queue_unavailable"
	case errors.Is(err, errSourceFailed):
		return http.StatusBadGateway, "source_failed"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// userMessage is what the caller sees. Internal failures are not echoed back.
func userMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "Something went wrong, please try again."
	case http.StatusBadGateway:
		return "Could not read entries from the spreadsheet."
	case http.StatusRequestEntityTooLarge:
		return "Request body is too large."
	}
	msg := services.UserMessage(err)
	if msg == "" {
		return http.StatusText(status)
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// respondError logs err and writes it in the format the caller expects.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := userMessage(status, err)
	requestID := middleware.GetReqID(r.Context())

	logger := applog.FromContext(r.Context())
	fields := []any{
		applog.FieldPath, r.URL.Path,
		applog.FieldStatusCode, status,
		applog.FieldError, err.Error(),
		"code", code,
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", fields...)
	} else {
		logger.WarnContext(r.Context(), "Request rejected", fields...)
	}

	switch {
	case isHTMX(r):
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		writeJSON(w, status, ErrorBody{Error: msg, Code: code, RequestID: requestID})
	default:
		http.Error(w, msg, status)
	}
}

// rateLimited answers requests rejected by the limiter. Retry-After is already set.
func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	const msg = "Rate limit exceeded. Please try again later."
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, r.RemoteAddr, applog.FieldPath, r.URL.Path)

	switch {
	case isHTMX(r):
		ErrorResponse(http.StatusTooManyRequests, msg).Write(w)
	case strings.HasPrefix(r.URL.Path, "/api/"):
		writeJSON(w, http.StatusTooManyRequests, ErrorBody{Error: msg, Code: "rate_limited",
			RequestID: middleware.GetReqID(r.Context())})
	default:
		http.Error(w, msg, http.StatusTooManyRequests)
	}
}
