package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"buckets/internal/core"
	"buckets/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body. A nil body writes no content.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_ = json.NewEncoder(w).Encode(b.body)
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error codes that are not engine error kinds.
const (
	CodeAuthExpired   = "auth_expired"
	CodeBadRequest    = "bad_request"
	CodeBodyTooLarge  = "body_too_large"
	CodeRateLimited   = "rate_limited"
	CodeUnavailable   = "unavailable"
	internalErrorText = "internal error"
)

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Body(ErrorBody{Error: code, Message: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, CodeBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, core.KindValidation, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, core.KindNotFound, message)
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, CodeAuthExpired, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, core.KindInternal, message)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later")
}

// requestError is a malformed request detected before reaching the service.
type requestError struct {
	status int
	code   string
	msg    string
}

func (e *requestError) Error() string { return e.msg }

// errorResponse maps err to its response. Validation errors become 422,
// missing records 404, missing identity 401. Store failures surface their
// message with 500; anything else is hidden behind a generic 500.
func errorResponse(err error) *JSONResponseBuilder {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return ErrorResponse(reqErr.status, reqErr.code, reqErr.msg)
	}
	switch core.Kind(err) {
	case core.KindValidation:
		return UnprocessableEntityError(err.Error())
	case core.KindNotFound:
		return NotFoundError(err.Error())
	case core.KindAuth:
		return UnauthorizedError(err.Error())
	case core.KindPersistence:
		return ErrorResponse(http.StatusInternalServerError, core.KindPersistence, err.Error())
	default:
		return InternalServerError(internalErrorText)
	}
}

// writeError renders err and logs server-side failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	resp := errorResponse(err)
	if resp.statusCode >= http.StatusInternalServerError {
		s.events.LogError(r.Context(), "Request failed", err, core.Kind(err), log.ComponentHTTP, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
	}
	resp.Write(w)
}
