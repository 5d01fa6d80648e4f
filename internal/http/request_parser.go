package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"buckets/internal/core"
)

// HeaderUserID carries the caller identity set by the upstream auth proxy.
const HeaderUserID = "X-User-ID"

const maxUserIDLength = 128

// requireUser returns the caller identity or core.ErrAuthExpired.
func requireUser(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(HeaderUserID))
	if id == "" {
		return "", core.ErrAuthExpired
	}
	if len(id) > maxUserIDLength {
		return "", &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "user id too long"}
	}
	return id, nil
}

// decodeJSON decodes a single JSON object into dst, rejecting unknown fields
// and trailing data.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "request body is required"}
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return decodeError(err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "request body must contain a single JSON object"}
	}
	return nil
}

func decodeError(err error) error {
	var (
		maxErr    *http.MaxBytesError
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &maxErr):
		return &requestError{status: http.StatusRequestEntityTooLarge, code: CodeBodyTooLarge,
			msg: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit)}
	case errors.Is(err, core.ErrValidation):
		// Money and Date report their own validation errors.
		return err
	case errors.Is(err, io.EOF):
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "request body is required"}
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "malformed JSON body"}
	case errors.As(err, &typeErr):
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest,
			msg: fmt.Sprintf("field %q has the wrong type", typeErr.Field)}
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: strings.TrimPrefix(err.Error(), "json: ")}
	default:
		return &requestError{status: http.StatusBadRequest, code: CodeBadRequest, msg: "invalid request body"}
	}
}

// pathWeek parses the {week} path value. "current" selects today's week.
func pathWeek(r *http.Request) (core.Date, error) {
	raw := strings.TrimSpace(r.PathValue("week"))
	if raw == "current" {
		return core.Today(), nil
	}
	return core.ParseDate(raw)
}

func pathBucket(r *http.Request) (core.Bucket, error) {
	return core.ParseBucket(r.PathValue("bucket"))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// optionalBucket parses s unless it is empty.
func optionalBucket(s string) (*core.Bucket, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	b, err := core.ParseBucket(s)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, then trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
