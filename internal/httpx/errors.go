package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sundayezeilo/linkinbio/internal/errx"
)

type kindMapping struct {
	status int
	code   string
}

var kindMappings = map[errx.Kind]kindMapping{
	errx.NotFound:     {http.StatusNotFound, "not_found"},
	errx.Conflict:     {http.StatusConflict, "conflict"},
	errx.Invalid:      {http.StatusBadRequest, "invalid_input"},
	errx.Unauthorized: {http.StatusUnauthorized, "unauthorized"},
	errx.Forbidden:    {http.StatusForbidden, "forbidden"},
	errx.Gone:         {http.StatusGone, "gone"},
	errx.Unavailable:  {http.StatusServiceUnavailable, "unavailable"},
	errx.Internal:     {http.StatusInternalServerError, "internal_error"},
}

var fallbackMapping = kindMapping{http.StatusInternalServerError, "internal_error"}

func mappingFor(kind errx.Kind) kindMapping {
	if m, ok := kindMappings[kind]; ok {
		return m
	}
	return fallbackMapping
}

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
func ErrorKindToStatus(kind errx.Kind) int {
	return mappingFor(kind).status
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
func ErrorKindToCode(kind errx.Kind) string {
	return mappingFor(kind).code
}

// WriteServiceError logs err and writes the matching JSON error response.
// Client errors (4xx) are logged at warn and echo the root cause; server
// errors are logged at error and replaced by fallbackMsg.
func WriteServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, fallbackMsg string) {
	kind := errx.KindOf(err)
	m := mappingFor(kind)

	attrs := []any{
		"request_id", GetRequestID(ctx),
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	if m.status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", attrs...)
		WriteError(w, m.status, m.code, fallbackMsg, nil)
		return
	}

	logger.WarnContext(ctx, "request rejected", attrs...)
	WriteError(w, m.status, m.code, errx.Root(err), nil)
}
