// internal/app/system/webapi/webapi.go
package webapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/chathub/internal/app/chat"
	"github.com/dalemusser/chathub/internal/app/system/limits"
	"go.uber.org/zap"
)

// Respond writes v as a JSON response with the given status code.
func Respond(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Message writes a `{"message": ...}` body, the shape every error and most
// acknowledgments use.
func Message(w http.ResponseWriter, code int, msg string) {
	Respond(w, code, map[string]string{"message": msg})
}

// Decode reads a JSON request body into v with a size cap. A failure here
// is always a client error.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Fail maps a chat error to its HTTP status and writes the structured
// failure. Upstream and unclassified errors are logged with full detail and
// surfaced generically.
func Fail(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	kind := chat.KindOf(err)
	if kind == chat.KindUpstream {
		log.Error(op, zap.Error(err))
	}
	Message(w, StatusOf(kind), chat.MessageOf(err))
}

// StatusOf maps a failure kind to an HTTP status code.
func StatusOf(kind chat.Kind) int {
	switch kind {
	case chat.KindValidation:
		return http.StatusBadRequest
	case chat.KindNotFound:
		return http.StatusNotFound
	case chat.KindForbidden:
		return http.StatusForbidden
	case chat.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err was the caller's fault (no server log
// needed).
func IsClientError(err error) bool {
	var ce *chat.Error
	return errors.As(err, &ce) && ce.Kind != chat.KindUpstream
}
