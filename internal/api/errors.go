package api

import (
	"encoding/json"
	"net/http"
	"sort"
)

// Error is the JSON body of every non-2xx response.
type Error struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`

	// Sensor and Known are set for unknown_sensor.
	Sensor string   `json:"sensor,omitempty"`
	Known  []string `json:"known,omitempty"`
}

// Error codes.
const (
	ErrCodeNotFound       = "not_found"
	ErrCodeUnknownSensor  = "unknown_sensor"
	ErrCodeInternal       = "internal_error"
	ErrCodeMethodNotAllow = "method_not_allowed"
)

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// newError fills the request id of r, if the middleware set one.
func newError(r *http.Request, status int, code, message string) Error {
	e := Error{Status: status, Code: code, Message: message}
	if id, ok := r.Context().Value(ctxKeyRequestID).(string); ok {
		e.RequestID = id
	}
	return e
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, newError(r, status, code, message))
}

// writeUnknownSensor answers a lookup of an identifier the active model does
// not define, listing the identifiers it does.
func writeUnknownSensor(w http.ResponseWriter, r *http.Request, id string, known []string) {
	e := newError(r, http.StatusNotFound, ErrCodeUnknownSensor, "sensor "+id+" is not defined by the active model")
	e.Sensor = id
	e.Known = append([]string(nil), known...)
	sort.Strings(e.Known)
	writeJSON(w, http.StatusNotFound, e)
}
