// Package handler provides HTTP handlers for the API server.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openctemio/teams/internal/infra/http/middleware"
	"github.com/openctemio/teams/pkg/apierror"
	"github.com/openctemio/teams/pkg/validator"
)

// ListResponse is the standard envelope for list endpoints.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"total_count"`
	Limit      int `json:"limit,omitempty"`
	Offset     int `json:"offset,omitempty"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return nil
}

// writeError maps err to an API error response. Validation failures get
// their field details attached; everything else goes through the domain
// error mapping.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		apierror.ValidationFailed("validation failed", vErrs).
			WriteJSONWithRequestID(w, requestID)
		return
	}

	apierror.FromDomain(err).WriteJSONWithRequestID(w, requestID)
}

// writeBadRequest writes a 400 with the given message.
func writeBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	apierror.BadRequest(message).
		WriteJSONWithRequestID(w, middleware.GetRequestID(r.Context()))
}

// queryInt parses an integer query parameter, falling back to def when
// absent or malformed.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// queryStrings parses a repeatable query parameter, splitting each value
// on commas.
func queryStrings(r *http.Request, name string) []string {
	var out []string
	for _, raw := range r.URL.Query()[name] {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
