package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"passgate.org/internal/auth"
)

// Body is the uniform response envelope. Code is 0 on success and mirrors
// the HTTP status on failure, so clients can branch on either.
type Body struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Body{Code: 0, Message: "ok", Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Body{Code: status, Message: message})
}

// respondServiceError maps domain errors onto envelope responses. Internal
// failures deliberately leak no detail.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, auth.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		return fmt.Errorf("%w: malformed request body", auth.ErrInvalidInput)
	}
	return nil
}
