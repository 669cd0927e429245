package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fpang/prompt-studio/internal/apperr"
	"github.com/rs/zerolog/log"
)

const maxRequestBody = 1 << 20

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func httpError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// writeError answers with the status and message the error's type calls for.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	body := map[string]string{"error": apperr.Message(err)}
	if t, ok := apperr.TypeOf(err); ok {
		body["error_type"] = t.String()
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Unhandled request error")
	}
	respondJSON(w, status, body)
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
