package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jmcleod/bequest/envelope"
	"github.com/jmcleod/bequest/license"
	"github.com/jmcleod/bequest/storage"
)

const maxBodySize = 8 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// decodeJSON reads a JSON body of at most limit bytes into T and checks its
// validate tags. It writes a 400 and returns false on failure.
func decodeJSON[T any](w http.ResponseWriter, r *http.Request, limit int64) (T, bool) {
	var v T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	if err := validateRequest(v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return v, false
	}
	return v, true
}

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, license.ErrNoCredentials):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, envelope.ErrPayloadTooLarge):
		writeError(w, http.StatusBadRequest, envelope.ErrPayloadTooLarge.Error())
	case errors.Is(err, storage.ErrInvalidName):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "license not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
