package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/joseph-ayodele/studydeck/internal/common"
)

const maxJSONBody = 16 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppError maps err through the common error taxonomy.
func writeAppError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := common.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("http.request.failed", "status", status, "error", err)
	} else {
		log.Warn("http.request.rejected", "status", status, "error", err)
	}
	writeError(w, status, common.PublicMessage(err))
}

// decodeJSON reads a JSON request body into v. Failures are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return common.TooLargeError("request body is too large")
		}
		if errors.Is(err, io.EOF) {
			return common.ValidationError("request body is required", nil)
		}
		return common.ValidationError("invalid JSON body", err)
	}
	return nil
}
