package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"atelier/internal/gate"
	dErrors "atelier/pkg/domain-errors"
)

// WriteJSON serializes a response body. Encoding failures are logged by the
// caller's middleware; headers are already gone by then.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError centralizes error translation so every handler returns the
// same JSON envelope. Gate validation errors carry the full field set so
// the caller can render every problem at once; internal details never leak.
func WriteError(w http.ResponseWriter, err error) {
	var verrs gate.Errors
	if errors.As(err, &verrs) {
		WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":  string(dErrors.CodeValidation),
			"fields": map[string]string(verrs),
		})
		return
	}

	var de *dErrors.Error
	if errors.As(err, &de) {
		body := map[string]any{"error": string(de.Code)}
		// Internal messages may describe infrastructure; keep them out of
		// responses.
		if de.Code != dErrors.CodeInternal {
			body["error_description"] = de.Message
		}
		WriteJSON(w, dErrors.ToHTTPStatus(de.Code), body)
		return
	}

	WriteJSON(w, http.StatusInternalServerError, map[string]any{
		"error": string(dErrors.CodeInternal),
	})
}
