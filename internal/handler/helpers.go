package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/famstack/famcoin/internal/common"
)

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the service error taxonomy onto HTTP statuses. Unknown
// errors become an opaque 500; the detail goes to the log, not the client.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var badPIN *common.BadPINError
	var locked *common.LockedError
	switch {
	case errors.As(err, &badPIN):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":         badPIN.Error(),
			"attempts_left": badPIN.AttemptsLeft,
		})
	case errors.As(err, &locked):
		writeJSON(w, http.StatusLocked, map[string]any{
			"error":        locked.Error(),
			"locked_until": locked.Until,
		})
	case errors.Is(err, common.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, common.ErrAlreadyCompleted),
		errors.Is(err, common.ErrNotAwaitingApproval),
		errors.Is(err, common.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrPhotoRequired):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	case errors.Is(err, common.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
