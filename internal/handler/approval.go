package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/settlement"
)

// ApprovalHandler serves the parent-side review routes. Parent identity
// arrives in the request body; the host app authenticates parents.
type ApprovalHandler struct {
	settlements *settlement.Service
	logger      *slog.Logger
}

func NewApprovalHandler(settlements *settlement.Service, logger *slog.Logger) *ApprovalHandler {
	return &ApprovalHandler{settlements: settlements, logger: logger}
}

func (h *ApprovalHandler) ListAwaiting(w http.ResponseWriter, r *http.Request) {
	parentID, err := parseIDParam(r, "parent_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid parent id"})
		return
	}

	completions, err := h.settlements.AwaitingApproval(parentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if completions == nil {
		completions = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, completions)
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ParentID int64   `json:"parent_id"`
		Feedback *string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	txn, err := h.settlements.Approve(id, req.ParentID, req.Feedback)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ParentID int64   `json:"parent_id"`
		Reason   string  `json:"reason"`
		Feedback *string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	completion, err := h.settlements.Reject(id, req.ParentID, req.Reason, req.Feedback)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

func (h *ApprovalHandler) BulkApprove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID      int64   `json:"parent_id"`
		CompletionIDs []int64 `json:"completion_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	outcome, err := h.settlements.BulkApprove(req.CompletionIDs, req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *ApprovalHandler) CompleteOnBehalf(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ParentID int64 `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	txn, err := h.settlements.CompleteOnBehalf(id, req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}

func (h *ApprovalHandler) Excuse(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		ParentID int64 `json:"parent_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	completion, err := h.settlements.Excuse(id, req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}
