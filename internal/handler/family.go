package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/famstack/famcoin/internal/auth"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/store"
)

type FamilyHandler struct {
	children *store.ChildStore
	sessions *store.SessionStore
	pins     *auth.PINAuthenticator
	strategy auth.Strategy
	logger   *slog.Logger
}

func NewFamilyHandler(children *store.ChildStore, sessions *store.SessionStore, pins *auth.PINAuthenticator, strategy auth.Strategy, logger *slog.Logger) *FamilyHandler {
	return &FamilyHandler{
		children: children,
		sessions: sessions,
		pins:     pins,
		strategy: strategy,
		logger:   logger,
	}
}

func (h *FamilyHandler) CreateParent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	parent, err := h.children.CreateParent(req.Name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, parent)
}

func (h *FamilyHandler) CreateChild(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentID int64  `json:"parent_id"`
		Name     string `json:"name"`
		Age      int    `json:"age"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	parent, err := h.children.GetParent(req.ParentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if parent == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "parent not found"})
		return
	}

	child, err := h.children.Create(req.ParentID, req.Name, req.Age)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, child)
}

func (h *FamilyHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
	parentID, err := parseIDParam(r, "parent_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid parent id"})
		return
	}

	children, err := h.children.ListByParent(parentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *FamilyHandler) GetChild(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	child, err := h.children.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}
	writeJSON(w, http.StatusOK, child)
}

func (h *FamilyHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.pins.SetPIN(id, req.PIN); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

func (h *FamilyHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.children.ClearPIN(id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

// VerifyPIN authenticates the child and issues a session token. Under the
// dev bypass strategy the PIN is ignored and the session never expires.
func (h *FamilyHandler) VerifyPIN(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	child, err := h.children.GetByID(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if child == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	if err := h.strategy.Authenticate(id, req.PIN); err != nil {
		writeError(w, h.logger, err)
		return
	}

	sess, err := h.sessions.Create(id, auth.SessionTTL, h.strategy.Dev())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      sess.Token,
		"expires_at": sess.ExpiresAt,
		"dev":        sess.Dev,
	})
}

// Logout deletes the acting child's session.
func (h *FamilyHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cc, ok := auth.FromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "no session"})
		return
	}
	if err := h.sessions.Delete(cc.SessionID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}
