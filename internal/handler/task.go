package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/famstack/famcoin/internal/auth"
	"github.com/famstack/famcoin/internal/ledger"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/task"
)

// TaskHandler serves the child-side routes. The acting child comes from the
// session context; a child can only touch their own tasks.
type TaskHandler struct {
	tasks         *task.Service
	ledger        *ledger.Service
	maxPhotoBytes int64
	logger        *slog.Logger
}

func NewTaskHandler(tasks *task.Service, ledger *ledger.Service, maxPhotoBytes int64, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:         tasks,
		ledger:        ledger,
		maxPhotoBytes: maxPhotoBytes,
		logger:        logger,
	}
}

// ListToday returns the child's tasks due on the requested date (query param
// `date`, YYYY-MM-DD, defaulting to today).
func (h *TaskHandler) ListToday(w http.ResponseWriter, r *http.Request) {
	childID := auth.ChildID(r.Context())

	date := time.Now().UTC()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := time.Parse("2006-01-02", q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	tasks, err := h.tasks.TasksForDay(childID, date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if tasks == nil {
		tasks = []model.TaskCompletion{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		PhotoURL *string `json:"photo_url"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
			return
		}
	}

	completion, err := h.tasks.Complete(id, auth.ChildID(r.Context()), req.PhotoURL)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, completion)
}

// AttachPhoto accepts the raw image bytes in the request body, stores them,
// and records the URL on the completion.
func (h *TaskHandler) AttachPhoto(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	contentType := r.Header.Get("Content-Type")
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxPhotoBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "photo too large"})
		return
	}

	url, err := h.tasks.AttachPhoto(r.Context(), id, auth.ChildID(r.Context()), data, contentType)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"photo_url": url})
}

// Balance returns the child's confirmed balance and pending earnings.
func (h *TaskHandler) Balance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.Balance(auth.ChildID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// Transactions returns the child's earn history, newest first.
func (h *TaskHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	txns, err := h.ledger.History(auth.ChildID(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	writeJSON(w, http.StatusOK, txns)
}
