package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/scheduler"
)

type SequenceHandler struct {
	scheduler *scheduler.Service
	logger    *slog.Logger
}

func NewSequenceHandler(sched *scheduler.Service, logger *slog.Logger) *SequenceHandler {
	return &SequenceHandler{scheduler: sched, logger: logger}
}

type sequenceGroupRequest struct {
	Name           string  `json:"name"`
	ActiveWeekdays []int   `json:"active_weekdays"`
	TemplateIDs    []int64 `json:"template_ids"`
}

func (h *SequenceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ChildID            int64                  `json:"child_id"`
		Period             string                 `json:"period"`
		StartDate          string                 `json:"start_date"`
		BudgetCurrencyCent int                    `json:"budget_currency_cents"`
		Ongoing            bool                   `json:"ongoing"`
		Groups             []sequenceGroupRequest `json:"groups"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "start_date must be YYYY-MM-DD"})
		return
	}

	groups := make([]scheduler.GroupInput, len(req.Groups))
	for i, g := range req.Groups {
		weekdays := make([]time.Weekday, 0, len(g.ActiveWeekdays))
		for _, d := range g.ActiveWeekdays {
			if d < 0 || d > 6 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "weekdays must be 0-6"})
				return
			}
			weekdays = append(weekdays, time.Weekday(d))
		}
		groups[i] = scheduler.GroupInput{
			Name:           g.Name,
			ActiveWeekdays: weekdays,
			TemplateIDs:    g.TemplateIDs,
		}
	}

	result, err := h.scheduler.Create(scheduler.CreateInput{
		ChildID:            req.ChildID,
		Period:             model.PeriodType(req.Period),
		StartDate:          start,
		BudgetCurrencyCent: req.BudgetCurrencyCent,
		Ongoing:            req.Ongoing,
		Groups:             groups,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (h *SequenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	seq, err := h.scheduler.Get(id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, seq)
}

func (h *SequenceHandler) ListForChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r, "child_id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid child id"})
		return
	}

	seqs, err := h.scheduler.ListForChild(childID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if seqs == nil {
		seqs = []model.Sequence{}
	}
	writeJSON(w, http.StatusOK, seqs)
}

// SetStatus pauses or resumes a sequence.
func (h *SequenceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if err := h.scheduler.SetStatus(id, model.SequenceStatus(req.Status)); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
}
