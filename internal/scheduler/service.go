package scheduler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/store"
)

// CreateInput is everything a parent submits to start a sequence.
type CreateInput struct {
	ChildID            int64
	Period             model.PeriodType
	StartDate          time.Time
	BudgetCurrencyCent int
	Ongoing            bool
	Groups             []GroupInput
}

// CreateResult carries the stored sequence plus planning facts the caller
// surfaces to the parent.
type CreateResult struct {
	Sequence         *model.Sequence `json:"sequence"`
	PerTaskValue     int             `json:"per_task_value"`
	TotalCompletions int             `json:"total_completions"`
	LowValueWarning  bool            `json:"low_value_warning"`
}

// Service plans and materializes sequences.
type Service struct {
	sequences *store.SequenceStore
	templates *store.TemplateStore
	children  *store.ChildStore
	// famcoinRate converts currency units to FAMCOINs at sequence creation.
	famcoinRate int
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(sequences *store.SequenceStore, templates *store.TemplateStore, children *store.ChildStore, famcoinRate int, logger *slog.Logger) *Service {
	return &Service{
		sequences:   sequences,
		templates:   templates,
		children:    children,
		famcoinRate: famcoinRate,
		logger:      logger,
		now:         time.Now,
	}
}

// budgetFamcoins converts a currency budget to FAMCOINs at the configured
// rate (FAMCOINs per whole currency unit), flooring fractional cents.
func (s *Service) budgetFamcoins(budgetCurrencyCent int) int {
	return budgetCurrencyCent * s.famcoinRate / 100
}

// Create plans the sequence, then persists the sequence, groups, instances,
// and every dated completion in one transaction.
func (s *Service) Create(in CreateInput) (*CreateResult, error) {
	child, err := s.children.GetByID(in.ChildID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, common.ErrNotFound
	}

	budget := s.budgetFamcoins(in.BudgetCurrencyCent)
	plan, err := BuildPlan(in.Period, in.StartDate, budget, in.Groups)
	if err != nil {
		return nil, err
	}
	if plan.LowValue {
		s.logger.Warn("budget yields zero-value tasks",
			"child_id", in.ChildID,
			"budget_famcoins", budget,
			"total_completions", plan.TotalCompletions)
	}

	groups, err := s.materialize(plan, in.Groups)
	if err != nil {
		return nil, err
	}

	seq, err := s.sequences.CreatePlanned(model.Sequence{
		ChildID:            in.ChildID,
		Period:             in.Period,
		StartDate:          in.StartDate,
		BudgetCurrencyCent: in.BudgetCurrencyCent,
		FamcoinRate:        s.famcoinRate,
		BudgetFamcoins:     budget,
		Ongoing:            in.Ongoing,
	}, groups)
	if err != nil {
		return nil, err
	}

	s.logger.Info("sequence created",
		"sequence_id", seq.ID,
		"child_id", seq.ChildID,
		"period", seq.Period,
		"per_task", plan.PerTaskValue,
		"completions", plan.TotalCompletions)

	return &CreateResult{
		Sequence:         seq,
		PerTaskValue:     plan.PerTaskValue,
		TotalCompletions: plan.TotalCompletions,
		LowValueWarning:  plan.LowValue,
	}, nil
}

// materialize resolves template ids and turns the plan into the store's
// planned-group form: one instance per (group, template), one completion per
// active date.
func (s *Service) materialize(plan *Plan, groups []GroupInput) ([]store.PlannedGroup, error) {
	var ids []int64
	for _, g := range groups {
		ids = append(ids, g.TemplateIDs...)
	}
	templates, err := s.templates.GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := templates[id]; !ok {
			return nil, fmt.Errorf("%w: task template %d", common.ErrNotFound, id)
		}
	}

	planned := make([]store.PlannedGroup, len(groups))
	for i, g := range groups {
		planned[i] = store.PlannedGroup{
			Group: model.TaskGroup{
				Name:           g.Name,
				ActiveWeekdays: g.ActiveWeekdays,
				TemplateIDs:    g.TemplateIDs,
			},
		}
	}

	for _, occ := range plan.Occurrences {
		tmpl := templates[occ.TemplateID]
		planned[occ.GroupIndex].Instances = append(planned[occ.GroupIndex].Instances, store.PlannedInstance{
			Instance: model.TaskInstance{
				TemplateID:   tmpl.ID,
				Name:         tmpl.Name,
				Description:  tmpl.Description,
				FamcoinValue: occ.Value,
				PhotoProof:   tmpl.PhotoProof,
				EffortScore:  tmpl.EffortScore,
			},
			DueDates: occ.DueDates,
		})
	}
	return planned, nil
}

// Rollover closes ongoing sequences whose period has elapsed and recreates
// each one starting the day after the old period ends. Run nightly.
func (s *Service) Rollover() error {
	active, err := s.sequences.ListActive()
	if err != nil {
		return err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	for _, seq := range active {
		days, err := PeriodDays(seq.Period, seq.StartDate)
		if err != nil {
			s.logger.Error("rollover period", "sequence_id", seq.ID, "error", err)
			continue
		}
		end := seq.StartDate.AddDate(0, 0, days)
		if today.Before(end) {
			continue
		}

		if err := s.sequences.SetStatus(seq.ID, model.SequenceCompleted); err != nil {
			s.logger.Error("rollover close", "sequence_id", seq.ID, "error", err)
			continue
		}
		if !seq.Ongoing {
			continue
		}

		groups, err := s.sequences.ListGroups(seq.ID)
		if err != nil {
			s.logger.Error("rollover groups", "sequence_id", seq.ID, "error", err)
			continue
		}
		inputs := make([]GroupInput, len(groups))
		for i, g := range groups {
			inputs[i] = GroupInput{Name: g.Name, ActiveWeekdays: g.ActiveWeekdays, TemplateIDs: g.TemplateIDs}
		}

		if _, err := s.Create(CreateInput{
			ChildID:            seq.ChildID,
			Period:             seq.Period,
			StartDate:          end,
			BudgetCurrencyCent: seq.BudgetCurrencyCent,
			Ongoing:            true,
			Groups:             inputs,
		}); err != nil {
			s.logger.Error("rollover recreate", "sequence_id", seq.ID, "error", err)
		}
	}
	return nil
}

// Get returns a sequence by id.
func (s *Service) Get(id int64) (*model.Sequence, error) {
	seq, err := s.sequences.GetByID(id)
	if err != nil {
		return nil, err
	}
	if seq == nil {
		return nil, common.ErrNotFound
	}
	return seq, nil
}

// ListForChild returns a child's sequences, newest first.
func (s *Service) ListForChild(childID int64) ([]model.Sequence, error) {
	return s.sequences.ListByChild(childID)
}

// SetStatus pauses or resumes a sequence.
func (s *Service) SetStatus(id int64, status model.SequenceStatus) error {
	if status != model.SequenceActive && status != model.SequencePaused {
		return fmt.Errorf("%w: status must be active or paused", common.ErrValidation)
	}
	seq, err := s.sequences.GetByID(id)
	if err != nil {
		return err
	}
	if seq == nil {
		return common.ErrNotFound
	}
	if seq.Status == model.SequenceCompleted {
		return fmt.Errorf("%w: sequence already completed", common.ErrValidation)
	}
	return s.sequences.SetStatus(id, status)
}
