// Package scheduler turns a sequence definition (period, budget, task
// groups) into a concrete plan: an even FAMCOIN value per task occurrence
// and the dated completions to materialize.
package scheduler

import (
	"fmt"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

// GroupInput is one task group as submitted by the parent.
type GroupInput struct {
	Name           string
	ActiveWeekdays []time.Weekday
	TemplateIDs    []int64
}

// PlannedOccurrence is one (group, template) pairing with the dates it is
// due and the per-task value assigned from the budget.
type PlannedOccurrence struct {
	GroupIndex int
	TemplateID int64
	Value      int
	DueDates   []time.Time
}

// Plan is the scheduler's output for one sequence period.
type Plan struct {
	PeriodDays       int
	TotalCompletions int
	PerTaskValue     int
	Remainder        int
	// LowValue flags a budget too small to give every occurrence at least
	// one FAMCOIN. Planning still succeeds; the caller surfaces a warning.
	LowValue    bool
	Occurrences []PlannedOccurrence
}

// PeriodDays returns the number of days a period spans from the given start
// date. Weekly is 7 and fortnightly 14. Monthly uses the real month length
// when the sequence starts on the 1st; any other start day gets a flat 30.
func PeriodDays(period model.PeriodType, start time.Time) (int, error) {
	switch period {
	case model.PeriodWeekly:
		return 7, nil
	case model.PeriodFortnightly:
		return 14, nil
	case model.PeriodMonthly:
		if start.Day() == 1 {
			return int(start.AddDate(0, 1, 0).Sub(start).Hours() / 24), nil
		}
		return 30, nil
	default:
		return 0, fmt.Errorf("%w: unknown period %q", common.ErrValidation, period)
	}
}

// activeDates lists the dates in [start, start+days) falling on one of the
// active weekdays, in order.
func activeDates(start time.Time, days int, weekdays []time.Weekday) []time.Time {
	active := make(map[time.Weekday]bool, len(weekdays))
	for _, d := range weekdays {
		active[d] = true
	}

	var dates []time.Time
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		if active[d.Weekday()] {
			dates = append(dates, d)
		}
	}
	return dates
}

// BuildPlan distributes budgetFamcoins evenly over every task occurrence in
// the period: perTask = floor(budget / totalCompletions). The remainder
// stays unallocated rather than skewing any one task.
func BuildPlan(period model.PeriodType, start time.Time, budgetFamcoins int, groups []GroupInput) (*Plan, error) {
	if budgetFamcoins <= 0 {
		return nil, fmt.Errorf("%w: budget must be positive", common.ErrValidation)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: at least one task group is required", common.ErrValidation)
	}

	days, err := PeriodDays(period, start)
	if err != nil {
		return nil, err
	}

	plan := &Plan{PeriodDays: days}
	for i, g := range groups {
		if len(g.TemplateIDs) == 0 {
			return nil, fmt.Errorf("%w: group %q has no tasks", common.ErrValidation, g.Name)
		}
		if len(g.ActiveWeekdays) == 0 {
			return nil, fmt.Errorf("%w: group %q has no active weekdays", common.ErrValidation, g.Name)
		}

		dates := activeDates(start, days, g.ActiveWeekdays)
		for _, templateID := range g.TemplateIDs {
			plan.Occurrences = append(plan.Occurrences, PlannedOccurrence{
				GroupIndex: i,
				TemplateID: templateID,
				DueDates:   dates,
			})
			plan.TotalCompletions += len(dates)
		}
	}

	if plan.TotalCompletions == 0 {
		return nil, fmt.Errorf("%w: no active days fall within the period", common.ErrValidation)
	}

	plan.PerTaskValue = budgetFamcoins / plan.TotalCompletions
	plan.Remainder = budgetFamcoins % plan.TotalCompletions
	plan.LowValue = plan.PerTaskValue == 0
	for i := range plan.Occurrences {
		plan.Occurrences[i].Value = plan.PerTaskValue
	}
	return plan, nil
}
