package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestPeriodDays(t *testing.T) {
	if d, _ := PeriodDays(model.PeriodWeekly, monday); d != 7 {
		t.Errorf("weekly = %d, want 7", d)
	}
	if d, _ := PeriodDays(model.PeriodFortnightly, monday); d != 14 {
		t.Errorf("fortnightly = %d, want 14", d)
	}

	// Starting on the 1st uses the real month length.
	feb1 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	if d, _ := PeriodDays(model.PeriodMonthly, feb1); d != 28 {
		t.Errorf("monthly from Feb 1 = %d, want 28", d)
	}
	jan1 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if d, _ := PeriodDays(model.PeriodMonthly, jan1); d != 31 {
		t.Errorf("monthly from Jan 1 = %d, want 31", d)
	}

	// Mid-month starts get a flat 30 days.
	jan15 := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if d, _ := PeriodDays(model.PeriodMonthly, jan15); d != 30 {
		t.Errorf("monthly from Jan 15 = %d, want 30", d)
	}

	if _, err := PeriodDays(model.PeriodType("yearly"), monday); !errors.Is(err, common.ErrValidation) {
		t.Errorf("unknown period err = %v, want ErrValidation", err)
	}
}

func TestBuildPlanEvenDistribution(t *testing.T) {
	// Mon/Wed/Fri with 2 tasks over a week: 6 completions, budget 200.
	plan, err := BuildPlan(model.PeriodWeekly, monday, 200, []GroupInput{{
		Name:           "after school",
		ActiveWeekdays: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		TemplateIDs:    []int64{1, 2},
	}})
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if plan.TotalCompletions != 6 {
		t.Errorf("total completions = %d, want 6", plan.TotalCompletions)
	}
	if plan.PerTaskValue != 33 {
		t.Errorf("per task = %d, want 33", plan.PerTaskValue)
	}
	if plan.Remainder != 2 {
		t.Errorf("remainder = %d, want 2", plan.Remainder)
	}
	if plan.LowValue {
		t.Error("low value flagged for a healthy budget")
	}
	for _, occ := range plan.Occurrences {
		if occ.Value != 33 {
			t.Errorf("occurrence value = %d, want 33", occ.Value)
		}
		if len(occ.DueDates) != 3 {
			t.Errorf("due dates = %d, want 3", len(occ.DueDates))
		}
	}
}

func TestBuildPlanMultipleGroups(t *testing.T) {
	// (2 tasks x 5 weekdays) + (1 task x 2 weekend days) = 12 completions.
	plan, err := BuildPlan(model.PeriodWeekly, monday, 350, []GroupInput{
		{
			Name:           "school days",
			ActiveWeekdays: []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
			TemplateIDs:    []int64{1, 2},
		},
		{
			Name:           "weekend",
			ActiveWeekdays: []time.Weekday{time.Saturday, time.Sunday},
			TemplateIDs:    []int64{3},
		},
	})
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if plan.TotalCompletions != 12 {
		t.Errorf("total completions = %d, want 12", plan.TotalCompletions)
	}
	if plan.PerTaskValue != 29 {
		t.Errorf("per task = %d, want 29", plan.PerTaskValue)
	}
	if plan.Remainder != 2 {
		t.Errorf("remainder = %d, want 2", plan.Remainder)
	}
}

func TestBuildPlanValidation(t *testing.T) {
	group := GroupInput{
		Name:           "g",
		ActiveWeekdays: []time.Weekday{time.Monday},
		TemplateIDs:    []int64{1},
	}

	if _, err := BuildPlan(model.PeriodWeekly, monday, 0, []GroupInput{group}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("zero budget err = %v, want ErrValidation", err)
	}
	if _, err := BuildPlan(model.PeriodWeekly, monday, -5, []GroupInput{group}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("negative budget err = %v, want ErrValidation", err)
	}
	if _, err := BuildPlan(model.PeriodWeekly, monday, 100, nil); !errors.Is(err, common.ErrValidation) {
		t.Errorf("no groups err = %v, want ErrValidation", err)
	}

	noTemplates := group
	noTemplates.TemplateIDs = nil
	if _, err := BuildPlan(model.PeriodWeekly, monday, 100, []GroupInput{noTemplates}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("no templates err = %v, want ErrValidation", err)
	}

	noDays := group
	noDays.ActiveWeekdays = nil
	if _, err := BuildPlan(model.PeriodWeekly, monday, 100, []GroupInput{noDays}); !errors.Is(err, common.ErrValidation) {
		t.Errorf("no weekdays err = %v, want ErrValidation", err)
	}
}

func TestBuildPlanLowValueWarning(t *testing.T) {
	// 3 famcoins over 7 completions floors to zero per task.
	plan, err := BuildPlan(model.PeriodWeekly, monday, 3, []GroupInput{{
		Name: "daily",
		ActiveWeekdays: []time.Weekday{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		},
		TemplateIDs: []int64{1},
	}})
	if err != nil {
		t.Fatalf("build plan: %v", err)
	}
	if !plan.LowValue {
		t.Error("low value not flagged")
	}
	if plan.PerTaskValue != 0 {
		t.Errorf("per task = %d, want 0", plan.PerTaskValue)
	}
	if plan.Remainder != 3 {
		t.Errorf("remainder = %d, want 3", plan.Remainder)
	}
}

func TestActiveDatesRespectWeekdaysAndOrder(t *testing.T) {
	dates := activeDates(monday, 7, []time.Weekday{time.Wednesday, time.Monday})
	if len(dates) != 2 {
		t.Fatalf("dates = %d, want 2", len(dates))
	}
	if !dates[0].Equal(monday) {
		t.Errorf("first date = %v, want the Monday start", dates[0])
	}
	if dates[1].Weekday() != time.Wednesday {
		t.Errorf("second date weekday = %v, want Wednesday", dates[1].Weekday())
	}
}
