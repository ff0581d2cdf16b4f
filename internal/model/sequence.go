package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PeriodType is the length class of a sequence.
type PeriodType string

const (
	PeriodWeekly      PeriodType = "weekly"
	PeriodFortnightly PeriodType = "fortnightly"
	PeriodMonthly     PeriodType = "monthly"
)

type SequenceStatus string

const (
	SequenceActive    SequenceStatus = "active"
	SequencePaused    SequenceStatus = "paused"
	SequenceCompleted SequenceStatus = "completed"
)

// Sequence is a parent-defined recurring schedule with a FAMCOIN budget.
// BudgetFamcoins is derived from the currency budget at the configured rate
// when the sequence is created and is fixed thereafter.
type Sequence struct {
	ID                 int64          `json:"id"`
	ChildID            int64          `json:"child_id"`
	Period             PeriodType     `json:"period"`
	StartDate          time.Time      `json:"start_date"`
	BudgetCurrencyCent int            `json:"budget_currency_cents"`
	FamcoinRate        int            `json:"famcoin_rate"`
	BudgetFamcoins     int            `json:"budget_famcoins"`
	Status             SequenceStatus `json:"status"`
	Ongoing            bool           `json:"ongoing"`
	CreatedAt          time.Time      `json:"created_at"`
}

// TaskGroup is a named set of templates active on a subset of weekdays.
type TaskGroup struct {
	ID             int64          `json:"id"`
	SequenceID     int64          `json:"sequence_id"`
	Name           string         `json:"name"`
	ActiveWeekdays []time.Weekday `json:"active_weekdays"`
	TemplateIDs    []int64        `json:"template_ids"`
}

// EncodeWeekdays renders weekdays as the CSV form stored in SQLite,
// e.g. "1,3,5" for Mon/Wed/Fri.
func EncodeWeekdays(days []time.Weekday) string {
	seen := make(map[time.Weekday]bool, len(days))
	var uniq []int
	for _, d := range days {
		if !seen[d] {
			seen[d] = true
			uniq = append(uniq, int(d))
		}
	}
	sort.Ints(uniq)
	parts := make([]string, len(uniq))
	for i, d := range uniq {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// DecodeWeekdays parses the CSV weekday form. Unknown values are an error.
func DecodeWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", part)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}
