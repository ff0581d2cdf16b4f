package model

import "time"

// CompletionStatus is the lifecycle state of a single dated task completion.
type CompletionStatus string

const (
	StatusPending        CompletionStatus = "pending"
	StatusChildCompleted CompletionStatus = "child_completed"
	StatusParentApproved CompletionStatus = "parent_approved"
	StatusParentRejected CompletionStatus = "parent_rejected"
	StatusExcused        CompletionStatus = "excused"
)

// Terminal reports whether no further transitions are allowed from s.
func (s CompletionStatus) Terminal() bool {
	return s == StatusParentApproved || s == StatusExcused
}

// TaskTemplate is a reusable task definition.
type TaskTemplate struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	EffortScore int       `json:"effort_score"`
	PhotoProof  bool      `json:"photo_proof"`
	CreatedAt   time.Time `json:"created_at"`
}

// TaskInstance is a template bound into a sequence group with the FAMCOIN
// value assigned by the budget scheduler.
type TaskInstance struct {
	ID           int64  `json:"id"`
	GroupID      int64  `json:"group_id"`
	TemplateID   int64  `json:"template_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	FamcoinValue int    `json:"famcoin_value"`
	PhotoProof   bool   `json:"photo_proof"`
	EffortScore  int    `json:"effort_score"`
}

// TaskCompletion is the unit the state machine operates on: one instance on
// one due date. Rows are never deleted, only transitioned.
type TaskCompletion struct {
	ID              int64            `json:"id"`
	InstanceID      int64            `json:"instance_id"`
	ChildID         int64            `json:"child_id"`
	DueDate         time.Time        `json:"due_date"`
	Status          CompletionStatus `json:"status"`
	PhotoURL        *string          `json:"photo_url"`
	CompletedAt     *time.Time       `json:"completed_at"`
	FamcoinsEarned  int              `json:"famcoins_earned"`
	RejectedBy      *int64           `json:"rejected_by"`
	RejectedAt      *time.Time       `json:"rejected_at"`
	RejectionReason *string          `json:"rejection_reason"`
	Feedback        *string          `json:"feedback"`
	ApprovedBy      *int64           `json:"approved_by"`
	ApprovedAt      *time.Time       `json:"approved_at"`
	CreatedAt       time.Time        `json:"created_at"`
}
