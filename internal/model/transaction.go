package model

import "time"

const TransactionEarned = "earned"

// Transaction is an immutable ledger entry. Exactly one exists per approved
// completion; it is never mutated or deleted.
type Transaction struct {
	ID           int64     `json:"id"`
	ChildID      int64     `json:"child_id"`
	Type         string    `json:"type"`
	Amount       int       `json:"amount"`
	CompletionID int64     `json:"completion_id"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}
