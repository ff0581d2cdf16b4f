package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

// SettlementStore performs the money-moving transitions. Each settlement is
// a single SQL transaction: the status flip, the ledger entry, and the
// balance increment commit together or not at all.
type SettlementStore struct {
	db *sql.DB
}

func NewSettlementStore(db *sql.DB) *SettlementStore {
	return &SettlementStore{db: db}
}

// SettleApproval approves a child_completed completion: flips the status,
// inserts the earned transaction, and increments the child's confirmed
// balance. The balance update is a SQL-side increment, never a client-side
// read-modify-write, so concurrent settlements cannot lose updates.
func (s *SettlementStore) SettleApproval(completionID, parentID int64, feedback *string, now time.Time) (*model.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var childID int64
	var earned int
	var status string
	err = tx.QueryRow(
		`SELECT child_id, famcoins_earned, status FROM task_completions WHERE id = ?`,
		completionID,
	).Scan(&childID, &earned, &status)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read completion: %w", err)
	}
	if status != string(model.StatusChildCompleted) {
		return nil, common.ErrNotAwaitingApproval
	}
	if earned <= 0 {
		return nil, fmt.Errorf("%w: completion %d has non-positive value", common.ErrValidation, completionID)
	}

	var fb sql.NullString
	if feedback != nil {
		fb = sql.NullString{String: *feedback, Valid: true}
	}
	result, err := tx.Exec(
		`UPDATE task_completions
		 SET status = 'parent_approved', approved_by = ?, approved_at = ?, feedback = COALESCE(?, feedback)
		 WHERE id = ? AND status = 'child_completed'`,
		parentID, now.UTC(), fb, completionID,
	)
	if err != nil {
		return nil, fmt.Errorf("approve completion: %w", err)
	}
	if err := oneRowOrConflict(result); err != nil {
		return nil, err
	}

	txnResult, err := tx.Exec(
		`INSERT INTO transactions (child_id, type, amount, completion_id, created_by) VALUES (?, 'earned', ?, ?, ?)`,
		childID, earned, completionID, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	txnID, err := txnResult.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE children SET famcoin_balance = famcoin_balance + ? WHERE id = ?`,
		earned, childID,
	); err != nil {
		return nil, fmt.Errorf("increment balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("read settled transaction: %w", err)
	}
	return txn, nil
}

// SettleOnBehalf drives a pending completion straight to parent_approved in
// one transaction, recording the parent as both completer and approver. The
// photo requirement is waived for the parent path.
func (s *SettlementStore) SettleOnBehalf(completionID, parentID int64, now time.Time) (*model.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var childID int64
	var value int
	var status string
	err = tx.QueryRow(
		`SELECT tc.child_id, ti.famcoin_value, tc.status
		 FROM task_completions tc
		 JOIN task_instances ti ON ti.id = tc.instance_id
		 WHERE tc.id = ?`,
		completionID,
	).Scan(&childID, &value, &status)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read completion: %w", err)
	}
	if status != string(model.StatusPending) {
		return nil, common.ErrAlreadyCompleted
	}
	if value <= 0 {
		return nil, fmt.Errorf("%w: instance for completion %d has non-positive value", common.ErrValidation, completionID)
	}

	result, err := tx.Exec(
		`UPDATE task_completions
		 SET status = 'parent_approved', completed_at = ?, famcoins_earned = ?,
		     approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		now.UTC(), value, parentID, now.UTC(), completionID,
	)
	if err != nil {
		return nil, fmt.Errorf("complete on behalf: %w", err)
	}
	if err := oneRowOrConflict(result); err != nil {
		return nil, err
	}

	txnResult, err := tx.Exec(
		`INSERT INTO transactions (child_id, type, amount, completion_id, created_by) VALUES (?, 'earned', ?, ?, ?)`,
		childID, value, completionID, parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	txnID, err := txnResult.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`UPDATE children SET famcoin_balance = famcoin_balance + ? WHERE id = ?`,
		value, childID,
	); err != nil {
		return nil, fmt.Errorf("increment balance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settlement: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, fmt.Errorf("read settled transaction: %w", err)
	}
	return txn, nil
}
