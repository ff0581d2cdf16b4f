// Package settlement implements the parent side of the completion
// lifecycle: approving, rejecting, and excusing tasks, and completing them
// on a child's behalf. Approval is the only path that moves FAMCOIN onto a
// child's confirmed balance, and it does so exactly once per completion.
package settlement

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/realtime"
	"github.com/famstack/famcoin/internal/store"
	"github.com/famstack/famcoin/internal/task"
)

// BulkResult reports the outcome of one completion inside a bulk approval.
type BulkResult struct {
	CompletionID int64  `json:"completion_id"`
	Approved     bool   `json:"approved"`
	Awarded      int    `json:"awarded,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BulkOutcome summarises a bulk approval: per-completion results plus the
// total FAMCOIN awarded by the ones that succeeded.
type BulkOutcome struct {
	Results      []BulkResult `json:"results"`
	TotalAwarded int          `json:"total_awarded"`
}

type Service struct {
	completions *store.CompletionStore
	settlements *store.SettlementStore
	children    *store.ChildStore
	hub         *realtime.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(completions *store.CompletionStore, settlements *store.SettlementStore, children *store.ChildStore, hub *realtime.Hub, logger *slog.Logger) *Service {
	return &Service{
		completions: completions,
		settlements: settlements,
		children:    children,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

// AwaitingApproval lists the parent's child-completed tasks, oldest first.
func (s *Service) AwaitingApproval(parentID int64) ([]model.TaskCompletion, error) {
	return s.completions.ListAwaitingApproval(parentID)
}

// Approve settles a child-completed task: flips it to parent_approved,
// writes the earn transaction, and credits the child's balance, all in one
// database transaction. A second approval of the same completion fails with
// ErrNotAwaitingApproval and credits nothing.
func (s *Service) Approve(completionID, parentID int64, feedback *string) (*model.Transaction, error) {
	if err := s.authorize(completionID, parentID); err != nil {
		return nil, err
	}

	txn, err := s.settlements.SettleApproval(completionID, parentID, feedback, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("completion approved",
		"completion_id", completionID,
		"child_id", txn.ChildID,
		"amount", txn.Amount)
	s.broadcastBalance(txn)
	return txn, nil
}

// Reject sends a child-completed task back with a reason. The frozen
// famcoins_earned survives so a resubmission re-offers the same amount.
func (s *Service) Reject(completionID, parentID int64, reason string, feedback *string) (*model.TaskCompletion, error) {
	c, err := s.load(completionID, parentID)
	if err != nil {
		return nil, err
	}

	if _, err := task.Reject(*c, parentID, reason, feedback, s.now()); err != nil {
		return nil, err
	}

	err = s.completions.MarkRejected(c.ID, parentID, reason, feedback, s.now())
	if errors.Is(err, common.ErrConflict) {
		return nil, common.ErrNotAwaitingApproval
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.completions.GetByID(c.ID)
	if err != nil {
		return nil, err
	}
	s.broadcastCompletion(fresh, "rejected")
	return fresh, nil
}

// BulkApprove settles each completion independently. One bad id (already
// settled, someone else's child) does not abort the rest; the outcome lists
// every result and the FAMCOIN total the successful ones awarded.
func (s *Service) BulkApprove(completionIDs []int64, parentID int64) (*BulkOutcome, error) {
	if len(completionIDs) == 0 {
		return nil, fmt.Errorf("%w: no completion ids given", common.ErrValidation)
	}

	outcome := &BulkOutcome{Results: make([]BulkResult, 0, len(completionIDs))}
	for _, id := range completionIDs {
		txn, err := s.Approve(id, parentID, nil)
		if err != nil {
			outcome.Results = append(outcome.Results, BulkResult{CompletionID: id, Error: err.Error()})
			continue
		}
		outcome.Results = append(outcome.Results, BulkResult{CompletionID: id, Approved: true, Awarded: txn.Amount})
		outcome.TotalAwarded += txn.Amount
	}
	return outcome, nil
}

// CompleteOnBehalf settles a still-pending task directly from the parent:
// completion, approval, and credit in one step, with any photo requirement
// waived.
func (s *Service) CompleteOnBehalf(completionID, parentID int64) (*model.Transaction, error) {
	if err := s.authorize(completionID, parentID); err != nil {
		return nil, err
	}

	txn, err := s.settlements.SettleOnBehalf(completionID, parentID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("completion settled on behalf",
		"completion_id", completionID,
		"child_id", txn.ChildID,
		"amount", txn.Amount)
	s.broadcastBalance(txn)
	return txn, nil
}

// Excuse marks a pending task as not required today. Terminal, no credit.
func (s *Service) Excuse(completionID, parentID int64) (*model.TaskCompletion, error) {
	c, err := s.load(completionID, parentID)
	if err != nil {
		return nil, err
	}

	if _, err := task.Excuse(*c, parentID, s.now()); err != nil {
		return nil, err
	}

	err = s.completions.MarkExcused(c.ID, parentID, s.now())
	if errors.Is(err, common.ErrConflict) {
		return nil, fmt.Errorf("%w: only pending tasks can be excused", common.ErrAlreadyCompleted)
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.completions.GetByID(c.ID)
	if err != nil {
		return nil, err
	}
	s.broadcastCompletion(fresh, "excused")
	return fresh, nil
}

// load fetches a completion and verifies the parent owns its child.
func (s *Service) load(completionID, parentID int64) (*model.TaskCompletion, error) {
	c, err := s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, common.ErrNotFound
	}

	child, err := s.children.GetByID(c.ChildID)
	if err != nil {
		return nil, err
	}
	if child == nil || child.ParentID != parentID {
		return nil, common.ErrNotFound
	}
	return c, nil
}

func (s *Service) authorize(completionID, parentID int64) error {
	_, err := s.load(completionID, parentID)
	return err
}

func (s *Service) broadcastCompletion(c *model.TaskCompletion, action string) {
	if s.hub == nil || c == nil {
		return
	}
	s.hub.Broadcast(realtime.NewUpdate("completion", action, c.ChildID, c.ID, map[string]any{
		"status": c.Status,
	}))
}

func (s *Service) broadcastBalance(txn *model.Transaction) {
	if s.hub == nil || txn == nil {
		return
	}
	s.hub.Broadcast(realtime.NewUpdate("balance", "credited", txn.ChildID, txn.CompletionID, map[string]any{
		"amount": txn.Amount,
	}))
}
