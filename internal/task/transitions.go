// Package task implements the completion lifecycle state machine:
//
//	pending → child_completed → parent_approved | parent_rejected
//	parent_rejected → child_completed (resubmission)
//	pending → excused (parent, terminal)
//
// Transitions are pure functions of (record, input) → (record, error); the
// store applies them with conditional updates so racing callers cannot apply
// the same transition twice.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

// Completable reports whether a completion in the given status can be
// (re)submitted by the child.
func Completable(status model.CompletionStatus) bool {
	return status == model.StatusPending || status == model.StatusParentRejected
}

// Complete applies the child-completion transition. The instance's FAMCOIN
// value is frozen onto the record; later edits to the instance never change
// an already-completed record. photoURL may carry a newly attached photo.
func Complete(c model.TaskCompletion, inst model.TaskInstance, photoURL *string, now time.Time) (model.TaskCompletion, error) {
	if !Completable(c.Status) {
		return c, common.ErrAlreadyCompleted
	}
	if inst.PhotoProof && photoURL == nil && c.PhotoURL == nil {
		return c, common.ErrPhotoRequired
	}

	c.Status = model.StatusChildCompleted
	completedAt := now.UTC()
	c.CompletedAt = &completedAt
	c.FamcoinsEarned = inst.FamcoinValue
	if photoURL != nil {
		c.PhotoURL = photoURL
	}
	c.RejectedBy = nil
	c.RejectedAt = nil
	c.RejectionReason = nil
	return c, nil
}

// Reject applies the parent-rejection transition. A non-empty reason is
// required; famcoins_earned is preserved for the resubmission.
func Reject(c model.TaskCompletion, parentID int64, reason string, feedback *string, now time.Time) (model.TaskCompletion, error) {
	if strings.TrimSpace(reason) == "" {
		return c, fmt.Errorf("%w: rejection reason is required", common.ErrValidation)
	}
	if c.Status != model.StatusChildCompleted {
		return c, common.ErrNotAwaitingApproval
	}

	c.Status = model.StatusParentRejected
	rejectedAt := now.UTC()
	c.RejectedBy = &parentID
	c.RejectedAt = &rejectedAt
	c.RejectionReason = &reason
	c.Feedback = feedback
	return c, nil
}

// Excuse marks a pending completion as not required. Terminal; no balance
// effect; not reachable from any other status.
func Excuse(c model.TaskCompletion, parentID int64, now time.Time) (model.TaskCompletion, error) {
	if c.Status != model.StatusPending {
		return c, fmt.Errorf("%w: only pending tasks can be excused", common.ErrAlreadyCompleted)
	}

	c.Status = model.StatusExcused
	excusedAt := now.UTC()
	c.ApprovedBy = &parentID
	c.ApprovedAt = &excusedAt
	return c, nil
}
