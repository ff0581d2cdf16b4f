package task

import (
	"errors"
	"testing"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

var now = time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC)

func pendingCompletion() model.TaskCompletion {
	return model.TaskCompletion{
		ID:         1,
		InstanceID: 10,
		ChildID:    5,
		Status:     model.StatusPending,
	}
}

func TestCompleteFreezesValue(t *testing.T) {
	inst := model.TaskInstance{ID: 10, FamcoinValue: 8}

	got, err := Complete(pendingCompletion(), inst, nil, now)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != model.StatusChildCompleted {
		t.Errorf("status = %q, want child_completed", got.Status)
	}
	if got.FamcoinsEarned != 8 {
		t.Errorf("famcoins_earned = %d, want 8", got.FamcoinsEarned)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(now) {
		t.Errorf("completed_at = %v, want %v", got.CompletedAt, now)
	}
}

func TestCompleteRejectsTerminalStates(t *testing.T) {
	inst := model.TaskInstance{ID: 10, FamcoinValue: 8}

	for _, status := range []model.CompletionStatus{
		model.StatusChildCompleted,
		model.StatusParentApproved,
		model.StatusExcused,
	} {
		c := pendingCompletion()
		c.Status = status
		if _, err := Complete(c, inst, nil, now); !errors.Is(err, common.ErrAlreadyCompleted) {
			t.Errorf("complete from %q = %v, want ErrAlreadyCompleted", status, err)
		}
	}
}

func TestCompleteRequiresPhotoProof(t *testing.T) {
	inst := model.TaskInstance{ID: 10, FamcoinValue: 8, PhotoProof: true}

	if _, err := Complete(pendingCompletion(), inst, nil, now); !errors.Is(err, common.ErrPhotoRequired) {
		t.Fatalf("complete without photo = %v, want ErrPhotoRequired", err)
	}

	// A freshly supplied photo satisfies the requirement.
	url := "https://photos.example/a.jpg"
	got, err := Complete(pendingCompletion(), inst, &url, now)
	if err != nil {
		t.Fatalf("complete with photo: %v", err)
	}
	if got.PhotoURL == nil || *got.PhotoURL != url {
		t.Errorf("photo_url = %v, want %q", got.PhotoURL, url)
	}

	// So does a previously attached one.
	c := pendingCompletion()
	attached := "https://photos.example/b.jpg"
	c.PhotoURL = &attached
	if _, err := Complete(c, inst, nil, now); err != nil {
		t.Fatalf("complete with attached photo: %v", err)
	}
}

func TestCompleteFromRejectedClearsRejection(t *testing.T) {
	inst := model.TaskInstance{ID: 10, FamcoinValue: 8}

	c := pendingCompletion()
	parentID := int64(2)
	reason := "do it again"
	c.Status = model.StatusParentRejected
	c.RejectedBy = &parentID
	c.RejectedAt = &now
	c.RejectionReason = &reason
	c.FamcoinsEarned = 8

	got, err := Complete(c, inst, nil, now)
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if got.RejectedBy != nil || got.RejectedAt != nil || got.RejectionReason != nil {
		t.Errorf("rejection fields survive resubmission: %+v", got)
	}
	if got.FamcoinsEarned != 8 {
		t.Errorf("famcoins_earned = %d, want 8", got.FamcoinsEarned)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	c := pendingCompletion()
	c.Status = model.StatusChildCompleted

	if _, err := Reject(c, 2, "", nil, now); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("reject without reason = %v, want ErrValidation", err)
	}
	if _, err := Reject(c, 2, "   ", nil, now); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("reject with blank reason = %v, want ErrValidation", err)
	}
}

func TestRejectOnlyFromChildCompleted(t *testing.T) {
	for _, status := range []model.CompletionStatus{
		model.StatusPending,
		model.StatusParentApproved,
		model.StatusParentRejected,
		model.StatusExcused,
	} {
		c := pendingCompletion()
		c.Status = status
		if _, err := Reject(c, 2, "messy", nil, now); !errors.Is(err, common.ErrNotAwaitingApproval) {
			t.Errorf("reject from %q = %v, want ErrNotAwaitingApproval", status, err)
		}
	}
}

func TestRejectPreservesEarnedValue(t *testing.T) {
	c := pendingCompletion()
	c.Status = model.StatusChildCompleted
	c.FamcoinsEarned = 8

	got, err := Reject(c, 2, "messy", nil, now)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != model.StatusParentRejected {
		t.Errorf("status = %q, want parent_rejected", got.Status)
	}
	if got.FamcoinsEarned != 8 {
		t.Errorf("famcoins_earned = %d, want 8 preserved", got.FamcoinsEarned)
	}
	if got.RejectionReason == nil || *got.RejectionReason != "messy" {
		t.Errorf("rejection reason = %v, want 'messy'", got.RejectionReason)
	}
}

func TestExcuseOnlyFromPending(t *testing.T) {
	got, err := Excuse(pendingCompletion(), 2, now)
	if err != nil {
		t.Fatalf("excuse: %v", err)
	}
	if got.Status != model.StatusExcused {
		t.Errorf("status = %q, want excused", got.Status)
	}
	if got.ApprovedBy == nil || *got.ApprovedBy != 2 {
		t.Errorf("approved_by = %v, want 2", got.ApprovedBy)
	}

	for _, status := range []model.CompletionStatus{
		model.StatusChildCompleted,
		model.StatusParentApproved,
		model.StatusParentRejected,
		model.StatusExcused,
	} {
		c := pendingCompletion()
		c.Status = status
		if _, err := Excuse(c, 2, now); err == nil {
			t.Errorf("excuse from %q succeeded, want error", status)
		}
	}
}
