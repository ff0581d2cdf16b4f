package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/realtime"
	"github.com/famstack/famcoin/internal/store"
)

// Uploader stores a photo blob and returns its durable URL. Implemented by
// the S3-backed photo service; faked in tests.
type Uploader interface {
	UploadPhoto(ctx context.Context, parentID, childID, completionID int64, data []byte, contentType string) (string, error)
}

// Service drives completion lifecycle operations on behalf of children.
type Service struct {
	completions *store.CompletionStore
	children    *store.ChildStore
	uploader    Uploader
	hub         *realtime.Hub
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(completions *store.CompletionStore, children *store.ChildStore, uploader Uploader, hub *realtime.Hub, logger *slog.Logger) *Service {
	return &Service{
		completions: completions,
		children:    children,
		uploader:    uploader,
		hub:         hub,
		logger:      logger,
		now:         time.Now,
	}
}

// Complete transitions a completion to child_completed for the acting child.
// Duplicate submissions (double taps, retries racing a success) resolve to
// ErrAlreadyCompleted without a second status change or earnings bump.
func (s *Service) Complete(completionID, actorChildID int64, photoURL *string) (*model.TaskCompletion, error) {
	c, err := s.completions.GetByID(completionID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, common.ErrNotFound
	}
	if c.ChildID != actorChildID {
		return nil, fmt.Errorf("%w: task belongs to another child", common.ErrValidation)
	}

	inst, err := s.completions.GetInstance(c.InstanceID)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		return nil, common.ErrNotFound
	}

	updated, err := Complete(*c, *inst, photoURL, s.now())
	if err != nil {
		return nil, err
	}

	err = s.completions.MarkChildCompleted(c.ID, updated.FamcoinsEarned, photoURL, *updated.CompletedAt)
	if errors.Is(err, common.ErrConflict) {
		// Someone else transitioned it between our read and write.
		return nil, common.ErrAlreadyCompleted
	}
	if err != nil {
		return nil, err
	}

	fresh, err := s.completions.GetByID(c.ID)
	if err != nil {
		return nil, err
	}
	s.broadcast(fresh, "completed")
	return fresh, nil
}

// AttachPhoto uploads photo proof for a completion and records its URL. The
// completion's status is not changed; the upload happens before the record
// is touched so a failed upload leaves no partial state behind.
func (s *Service) AttachPhoto(ctx context.Context, completionID, actorChildID int64, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: photo data is empty", common.ErrValidation)
	}

	c, err := s.completions.GetByID(completionID)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", common.ErrNotFound
	}
	if c.ChildID != actorChildID {
		return "", fmt.Errorf("%w: task belongs to another child", common.ErrValidation)
	}
	if c.Status.Terminal() {
		return "", common.ErrAlreadyCompleted
	}

	child, err := s.children.GetByID(c.ChildID)
	if err != nil {
		return "", err
	}
	if child == nil {
		return "", common.ErrNotFound
	}

	url, err := s.uploader.UploadPhoto(ctx, child.ParentID, child.ID, c.ID, data, contentType)
	if err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}

	if err := s.completions.SetPhotoURL(c.ID, url); err != nil {
		return "", err
	}
	return url, nil
}

// PendingEarnings returns the child's unconfirmed earnings, derived from
// child_completed completions.
func (s *Service) PendingEarnings(childID int64) (int, error) {
	return s.completions.PendingEarnings(childID)
}

// TasksForDay returns a child's completions due on the given date.
func (s *Service) TasksForDay(childID int64, date time.Time) ([]model.TaskCompletion, error) {
	return s.completions.ListForChildOnDate(childID, date)
}

func (s *Service) broadcast(c *model.TaskCompletion, action string) {
	if s.hub == nil || c == nil {
		return
	}
	s.hub.Broadcast(realtime.NewUpdate("completion", action, c.ChildID, c.ID, map[string]any{
		"status":          c.Status,
		"famcoins_earned": c.FamcoinsEarned,
	}))
}
