// Package common defines the error kinds shared across the FAMCOIN core so
// that callers (handlers, tests) can branch on errors.Is/errors.As rather
// than string matching.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation — malformed input (bad PIN format, empty rejection
	// reason, empty task group). Never retried automatically.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound — the referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyCompleted — the completion is not in a completable status.
	ErrAlreadyCompleted = errors.New("task already completed")
	// ErrPhotoRequired — the task requires photo proof and none is attached.
	ErrPhotoRequired = errors.New("photo proof required")
	// ErrNotAwaitingApproval — the completion is not awaiting parent review.
	ErrNotAwaitingApproval = errors.New("task is not awaiting approval")
	// ErrConflict — a conditional update lost a race; the caller should
	// re-read and treat it as a failed precondition.
	ErrConflict = errors.New("record changed concurrently")
	// ErrUnavailable — the credential store could not be reached and no
	// cached hash exists. Fails closed without consuming a PIN attempt.
	ErrUnavailable = errors.New("credential store unavailable")
)

// BadPINError reports a wrong PIN together with how many attempts remain
// before lockout.
type BadPINError struct {
	AttemptsLeft int
}

func (e *BadPINError) Error() string {
	return fmt.Sprintf("incorrect PIN, %d attempts remaining", e.AttemptsLeft)
}

// LockedError reports that PIN entry is locked until the given time.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("PIN entry locked until %s", e.Until.Format(time.RFC3339))
}
