package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

const dueDateLayout = "2006-01-02"

type CompletionStore struct {
	db *sql.DB
}

func NewCompletionStore(db *sql.DB) *CompletionStore {
	return &CompletionStore{db: db}
}

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.TaskCompletion, error) {
	var c model.TaskCompletion
	var dueDate string
	var photoURL, rejectionReason, feedback sql.NullString
	var completedAt, rejectedAt, approvedAt sql.NullTime
	var rejectedBy, approvedBy sql.NullInt64

	err := scanner.Scan(
		&c.ID, &c.InstanceID, &c.ChildID, &dueDate, &c.Status,
		&photoURL, &completedAt, &c.FamcoinsEarned,
		&rejectedBy, &rejectedAt, &rejectionReason, &feedback,
		&approvedBy, &approvedAt, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.DueDate, err = time.Parse(dueDateLayout, dueDate)
	if err != nil {
		return nil, fmt.Errorf("parse due date %q: %w", dueDate, err)
	}
	if photoURL.Valid {
		c.PhotoURL = &photoURL.String
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	if rejectedBy.Valid {
		c.RejectedBy = &rejectedBy.Int64
	}
	if rejectedAt.Valid {
		c.RejectedAt = &rejectedAt.Time
	}
	if rejectionReason.Valid {
		c.RejectionReason = &rejectionReason.String
	}
	if feedback.Valid {
		c.Feedback = &feedback.String
	}
	if approvedBy.Valid {
		c.ApprovedBy = &approvedBy.Int64
	}
	if approvedAt.Valid {
		c.ApprovedAt = &approvedAt.Time
	}
	return &c, nil
}

const completionCols = `id, instance_id, child_id, due_date, status, photo_url, completed_at, famcoins_earned, rejected_by, rejected_at, rejection_reason, feedback, approved_by, approved_at, created_at`

func (s *CompletionStore) GetByID(id int64) (*model.TaskCompletion, error) {
	row := s.db.QueryRow(`SELECT `+completionCols+` FROM task_completions WHERE id = ?`, id)
	c, err := scanCompletion(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

func scanInstance(scanner interface{ Scan(...any) error }) (*model.TaskInstance, error) {
	var inst model.TaskInstance
	var photoProof int
	err := scanner.Scan(
		&inst.ID, &inst.GroupID, &inst.TemplateID, &inst.Name,
		&inst.Description, &inst.FamcoinValue, &photoProof, &inst.EffortScore,
	)
	if err != nil {
		return nil, err
	}
	inst.PhotoProof = photoProof != 0
	return &inst, nil
}

const instanceCols = `id, group_id, template_id, name, description, famcoin_value, photo_proof, effort_score`

// GetInstance returns the task instance a completion is bound to.
func (s *CompletionStore) GetInstance(instanceID int64) (*model.TaskInstance, error) {
	row := s.db.QueryRow(`SELECT `+instanceCols+` FROM task_instances WHERE id = ?`, instanceID)
	inst, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return inst, nil
}

func (s *CompletionStore) listQuery(query string, args ...any) ([]model.TaskCompletion, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	defer rows.Close()

	var completions []model.TaskCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}

// ListForChildOnDate returns a child's completions due on the given day.
func (s *CompletionStore) ListForChildOnDate(childID int64, date time.Time) ([]model.TaskCompletion, error) {
	return s.listQuery(
		`SELECT `+completionCols+` FROM task_completions WHERE child_id = ? AND due_date = ? ORDER BY id ASC`,
		childID, date.Format(dueDateLayout),
	)
}

func (s *CompletionStore) ListByChildAndStatus(childID int64, status model.CompletionStatus) ([]model.TaskCompletion, error) {
	return s.listQuery(
		`SELECT `+completionCols+` FROM task_completions WHERE child_id = ? AND status = ? ORDER BY due_date ASC, id ASC`,
		childID, status,
	)
}

// ListAwaitingApproval returns all child_completed completions across a
// parent's children, oldest first.
func (s *CompletionStore) ListAwaitingApproval(parentID int64) ([]model.TaskCompletion, error) {
	return s.listQuery(
		`SELECT tc.id, tc.instance_id, tc.child_id, tc.due_date, tc.status, tc.photo_url, tc.completed_at, tc.famcoins_earned, tc.rejected_by, tc.rejected_at, tc.rejection_reason, tc.feedback, tc.approved_by, tc.approved_at, tc.created_at
		 FROM task_completions tc
		 JOIN children c ON c.id = tc.child_id
		 WHERE c.parent_id = ? AND tc.status = 'child_completed'
		 ORDER BY tc.completed_at ASC`,
		parentID,
	)
}

// PendingEarnings derives the child's unconfirmed earnings by summing over
// child_completed completions. There is deliberately no stored counter.
func (s *CompletionStore) PendingEarnings(childID int64) (int, error) {
	var sum sql.NullInt64
	err := s.db.QueryRow(
		`SELECT COALESCE(SUM(famcoins_earned), 0) FROM task_completions WHERE child_id = ? AND status = 'child_completed'`,
		childID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum pending earnings: %w", err)
	}
	return int(sum.Int64), nil
}

// MarkChildCompleted transitions a completion to child_completed, freezing
// the earned value. The update is conditional on the current status so a
// racing duplicate submission affects zero rows and reports a conflict.
func (s *CompletionStore) MarkChildCompleted(id int64, earned int, photoURL *string, now time.Time) error {
	var url sql.NullString
	if photoURL != nil {
		url = sql.NullString{String: *photoURL, Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE task_completions
		 SET status = 'child_completed', completed_at = ?, famcoins_earned = ?,
		     photo_url = COALESCE(?, photo_url),
		     rejected_by = NULL, rejected_at = NULL, rejection_reason = NULL
		 WHERE id = ? AND status IN ('pending', 'parent_rejected')`,
		now.UTC(), earned, url, id,
	)
	if err != nil {
		return fmt.Errorf("mark child completed: %w", err)
	}
	return oneRowOrConflict(result)
}

// SetPhotoURL attaches a photo to a not-yet-reviewed completion without
// changing its status.
func (s *CompletionStore) SetPhotoURL(id int64, url string) error {
	result, err := s.db.Exec(
		`UPDATE task_completions SET photo_url = ?
		 WHERE id = ? AND status IN ('pending', 'parent_rejected', 'child_completed')`,
		url, id,
	)
	if err != nil {
		return fmt.Errorf("set photo url: %w", err)
	}
	return oneRowOrConflict(result)
}

// MarkRejected returns a child_completed completion to the retryable
// parent_rejected state. No money moves.
func (s *CompletionStore) MarkRejected(id, parentID int64, reason string, feedback *string, now time.Time) error {
	var fb sql.NullString
	if feedback != nil {
		fb = sql.NullString{String: *feedback, Valid: true}
	}
	result, err := s.db.Exec(
		`UPDATE task_completions
		 SET status = 'parent_rejected', rejected_by = ?, rejected_at = ?, rejection_reason = ?, feedback = ?
		 WHERE id = ? AND status = 'child_completed'`,
		parentID, now.UTC(), reason, fb, id,
	)
	if err != nil {
		return fmt.Errorf("mark rejected: %w", err)
	}
	return oneRowOrConflict(result)
}

// MarkExcused excuses a pending completion. Terminal, no balance effect.
func (s *CompletionStore) MarkExcused(id, parentID int64, now time.Time) error {
	result, err := s.db.Exec(
		`UPDATE task_completions SET status = 'excused', approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`,
		parentID, now.UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("mark excused: %w", err)
	}
	return oneRowOrConflict(result)
}

func oneRowOrConflict(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrConflict
	}
	return nil
}
