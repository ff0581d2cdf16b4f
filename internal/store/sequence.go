package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/famstack/famcoin/internal/model"
)

type SequenceStore struct {
	db *sql.DB
}

func NewSequenceStore(db *sql.DB) *SequenceStore {
	return &SequenceStore{db: db}
}

// PlannedInstance is a task instance plus the dates it is due within the
// sequence period, as produced by the budget scheduler.
type PlannedInstance struct {
	Instance model.TaskInstance
	DueDates []time.Time
}

// PlannedGroup is a group with its planned instances.
type PlannedGroup struct {
	Group     model.TaskGroup
	Instances []PlannedInstance
}

func scanSequence(scanner interface{ Scan(...any) error }) (*model.Sequence, error) {
	var seq model.Sequence
	var startDate string
	var ongoing int
	err := scanner.Scan(
		&seq.ID, &seq.ChildID, &seq.Period, &startDate,
		&seq.BudgetCurrencyCent, &seq.FamcoinRate, &seq.BudgetFamcoins,
		&seq.Status, &ongoing, &seq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	seq.StartDate, err = time.Parse(dueDateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("parse start date %q: %w", startDate, err)
	}
	seq.Ongoing = ongoing != 0
	return &seq, nil
}

const sequenceCols = `id, child_id, period, start_date, budget_currency_cents, famcoin_rate, budget_famcoins, status, ongoing, created_at`

// CreatePlanned persists a sequence together with its groups, instances, and
// dated completions in a single transaction, so a sequence is never visible
// half-materialized.
func (s *SequenceStore) CreatePlanned(seq model.Sequence, groups []PlannedGroup) (*model.Sequence, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var ongoing int
	if seq.Ongoing {
		ongoing = 1
	}
	result, err := tx.Exec(
		`INSERT INTO sequences (child_id, period, start_date, budget_currency_cents, famcoin_rate, budget_famcoins, status, ongoing)
		 VALUES (?, ?, ?, ?, ?, ?, 'active', ?)`,
		seq.ChildID, seq.Period, seq.StartDate.Format(dueDateLayout),
		seq.BudgetCurrencyCent, seq.FamcoinRate, seq.BudgetFamcoins, ongoing,
	)
	if err != nil {
		return nil, fmt.Errorf("insert sequence: %w", err)
	}
	seqID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, pg := range groups {
		groupResult, err := tx.Exec(
			`INSERT INTO task_groups (sequence_id, name, active_weekdays) VALUES (?, ?, ?)`,
			seqID, pg.Group.Name, model.EncodeWeekdays(pg.Group.ActiveWeekdays),
		)
		if err != nil {
			return nil, fmt.Errorf("insert group: %w", err)
		}
		groupID, err := groupResult.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}

		for _, templateID := range pg.Group.TemplateIDs {
			if _, err := tx.Exec(
				`INSERT INTO task_group_templates (group_id, template_id) VALUES (?, ?)`,
				groupID, templateID,
			); err != nil {
				return nil, fmt.Errorf("insert group template: %w", err)
			}
		}

		for _, pi := range pg.Instances {
			var pp int
			if pi.Instance.PhotoProof {
				pp = 1
			}
			instResult, err := tx.Exec(
				`INSERT INTO task_instances (group_id, template_id, name, description, famcoin_value, photo_proof, effort_score)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				groupID, pi.Instance.TemplateID, pi.Instance.Name, pi.Instance.Description,
				pi.Instance.FamcoinValue, pp, pi.Instance.EffortScore,
			)
			if err != nil {
				return nil, fmt.Errorf("insert instance: %w", err)
			}
			instID, err := instResult.LastInsertId()
			if err != nil {
				return nil, fmt.Errorf("last insert id: %w", err)
			}

			for _, due := range pi.DueDates {
				if _, err := tx.Exec(
					`INSERT INTO task_completions (instance_id, child_id, due_date) VALUES (?, ?, ?)`,
					instID, seq.ChildID, due.Format(dueDateLayout),
				); err != nil {
					return nil, fmt.Errorf("insert completion: %w", err)
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit sequence: %w", err)
	}
	return s.GetByID(seqID)
}

func (s *SequenceStore) GetByID(id int64) (*model.Sequence, error) {
	row := s.db.QueryRow(`SELECT `+sequenceCols+` FROM sequences WHERE id = ?`, id)
	seq, err := scanSequence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sequence: %w", err)
	}
	return seq, nil
}

func (s *SequenceStore) ListByChild(childID int64) ([]model.Sequence, error) {
	rows, err := s.db.Query(
		`SELECT `+sequenceCols+` FROM sequences WHERE child_id = ? ORDER BY start_date DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list sequences: %w", err)
	}
	defer rows.Close()

	var seqs []model.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		seqs = append(seqs, *seq)
	}
	return seqs, rows.Err()
}

// ListActive returns all active sequences, for the nightly rollover job.
func (s *SequenceStore) ListActive() ([]model.Sequence, error) {
	rows, err := s.db.Query(`SELECT ` + sequenceCols + ` FROM sequences WHERE status = 'active'`)
	if err != nil {
		return nil, fmt.Errorf("list active sequences: %w", err)
	}
	defer rows.Close()

	var seqs []model.Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sequence: %w", err)
		}
		seqs = append(seqs, *seq)
	}
	return seqs, rows.Err()
}

func (s *SequenceStore) SetStatus(id int64, status model.SequenceStatus) error {
	_, err := s.db.Exec(`UPDATE sequences SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set sequence status: %w", err)
	}
	return nil
}

// ListGroups returns a sequence's groups with decoded weekdays and template ids.
func (s *SequenceStore) ListGroups(sequenceID int64) ([]model.TaskGroup, error) {
	rows, err := s.db.Query(
		`SELECT id, sequence_id, name, active_weekdays FROM task_groups WHERE sequence_id = ? ORDER BY id ASC`,
		sequenceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []model.TaskGroup
	for rows.Next() {
		var g model.TaskGroup
		var weekdays string
		if err := rows.Scan(&g.ID, &g.SequenceID, &g.Name, &weekdays); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.ActiveWeekdays, err = model.DecodeWeekdays(weekdays)
		if err != nil {
			return nil, fmt.Errorf("decode weekdays: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range groups {
		templateRows, err := s.db.Query(
			`SELECT template_id FROM task_group_templates WHERE group_id = ? ORDER BY template_id ASC`,
			groups[i].ID,
		)
		if err != nil {
			return nil, fmt.Errorf("list group templates: %w", err)
		}
		for templateRows.Next() {
			var id int64
			if err := templateRows.Scan(&id); err != nil {
				templateRows.Close()
				return nil, fmt.Errorf("scan group template: %w", err)
			}
			groups[i].TemplateIDs = append(groups[i].TemplateIDs, id)
		}
		if err := templateRows.Err(); err != nil {
			templateRows.Close()
			return nil, err
		}
		templateRows.Close()
	}

	return groups, nil
}
