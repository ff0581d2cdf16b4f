package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/famstack/famcoin/internal/model"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*model.TaskTemplate, error) {
	var t model.TaskTemplate
	var photoProof int
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.Category,
		&t.EffortScore, &photoProof, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	t.PhotoProof = photoProof != 0
	return &t, nil
}

const templateCols = `id, name, description, category, effort_score, photo_proof, created_at`

func (s *TemplateStore) Create(name, description, category string, effortScore int, photoProof bool) (*model.TaskTemplate, error) {
	var pp int
	if photoProof {
		pp = 1
	}
	result, err := s.db.Exec(
		`INSERT INTO task_templates (name, description, category, effort_score, photo_proof) VALUES (?, ?, ?, ?, ?)`,
		name, description, category, effortScore, pp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert template: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *TemplateStore) GetByID(id int64) (*model.TaskTemplate, error) {
	row := s.db.QueryRow(`SELECT `+templateCols+` FROM task_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateStore) List() ([]model.TaskTemplate, error) {
	rows, err := s.db.Query(`SELECT ` + templateCols + ` FROM task_templates ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var templates []model.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// GetByIDs returns the templates for the given ids, keyed by id. Missing ids
// are simply absent from the map; the caller validates completeness.
func (s *TemplateStore) GetByIDs(ids []int64) (map[int64]model.TaskTemplate, error) {
	if len(ids) == 0 {
		return map[int64]model.TaskTemplate{}, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(
		`SELECT `+templateCols+` FROM task_templates WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("get templates by ids: %w", err)
	}
	defer rows.Close()

	templates := make(map[int64]model.TaskTemplate, len(ids))
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates[t.ID] = *t
	}
	return templates, rows.Err()
}
