package store

import (
	"database/sql"
	"fmt"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

// --- Parent methods ---

func (s *ChildStore) CreateParent(name string) (*model.Parent, error) {
	result, err := s.db.Exec(`INSERT INTO parents (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("insert parent: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetParent(id)
}

func (s *ChildStore) GetParent(id int64) (*model.Parent, error) {
	var p model.Parent
	err := s.db.QueryRow(
		`SELECT id, name, created_at FROM parents WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	return &p, nil
}

// --- Child methods ---

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	err := scanner.Scan(
		&c.ID, &c.ParentID, &c.Name, &c.Age, &c.PINHash,
		&c.FamcoinBalance, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const childCols = `id, parent_id, name, age, pin_hash, famcoin_balance, created_at`

func (s *ChildStore) Create(parentID int64, name string, age int) (*model.Child, error) {
	result, err := s.db.Exec(
		`INSERT INTO children (parent_id, name, age) VALUES (?, ?, ?)`,
		parentID, name, age,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByParent(parentID int64) ([]model.Child, error) {
	rows, err := s.db.Query(
		`SELECT `+childCols+` FROM children WHERE parent_id = ? ORDER BY name ASC`,
		parentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}

// --- PIN methods ---

func (s *ChildStore) SetPINHash(childID int64, hash string) error {
	result, err := s.db.Exec(`UPDATE children SET pin_hash = ? WHERE id = ?`, hash, childID)
	if err != nil {
		return fmt.Errorf("set pin hash: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// GetPINHash returns the stored hash, or common.ErrNotFound when the child
// does not exist or has no PIN set yet.
func (s *ChildStore) GetPINHash(childID int64) (string, error) {
	var hash string
	err := s.db.QueryRow(`SELECT pin_hash FROM children WHERE id = ?`, childID).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get pin hash: %w", err)
	}
	if hash == "" {
		return "", common.ErrNotFound
	}
	return hash, nil
}

func (s *ChildStore) ClearPIN(childID int64) error {
	_, err := s.db.Exec(`UPDATE children SET pin_hash = '' WHERE id = ?`, childID)
	if err != nil {
		return fmt.Errorf("clear pin: %w", err)
	}
	return nil
}
