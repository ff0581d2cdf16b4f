package store

import (
	"database/sql"
	"fmt"

	"github.com/famstack/famcoin/internal/model"
)

type TransactionStore struct {
	db *sql.DB
}

func NewTransactionStore(db *sql.DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func scanTransaction(scanner interface{ Scan(...any) error }) (*model.Transaction, error) {
	var t model.Transaction
	err := scanner.Scan(
		&t.ID, &t.ChildID, &t.Type, &t.Amount, &t.CompletionID,
		&t.CreatedBy, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const transactionCols = `id, child_id, type, amount, completion_id, created_by, created_at`

func (s *TransactionStore) ListByChild(childID int64) ([]model.Transaction, error) {
	rows, err := s.db.Query(
		`SELECT `+transactionCols+` FROM transactions WHERE child_id = ? ORDER BY created_at DESC, id DESC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func (s *TransactionStore) GetByCompletion(completionID int64) (*model.Transaction, error) {
	row := s.db.QueryRow(
		`SELECT `+transactionCols+` FROM transactions WHERE completion_id = ?`,
		completionID,
	)
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction by completion: %w", err)
	}
	return t, nil
}
