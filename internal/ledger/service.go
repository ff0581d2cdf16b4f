// Package ledger exposes the FAMCOIN balance view: the confirmed balance
// stored on the child row, the pending earnings derived from completions
// awaiting approval, and the immutable transaction history behind them.
package ledger

import (
	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/store"
)

// Balance is what a child's piggy-bank screen renders.
type Balance struct {
	ChildID         int64 `json:"child_id"`
	Confirmed       int   `json:"confirmed"`
	PendingEarnings int   `json:"pending_earnings"`
}

type Service struct {
	children     *store.ChildStore
	completions  *store.CompletionStore
	transactions *store.TransactionStore
}

func NewService(children *store.ChildStore, completions *store.CompletionStore, transactions *store.TransactionStore) *Service {
	return &Service{
		children:     children,
		completions:  completions,
		transactions: transactions,
	}
}

// Balance returns the confirmed balance alongside pending earnings. Pending
// is always recomputed from completion rows, never cached, so a settlement
// that lands between the two reads can shrink pending but never double-count
// into confirmed.
func (s *Service) Balance(childID int64) (*Balance, error) {
	child, err := s.children.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, common.ErrNotFound
	}

	pending, err := s.completions.PendingEarnings(childID)
	if err != nil {
		return nil, err
	}

	return &Balance{
		ChildID:         childID,
		Confirmed:       child.FamcoinBalance,
		PendingEarnings: pending,
	}, nil
}

// History returns the child's transactions, newest first.
func (s *Service) History(childID int64) ([]model.Transaction, error) {
	child, err := s.children.GetByID(childID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, common.ErrNotFound
	}
	return s.transactions.ListByChild(childID)
}
