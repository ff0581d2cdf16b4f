package store

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/famstack/famcoin/internal/database"
	"github.com/famstack/famcoin/internal/model"
)

// setupTestDB opens a migrated database in a temp directory. A file-backed
// database (not :memory:) so every pooled connection sees the same data.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

type fixture struct {
	db           *sql.DB
	children     *ChildStore
	sessions     *SessionStore
	completions  *CompletionStore
	settlements  *SettlementStore
	transactions *TransactionStore
	templates    *TemplateStore
	sequences    *SequenceStore

	parent *model.Parent
	child  *model.Child
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	f := &fixture{
		db:           db,
		children:     NewChildStore(db),
		sessions:     NewSessionStore(db),
		completions:  NewCompletionStore(db),
		settlements:  NewSettlementStore(db),
		transactions: NewTransactionStore(db),
		templates:    NewTemplateStore(db),
		sequences:    NewSequenceStore(db),
	}

	parent, err := f.children.CreateParent("Dana")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	f.parent = parent

	child, err := f.children.Create(parent.ID, "Riley", 9)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	f.child = child
	return f
}

// plantCompletion creates a sequence with a single instance due on the given
// date and returns the resulting pending completion.
func (f *fixture) plantCompletion(t *testing.T, value int, photoProof bool, due time.Time) *model.TaskCompletion {
	t.Helper()

	tmpl, err := f.templates.Create("Make bed", "", "bedroom", 2, photoProof)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	before, err := f.completions.ListForChildOnDate(f.child.ID, due)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}

	_, err = f.sequences.CreatePlanned(model.Sequence{
		ChildID:            f.child.ID,
		Period:             model.PeriodWeekly,
		StartDate:          due,
		BudgetCurrencyCent: value * 10,
		FamcoinRate:        10,
		BudgetFamcoins:     value,
	}, []PlannedGroup{{
		Group: model.TaskGroup{
			Name:           "morning",
			ActiveWeekdays: []time.Weekday{due.Weekday()},
			TemplateIDs:    []int64{tmpl.ID},
		},
		Instances: []PlannedInstance{{
			Instance: model.TaskInstance{
				TemplateID:   tmpl.ID,
				Name:         tmpl.Name,
				FamcoinValue: value,
				PhotoProof:   photoProof,
				EffortScore:  tmpl.EffortScore,
			},
			DueDates: []time.Time{due},
		}},
	}})
	if err != nil {
		t.Fatalf("create planned sequence: %v", err)
	}

	after, err := f.completions.ListForChildOnDate(f.child.ID, due)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(after) != len(before)+1 {
		t.Fatalf("expected one new completion, got %d -> %d", len(before), len(after))
	}
	return &after[len(after)-1]
}

func (f *fixture) balance(t *testing.T) int {
	t.Helper()
	child, err := f.children.GetByID(f.child.ID)
	if err != nil {
		t.Fatalf("get child: %v", err)
	}
	return child.FamcoinBalance
}
