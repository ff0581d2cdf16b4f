package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/famstack/famcoin/internal/common"
	"github.com/famstack/famcoin/internal/database"
	"github.com/famstack/famcoin/internal/model"
	"github.com/famstack/famcoin/internal/store"
)

type fakeUploader struct {
	calls int
	fail  bool
}

func (f *fakeUploader) UploadPhoto(ctx context.Context, parentID, childID, completionID int64, data []byte, contentType string) (string, error) {
	f.calls++
	if f.fail {
		return "", errors.New("storage down")
	}
	return fmt.Sprintf("https://photos.example/%d/%d/%d.jpg", parentID, childID, completionID), nil
}

type serviceFixture struct {
	svc         *Service
	completions *store.CompletionStore
	children    *store.ChildStore
	templates   *store.TemplateStore
	sequences   *store.SequenceStore
	uploader    *fakeUploader
	child       *model.Child
	other       *model.Child
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	children := store.NewChildStore(db)
	parent, err := children.CreateParent("Dana")
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err := children.Create(parent.ID, "Riley", 9)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	other, err := children.Create(parent.ID, "Alex", 7)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	completions := store.NewCompletionStore(db)
	uploader := &fakeUploader{}
	return &serviceFixture{
		svc:         NewService(completions, children, uploader, nil, slog.Default()),
		completions: completions,
		children:    children,
		templates:   store.NewTemplateStore(db),
		sequences:   store.NewSequenceStore(db),
		uploader:    uploader,
		child:       child,
		other:       other,
	}
}

// plant creates a single-instance sequence and returns its completion.
func (f *serviceFixture) plant(t *testing.T, value int, photoProof bool) *model.TaskCompletion {
	t.Helper()
	due := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	tmpl, err := f.templates.Create("Feed the cat", "", "pets", 1, photoProof)
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	_, err = f.sequences.CreatePlanned(model.Sequence{
		ChildID:        f.child.ID,
		Period:         model.PeriodWeekly,
		StartDate:      due,
		FamcoinRate:    10,
		BudgetFamcoins: value,
	}, []store.PlannedGroup{{
		Group: model.TaskGroup{
			Name:           "pets",
			ActiveWeekdays: []time.Weekday{due.Weekday()},
			TemplateIDs:    []int64{tmpl.ID},
		},
		Instances: []store.PlannedInstance{{
			Instance: model.TaskInstance{
				TemplateID:   tmpl.ID,
				Name:         tmpl.Name,
				FamcoinValue: value,
				PhotoProof:   photoProof,
			},
			DueDates: []time.Time{due},
		}},
	}})
	if err != nil {
		t.Fatalf("create planned: %v", err)
	}

	list, err := f.completions.ListForChildOnDate(f.child.ID, due)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	return &list[len(list)-1]
}

func TestServiceCompleteDuplicate(t *testing.T) {
	f := newServiceFixture(t)
	c := f.plant(t, 8, false)

	got, err := f.svc.Complete(c.ID, f.child.ID, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != model.StatusChildCompleted {
		t.Errorf("status = %q, want child_completed", got.Status)
	}
	if got.FamcoinsEarned != 8 {
		t.Errorf("famcoins_earned = %d, want 8", got.FamcoinsEarned)
	}

	if _, err := f.svc.Complete(c.ID, f.child.ID, nil); !errors.Is(err, common.ErrAlreadyCompleted) {
		t.Fatalf("duplicate complete = %v, want ErrAlreadyCompleted", err)
	}

	pending, err := f.svc.PendingEarnings(f.child.ID)
	if err != nil {
		t.Fatalf("pending earnings: %v", err)
	}
	if pending != 8 {
		t.Errorf("pending = %d, want 8 after duplicate attempts", pending)
	}
}

func TestServiceCompleteOwnership(t *testing.T) {
	f := newServiceFixture(t)
	c := f.plant(t, 5, false)

	if _, err := f.svc.Complete(c.ID, f.other.ID, nil); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("complete by other child = %v, want ErrValidation", err)
	}
	if _, err := f.svc.Complete(9999, f.child.ID, nil); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("complete missing = %v, want ErrNotFound", err)
	}
}

func TestServicePhotoProofFlow(t *testing.T) {
	f := newServiceFixture(t)
	c := f.plant(t, 5, true)

	if _, err := f.svc.Complete(c.ID, f.child.ID, nil); !errors.Is(err, common.ErrPhotoRequired) {
		t.Fatalf("complete without photo = %v, want ErrPhotoRequired", err)
	}

	url, err := f.svc.AttachPhoto(context.Background(), c.ID, f.child.ID, []byte("jpeg"), "image/jpeg")
	if err != nil {
		t.Fatalf("attach photo: %v", err)
	}
	if url == "" || f.uploader.calls != 1 {
		t.Fatalf("upload not performed, url=%q calls=%d", url, f.uploader.calls)
	}

	got, err := f.svc.Complete(c.ID, f.child.ID, nil)
	if err != nil {
		t.Fatalf("complete after attach: %v", err)
	}
	if got.PhotoURL == nil || *got.PhotoURL != url {
		t.Errorf("photo_url = %v, want %q", got.PhotoURL, url)
	}
}

func TestServiceAttachPhotoValidation(t *testing.T) {
	f := newServiceFixture(t)
	c := f.plant(t, 5, true)

	if _, err := f.svc.AttachPhoto(context.Background(), c.ID, f.child.ID, nil, "image/jpeg"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("attach empty photo = %v, want ErrValidation", err)
	}
	if _, err := f.svc.AttachPhoto(context.Background(), c.ID, f.other.ID, []byte("x"), "image/jpeg"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("attach by other child = %v, want ErrValidation", err)
	}

	f.uploader.fail = true
	if _, err := f.svc.AttachPhoto(context.Background(), c.ID, f.child.ID, []byte("x"), "image/jpeg"); err == nil {
		t.Fatal("upload failure swallowed")
	}

	// A failed upload leaves the completion untouched.
	fresh, err := f.completions.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get completion: %v", err)
	}
	if fresh.PhotoURL != nil {
		t.Errorf("photo_url = %v, want nil after failed upload", fresh.PhotoURL)
	}
}
