package auth

import (
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/famstack/famcoin/internal/common"
)

type fakeSource struct {
	hashes map[int64]string
	err    error
}

func (f *fakeSource) GetPINHash(childID int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	hash, ok := f.hashes[childID]
	if !ok || hash == "" {
		return "", common.ErrNotFound
	}
	return hash, nil
}

func (f *fakeSource) SetPINHash(childID int64, hash string) error {
	if f.err != nil {
		return f.err
	}
	f.hashes[childID] = hash
	return nil
}

func newTestAuthenticator(t *testing.T, pin string) (*PINAuthenticator, *fakeSource, *time.Time) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	src := &fakeSource{hashes: map[int64]string{1: string(hash)}}
	a := NewPINAuthenticator(src)

	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	return a, src, &now
}

func TestAuthenticateSuccess(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, "1357")
	if err := a.Authenticate(1, "1357"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
}

func TestAuthenticateLockoutAfterThreeFailures(t *testing.T) {
	a, _, now := newTestAuthenticator(t, "1357")

	var badPIN *common.BadPINError
	err := a.Authenticate(1, "9999")
	if !errors.As(err, &badPIN) || badPIN.AttemptsLeft != 2 {
		t.Fatalf("first failure = %v, want BadPINError with 2 attempts left", err)
	}
	err = a.Authenticate(1, "9999")
	if !errors.As(err, &badPIN) || badPIN.AttemptsLeft != 1 {
		t.Fatalf("second failure = %v, want BadPINError with 1 attempt left", err)
	}

	var locked *common.LockedError
	err = a.Authenticate(1, "9999")
	if !errors.As(err, &locked) {
		t.Fatalf("third failure = %v, want LockedError", err)
	}
	wantUntil := now.Add(5 * time.Minute)
	if !locked.Until.Equal(wantUntil) {
		t.Errorf("locked until %v, want %v", locked.Until, wantUntil)
	}

	// The correct PIN is rejected while locked, without consuming attempts.
	if err := a.Authenticate(1, "1357"); !errors.As(err, &locked) {
		t.Fatalf("correct PIN while locked = %v, want LockedError", err)
	}

	// After the window the correct PIN works again.
	*now = now.Add(5*time.Minute + time.Second)
	if err := a.Authenticate(1, "1357"); err != nil {
		t.Fatalf("authenticate after lockout window: %v", err)
	}
}

func TestFailureCountResetsAfterLockout(t *testing.T) {
	a, _, now := newTestAuthenticator(t, "1357")

	for i := 0; i < 3; i++ {
		a.Authenticate(1, "9999")
	}
	*now = now.Add(6 * time.Minute)

	// A fresh window: the next failure is the first of three again.
	var badPIN *common.BadPINError
	err := a.Authenticate(1, "9999")
	if !errors.As(err, &badPIN) || badPIN.AttemptsLeft != 2 {
		t.Fatalf("failure after lockout = %v, want 2 attempts left", err)
	}
}

func TestAuthenticateFallsBackToCachedHash(t *testing.T) {
	a, src, _ := newTestAuthenticator(t, "1357")

	// Warm the cache with one successful lookup.
	if err := a.Authenticate(1, "1357"); err != nil {
		t.Fatalf("warm cache: %v", err)
	}

	src.err = errors.New("database is locked")
	if err := a.Authenticate(1, "1357"); err != nil {
		t.Fatalf("authenticate from cache: %v", err)
	}

	// Wrong PINs still count against the cached hash.
	var badPIN *common.BadPINError
	if err := a.Authenticate(1, "9999"); !errors.As(err, &badPIN) {
		t.Fatalf("wrong PIN from cache = %v, want BadPINError", err)
	}
}

func TestAuthenticateFailsClosedWithoutCache(t *testing.T) {
	a, src, _ := newTestAuthenticator(t, "1357")
	src.err = errors.New("database is locked")

	if err := a.Authenticate(1, "1357"); !errors.Is(err, common.ErrUnavailable) {
		t.Fatalf("authenticate = %v, want ErrUnavailable", err)
	}

	// Unavailability does not consume attempts.
	src.err = nil
	var badPIN *common.BadPINError
	if err := a.Authenticate(1, "9999"); !errors.As(err, &badPIN) || badPIN.AttemptsLeft != 2 {
		t.Fatalf("first real failure = %v, want 2 attempts left", err)
	}
}

func TestAuthenticateUnknownChild(t *testing.T) {
	a, _, _ := newTestAuthenticator(t, "1357")
	if err := a.Authenticate(42, "1357"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("authenticate unknown child = %v, want ErrNotFound", err)
	}
}

func TestSetPINValidatesAndStores(t *testing.T) {
	a, src, _ := newTestAuthenticator(t, "1357")

	if err := a.SetPIN(2, "1234"); !errors.Is(err, common.ErrValidation) {
		t.Fatalf("SetPIN sequential = %v, want ErrValidation", err)
	}
	if err := a.SetPIN(2, "2580"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}
	if src.hashes[2] == "" {
		t.Fatal("hash not stored in source")
	}
	if err := a.Authenticate(2, "2580"); err != nil {
		t.Fatalf("authenticate with new PIN: %v", err)
	}
}
