package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/famstack/famcoin/internal/common"
)

const (
	maxPINFailures = 3
	lockoutWindow  = 5 * time.Minute

	// SessionTTL is how long a confirmed child session stays valid.
	SessionTTL = 2 * time.Hour
)

// CredentialSource is where PIN hashes live. The DB-backed ChildStore
// implements it; tests substitute fakes, including failing ones to exercise
// the cached-hash fallback.
type CredentialSource interface {
	GetPINHash(childID int64) (string, error)
	SetPINHash(childID int64, hash string) error
}

// Strategy authenticates a child. Exactly one implementation is selected at
// startup: PIN-based normally, bypass when dev mode is configured. Business
// logic never checks environment flags itself.
type Strategy interface {
	Authenticate(childID int64, pin string) error
	// Dev reports whether sessions issued under this strategy are
	// developer sessions (exempt from expiry).
	Dev() bool
}

type attemptState struct {
	failures    int
	lockedUntil time.Time
}

// PINAuthenticator validates PINs against the credential source with a
// three-strike lockout. Hashes seen from the source are cached in memory so
// validation keeps working when the source errors; with no cached hash it
// fails closed without consuming an attempt.
type PINAuthenticator struct {
	source CredentialSource

	mu       sync.Mutex
	cache    map[int64]string
	attempts map[int64]*attemptState
	now      func() time.Time
}

func NewPINAuthenticator(source CredentialSource) *PINAuthenticator {
	return &PINAuthenticator{
		source:   source,
		cache:    make(map[int64]string),
		attempts: make(map[int64]*attemptState),
		now:      time.Now,
	}
}

func (a *PINAuthenticator) Dev() bool { return false }

func (a *PINAuthenticator) Authenticate(childID int64, pin string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := a.now()
	st := a.attempts[childID]
	if st != nil && now.Before(st.lockedUntil) {
		// Locked: reject without hashing or consuming an attempt.
		return &common.LockedError{Until: st.lockedUntil}
	}

	hash, err := a.source.GetPINHash(childID)
	switch {
	case err == nil:
		a.cache[childID] = hash
	case errors.Is(err, common.ErrNotFound):
		return err
	default:
		// Source unreachable — fall back to the cached hash.
		cached, ok := a.cache[childID]
		if !ok {
			return common.ErrUnavailable
		}
		hash = cached
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) != nil {
		if st == nil {
			st = &attemptState{}
			a.attempts[childID] = st
		}
		st.failures++
		if st.failures >= maxPINFailures {
			st.lockedUntil = now.Add(lockoutWindow)
			st.failures = 0
			return &common.LockedError{Until: st.lockedUntil}
		}
		return &common.BadPINError{AttemptsLeft: maxPINFailures - st.failures}
	}

	delete(a.attempts, childID)
	return nil
}

// SetPIN validates the raw PIN's format, hashes it, and stores it both in
// the credential source and the local cache. It does not authenticate.
func (a *PINAuthenticator) SetPIN(childID int64, rawPIN string) error {
	if err := ValidatePINFormat(rawPIN); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawPIN), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := a.source.SetPINHash(childID, string(hash)); err != nil {
		return err
	}

	a.mu.Lock()
	a.cache[childID] = string(hash)
	a.mu.Unlock()
	return nil
}

// BypassAuthenticator authenticates any child without a PIN. Only wired when
// the dev-mode flag is on; sessions it produces never expire.
type BypassAuthenticator struct{}

func (BypassAuthenticator) Authenticate(childID int64, pin string) error { return nil }

func (BypassAuthenticator) Dev() bool { return true }
