package auth

import (
	"time"

	"github.com/famstack/famcoin/internal/model"
)

// SessionExpired reports whether a session is past its expiry. Developer
// sessions never expire for the lifetime of the process.
func SessionExpired(sess *model.ChildSession, now time.Time) bool {
	if sess.Dev {
		return false
	}
	return !now.Before(sess.ExpiresAt)
}
