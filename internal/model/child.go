package model

import "time"

type Parent struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Child is a kid profile. FamcoinBalance is the confirmed balance and is
// mutated only inside settlement transactions.
type Child struct {
	ID             int64     `json:"id"`
	ParentID       int64     `json:"parent_id"`
	Name           string    `json:"name"`
	Age            int       `json:"age"`
	PINHash        string    `json:"-"`
	FamcoinBalance int       `json:"famcoin_balance"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChildSession is an authenticated child login. Dev sessions are issued by
// the bypass strategy and are exempt from expiry.
type ChildSession struct {
	ID           int64     `json:"id"`
	Token        string    `json:"token"`
	ChildID      int64     `json:"child_id"`
	Dev          bool      `json:"dev"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}
