package store

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/famstack/famcoin/internal/model"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.ChildSession, error) {
	var sess model.ChildSession
	var dev int
	err := scanner.Scan(
		&sess.ID, &sess.Token, &sess.ChildID, &dev,
		&sess.CreatedAt, &sess.LastActiveAt, &sess.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	sess.Dev = dev != 0
	return &sess, nil
}

const sessionCols = `id, token, child_id, dev, created_at, last_active_at, expires_at`

// Create issues a new session for the child with a crypto-random token.
// Any previous sessions for the same child are invalidated first, so at most
// one session per child is ever valid.
func (s *SessionStore) Create(childID int64, ttl time.Duration, dev bool) (*model.ChildSession, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	expiresAt := time.Now().UTC().Add(ttl)

	var devFlag int
	if dev {
		devFlag = 1
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM child_sessions WHERE child_id = ?`, childID); err != nil {
		return nil, fmt.Errorf("invalidate old sessions: %w", err)
	}

	result, err := tx.Exec(
		`INSERT INTO child_sessions (token, child_id, dev, expires_at) VALUES (?, ?, ?, ?)`,
		token, childID, devFlag, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM child_sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the session for the token regardless of expiry; the
// caller decides expiry so dev sessions can be exempted.
func (s *SessionStore) GetByToken(token string) (*model.ChildSession, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM child_sessions WHERE token = ?`, token)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

func (s *SessionStore) Touch(id int64) error {
	_, err := s.db.Exec(
		`UPDATE child_sessions SET last_active_at = datetime('now') WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (s *SessionStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM child_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes expired sessions. Dev sessions are left alone.
func (s *SessionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM child_sessions WHERE dev = 0 AND expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
