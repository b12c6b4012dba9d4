package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"paycanvas.org/internal/auth"
)

type sessionStore struct {
	db *sql.DB
}

// Replace swaps every session of the user for sess. The user row lock
// serializes concurrent logins and rotations of the same user.
func (s sessionStore) Replace(ctx context.Context, sess *auth.Session) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, sess.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from refresh_sessions where user_id = $1`, sess.UserID); err != nil {
		return err
	}
	if err := insertSession(ctx, tx, sess); err != nil {
		return err
	}
	return tx.Commit()
}

func (s sessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	if s.db == nil {
		return nil, errNoDB
	}
	var sess auth.Session
	err := s.db.QueryRowContext(ctx, `
		select id, user_id, token_hash, issued_at, expires_at
		from refresh_sessions
		where token_hash = $1
	`, tokenHash).Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.IssuedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// Rotate deletes oldID and inserts next in one transaction. When a concurrent
// rotation already removed oldID the delete affects no rows and nothing is inserted.
func (s sessionStore) Rotate(ctx context.Context, oldID string, next *auth.Session) error {
	if s.db == nil {
		return errNoDB
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockUser(ctx, tx, next.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrSessionNotFound
		}
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from refresh_sessions where id = $1`, oldID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n != 1 {
		return auth.ErrSessionNotFound
	}
	if _, err := tx.ExecContext(ctx, `delete from refresh_sessions where user_id = $1`, next.UserID); err != nil {
		return err
	}
	if err := insertSession(ctx, tx, next); err != nil {
		return err
	}
	return tx.Commit()
}

func (s sessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if s.db == nil {
		return errNoDB
	}
	_, err := s.db.ExecContext(ctx, `delete from refresh_sessions where token_hash = $1`, tokenHash)
	return err
}

func (s sessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if s.db == nil {
		return 0, errNoDB
	}
	res, err := s.db.ExecContext(ctx, `delete from refresh_sessions where expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// lockUser holds the user row until the transaction ends.
func lockUser(ctx context.Context, tx *sql.Tx, userID string) error {
	var id string
	return tx.QueryRowContext(ctx, `select id from users where id = $1 for update`, userID).Scan(&id)
}

func insertSession(ctx context.Context, tx *sql.Tx, sess *auth.Session) error {
	_, err := tx.ExecContext(ctx, `
		insert into refresh_sessions (id, user_id, token_hash, issued_at, expires_at)
		values ($1, $2, $3, $4, $5)
	`, sess.ID, sess.UserID, sess.TokenHash, sess.IssuedAt, sess.ExpiresAt)
	return mapWriteError(err)
}
