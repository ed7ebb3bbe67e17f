package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/movie-spaces/internal/domain"
)

// UsersRepository stores auth accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

// NewAccount captures the fields of a sign-up.
type NewAccount struct {
	Email        string
	PasswordHash string
	Username     string
}

// Create inserts a user and its public profile in one transaction. Email is
// stored lower-cased. A taken email or username returns an error wrapping
// ErrConflict.
func (r *UsersRepository) Create(ctx context.Context, acct NewAccount) (domain.User, domain.Profile, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.User{}, domain.Profile{}, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insertUser = `
        INSERT INTO users (id, email, password_hash)
        VALUES ($1,$2,$3)
        RETURNING id, email, password_hash, created_at
    `
	var u domain.User
	err = tx.QueryRow(ctx, insertUser, uuid.NewString(), strings.ToLower(acct.Email), acct.PasswordHash).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.Profile{}, fmt.Errorf("email already registered: %w", ErrConflict)
		}
		return domain.User{}, domain.Profile{}, fmt.Errorf("insert user: %w", err)
	}

	insertProfile := `INSERT INTO profiles (id, username, email) VALUES ($1,$2,$3) RETURNING ` + profileColumns
	p, err := scanProfile(tx.QueryRow(ctx, insertProfile, u.ID, acct.Username, u.Email))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.User{}, domain.Profile{}, fmt.Errorf("username already taken: %w", ErrConflict)
		}
		return domain.User{}, domain.Profile{}, fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.User{}, domain.Profile{}, err
	}
	return u, p, nil
}

// GetByEmail looks a user up case-insensitively.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	const query = `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

// SessionsRepository tracks issued sessions so sign-out can revoke them.
type SessionsRepository struct {
	pool *pgxpool.Pool
}

// Create records a session with a fresh id.
func (r *SessionsRepository) Create(ctx context.Context, userID string, expiresAt time.Time) (domain.Session, error) {
	const query = `
        INSERT INTO sessions (id, user_id, expires_at)
        VALUES ($1,$2,$3)
        RETURNING id, user_id, expires_at, created_at
    `
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, uuid.NewString(), userID, expiresAt).
		Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		return domain.Session{}, fmt.Errorf("insert session: %w", err)
	}
	return s, nil
}

// Get returns a session that has not expired.
func (r *SessionsRepository) Get(ctx context.Context, id string) (domain.Session, error) {
	const query = `
        SELECT id, user_id, expires_at, created_at
        FROM sessions
        WHERE id = $1 AND expires_at > now()
    `
	var s domain.Session
	err := r.pool.QueryRow(ctx, query, id).Scan(&s.ID, &s.UserID, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, ErrNotFound
		}
		return domain.Session{}, err
	}
	return s, nil
}

// Delete revokes a session. Deleting an unknown session is not an error.
func (r *SessionsRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PasswordResetsRepository stores hashed one-time reset tokens.
type PasswordResetsRepository struct {
	pool *pgxpool.Pool
}

// Create stores a reset token hash for a user.
func (r *PasswordResetsRepository) Create(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	const query = `INSERT INTO password_resets (token_hash, user_id, expires_at) VALUES ($1,$2,$3)`
	if _, err := r.pool.Exec(ctx, query, tokenHash, userID, expiresAt); err != nil {
		return fmt.Errorf("insert password reset: %w", err)
	}
	return nil
}

// Redeem marks an unexpired, unused token as used, stores passwordHash for
// its user and revokes every session of that user in one transaction. It
// returns the user id, or ErrNotFound when the token cannot be used.
func (r *PasswordResetsRepository) Redeem(ctx context.Context, tokenHash, passwordHash string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const consume = `
        UPDATE password_resets
        SET used_at = now()
        WHERE token_hash = $1 AND used_at IS NULL AND expires_at > now()
        RETURNING user_id
    `
	var userID string
	if err := tx.QueryRow(ctx, consume, tokenHash).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("consume password reset: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, userID, passwordHash)
	if err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrNotFound
	}
	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return "", fmt.Errorf("delete user sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return userID, nil
}
