package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

const (
	RoleAdmin     = "admin"
	RolePresident = "president"
	RoleUser      = "user"
	RoleAudience  = "audience"
)

// UpsertUser creates a user or resets its password and roles.
func UpsertUser(ctx context.Context, db *sql.DB, username, password string, roles ...string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("db.upsert_user.hash: %w", err)
	}
	if len(roles) == 0 {
		roles = []string{RoleUser}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO user (username, password_hash, roles) VALUES (?, ?, ?)
		ON CONFLICT (username) DO UPDATE SET
			password_hash = excluded.password_hash,
			roles = excluded.roles`,
		username,
		hash,
		strings.Join(roles, ","),
	)
	if err != nil {
		return fmt.Errorf("db.upsert_user: %w", err)
	}
	return nil
}

// CheckPassword compares password with the stored hash of username.
func CheckPassword(ctx context.Context, db *sql.DB, username, password string) error {
	var hash []byte
	err := db.QueryRowContext(ctx, `SELECT password_hash FROM user WHERE username = ?`, username).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("db.get_user: %w", err)
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

func UserRoles(ctx context.Context, db *sql.DB, username string) ([]string, error) {
	var roles string
	err := db.QueryRowContext(ctx, `SELECT roles FROM user WHERE username = ?`, username).Scan(&roles)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("db.get_user.roles: %w", err)
	}
	if roles == "" {
		return nil, nil
	}
	return strings.Split(roles, ","), nil
}

func StoreToken(ctx context.Context, db *sql.DB, username, tokenID, refreshTokenID string, expiration time.Time) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO token (username, token_id, refresh_token_id, expiration)
		VALUES (?, ?, ?, ?)`,
		username,
		tokenID,
		refreshTokenID,
		expiration,
	)
	if err != nil {
		return fmt.Errorf("db.insert_token: %w", err)
	}
	return nil
}

// ConsumeToken deletes a stored refresh token and returns its expiration.
// Each refresh token can be used once.
func ConsumeToken(ctx context.Context, db *sql.DB, username, tokenID, refreshTokenID string) (time.Time, error) {
	var expiration time.Time

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return expiration, fmt.Errorf("db.begin_tx: %w", err)
	}
	defer tx.Rollback()

	const where = `
		WHERE username = ?
			AND token_id = ?
			AND refresh_token_id = ?`
	err = tx.QueryRowContext(ctx, `SELECT expiration FROM token`+where, username, tokenID, refreshTokenID).
		Scan(&expiration)
	if errors.Is(err, sql.ErrNoRows) {
		return expiration, fmt.Errorf("token: %w", ErrNotFound)
	}
	if err != nil {
		return expiration, fmt.Errorf("db.get_token: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM token`+where, username, tokenID, refreshTokenID); err != nil {
		return expiration, fmt.Errorf("db.delete_token: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return expiration, fmt.Errorf("db.delete_token.commit: %w", err)
	}
	return expiration, nil
}
