package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/study-buddy/internal/apperror"
	"github.com/sakif/study-buddy/internal/model"
	"github.com/sakif/study-buddy/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, password_hash, github_id, login, created_at, updated_at`

// Create inserts a new account. user.ID must already be set to the email.
// Returns apperror.ErrConflict if the id is taken.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.Email,
		user.PasswordHash,
		nullableGitHubID(user.GitHubID),
		user.Login,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		// modernc reports constraint failures only through the message text.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return apperror.Conflict("user", user.ID)
		}
		return fmt.Errorf("sqlite: inserting user %s: %w", user.ID, err)
	}
	return nil
}

// GetUserByID retrieves a user by id (email).
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// UpsertGitHub links a GitHub identity to an account.
//
// Lookup order:
//  1. a row with the same github_id → refresh its login
//  2. a row whose id is the GitHub email → attach the github_id to it
//  3. otherwise insert a new password-less account
//
// On return user holds the canonical stored record.
func (db *DB) UpsertGitHub(ctx context.Context, user *model.User) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	existing, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, user.GitHubID))
	switch {
	case err == nil:
		existing.Login = user.Login
		existing.UpdatedAt = now
		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET login = ?, updated_at = ? WHERE id = ?`,
			existing.Login, existing.UpdatedAt, existing.ID,
		); err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", existing.ID, err)
		}
		*user = *existing

	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`UPDATE users SET github_id = ?, login = ?, updated_at = ? WHERE id = ?`,
			user.GitHubID, user.Login, now, user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: linking github account to %s: %w", user.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			user.CreatedAt = now
			user.UpdatedAt = now
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
				user.ID, user.Email, "", user.GitHubID, user.Login, user.CreatedAt, user.UpdatedAt,
			); err != nil {
				return fmt.Errorf("sqlite: inserting user (githubID=%d): %w", user.GitHubID, err)
			}
		} else {
			linked, err := scanUser(tx.QueryRowContext(ctx,
				`SELECT `+userColumns+` FROM users WHERE id = ?`, user.ID))
			if err != nil {
				return fmt.Errorf("sqlite: reloading user %s: %w", user.ID, err)
			}
			*user = *linked
		}

	default:
		return fmt.Errorf("sqlite: looking up user by github_id %d: %w", user.GitHubID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing upsert: %w", err)
	}
	return nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var (
		u        model.User
		githubID sql.NullInt64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&githubID,
		&u.Login,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	u.GitHubID = githubID.Int64
	return &u, nil
}

func nullableGitHubID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
