package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/tariffdesk/tariffdesk/internal/platform/errors"
	"github.com/tariffdesk/tariffdesk/internal/services/api/storage"
	"github.com/tariffdesk/tariffdesk/internal/services/api/user"
)

const userColumns = `email, password_hash, role, created_at, updated_at`

func scanUser(scan func(dest ...any) error) (user.User, error) {
	var u user.User
	var role string
	var createdAt, updatedAt int64
	if err := scan(&u.Email, &u.PasswordHash, &role, &createdAt, &updatedAt); err != nil {
		return user.User{}, err
	}
	u.Role = user.Role(role)
	u.CreatedAt = fromMillis(createdAt)
	u.UpdatedAt = fromMillis(updatedAt)
	return u, nil
}

// CreateUser inserts an account, failing when the email is taken.
func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)`,
		u.Email, u.PasswordHash, string(u.Role), toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if isUniqueViolation(err) {
		return apperrors.New(apperrors.CodeUserExists, "an account with that email already exists")
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// PutUser inserts or replaces an account's hash and role.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (email) DO UPDATE SET
    password_hash = excluded.password_hash,
    role = excluded.role,
    updated_at = excluded.updated_at`,
		u.Email, u.PasswordHash, string(u.Role), toMillis(u.CreatedAt), toMillis(u.UpdatedAt))
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser loads an account by email.
func (s *Store) GetUser(ctx context.Context, email string) (user.User, error) {
	if err := s.ready(ctx); err != nil {
		return user.User{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, storage.ErrNotFound
	}
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all accounts ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserPassword replaces an account's password hash.
func (s *Store) UpdateUserPassword(ctx context.Context, email, passwordHash string, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = ? WHERE email = ?`,
		passwordHash, toMillis(updatedAt), email)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return affectedOrNotFound(result)
}

// UpdateUserRole changes an account's role.
func (s *Store) UpdateUserRole(ctx context.Context, email string, role user.Role, updatedAt time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE email = ?`,
		string(role), toMillis(updatedAt), email)
	if err != nil {
		return fmt.Errorf("update user role: %w", err)
	}
	return affectedOrNotFound(result)
}

// DeleteUser removes an account.
func (s *Store) DeleteUser(ctx context.Context, email string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM users WHERE email = ?`, email)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affectedOrNotFound(result)
}
