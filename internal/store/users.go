package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password_hash, avatar, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Name, u.Email, u.PasswordHash, u.Avatar, u.Status)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, avatar, status, created_at, updated_at, last_login_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Status, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return User{}, mapNoRows(err)
	}
	return u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password_hash, avatar, status, created_at, updated_at, last_login_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Avatar, &u.Status, &u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt)
	if err != nil {
		return User{}, mapNoRows(err)
	}
	return u, nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET last_login_at=NOW(), updated_at=NOW() WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasGlobalPermission(ctx context.Context, userID, permission string) (bool, error) {
	return s.exists(ctx, `
		SELECT EXISTS(SELECT 1 FROM global_permissions WHERE user_id=$1 AND permission=$2)
	`, userID, permission)
}

func (s *PostgresStore) ListGlobalPermissions(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT permission FROM global_permissions WHERE user_id=$1 ORDER BY permission
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list global permissions: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan global permission: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GrantGlobalPermission(ctx context.Context, userID, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO global_permissions (user_id, permission)
		VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, userID, permission)
	if err != nil {
		return fmt.Errorf("grant global permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) RevokeGlobalPermission(ctx context.Context, userID, permission string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM global_permissions WHERE user_id=$1 AND permission=$2
	`, userID, permission)
	if err != nil {
		return fmt.Errorf("revoke global permission: %w", err)
	}
	return nil
}
