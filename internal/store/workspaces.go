package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO workspaces (id, owner_id, name, description, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, (
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM workspaces WHERE owner_id = $2 AND deleted_at IS NULL
		))
		RETURNING sort_order, created_at, updated_at
	`, w.ID, w.OwnerID, w.Name, w.Description, w.Active).Scan(&w.Order, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Workspace{}, fmt.Errorf("insert workspace: %w", err)
	}
	return w, nil
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	var w Workspace
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, description, is_active, sort_order, created_at, updated_at
		FROM workspaces WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&w.ID, &w.OwnerID, &w.Name, &w.Description, &w.Active, &w.Order, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Workspace{}, mapNoRows(err)
	}
	return w, nil
}

// ListWorkspacesForUser returns workspaces the user owns plus workspaces the
// user holds any grant on, ordered for display.
func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT w.id, w.owner_id, w.name, w.description, w.is_active, w.sort_order, w.created_at, w.updated_at
		FROM workspaces w
		LEFT JOIN workspace_user_permissions wp ON wp.workspace_id = w.id AND wp.user_id = $1
		WHERE w.deleted_at IS NULL AND (w.owner_id = $1 OR wp.user_id IS NOT NULL)
		ORDER BY w.sort_order, w.created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	var out []Workspace
	for rows.Next() {
		var w Workspace
		if err := rows.Scan(&w.ID, &w.OwnerID, &w.Name, &w.Description, &w.Active, &w.Order, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateWorkspace(ctx context.Context, id, name, description string, active bool) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET name=$2, description=$3, is_active=$4, updated_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
	`, id, name, description, active)
	if err != nil {
		return fmt.Errorf("update workspace: %w", err)
	}
	return requireRow(res)
}

// DeleteWorkspace soft-deletes. Child rows stay in place until the row is
// purged for real, at which point the FK cascade takes them.
func (s *PostgresStore) DeleteWorkspace(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return fmt.Errorf("delete workspace: %w", err)
	}
	return requireRow(res)
}
