package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

func (s *PostgresStore) CreateDocument(ctx context.Context, d Document) (Document, error) {
	tags, err := json.Marshal(tagsOrEmpty(d.Tags))
	if err != nil {
		return Document{}, fmt.Errorf("encode tags: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO documents (id, binder_id, owner_id, title, description, tags, path, mime_type, size_bytes, is_public, is_searchable, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, (
			SELECT COALESCE(MAX(sort_order), 0) + 1 FROM documents WHERE binder_id = $2
		))
		RETURNING sort_order, created_at, updated_at
	`, d.ID, d.BinderID, d.OwnerID, d.Title, d.Description, tags, d.Path, d.MimeType, d.Size, d.Public, d.Searchable).
		Scan(&d.Order, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("insert document: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, binder_id, owner_id, title, description, tags, path, mime_type, size_bytes, is_public, is_searchable, sort_order, created_at, updated_at
		FROM documents WHERE id = $1
	`, id)
	d, err := scanDocument(row.Scan)
	if err != nil {
		return Document{}, mapNoRows(err)
	}
	return d, nil
}

func (s *PostgresStore) ListDocuments(ctx context.Context, binderID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, binder_id, owner_id, title, description, tags, path, mime_type, size_bytes, is_public, is_searchable, sort_order, created_at, updated_at
		FROM documents WHERE binder_id = $1
		ORDER BY sort_order, created_at
	`, binderID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, d Document) error {
	tags, err := json.Marshal(tagsOrEmpty(d.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, description=$3, tags=$4, path=$5, mime_type=$6, size_bytes=$7, is_public=$8, is_searchable=$9, updated_at=NOW()
		WHERE id=$1
	`, d.ID, d.Title, d.Description, tags, d.Path, d.MimeType, d.Size, d.Public, d.Searchable)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireRow(res)
}

// MoveDocument reparents a document and appends it to the target binder's
// ordering.
func (s *PostgresStore) MoveDocument(ctx context.Context, id, binderID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET binder_id=$2,
			sort_order=(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM documents WHERE binder_id=$2),
			updated_at=NOW()
		WHERE id=$1
	`, id, binderID)
	if err != nil {
		return fmt.Errorf("move document: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res)
}

// SearchDocuments is the fallback search path, a case-insensitive match over
// title and description of searchable documents the user can reach through
// ownership, a direct grant, or public visibility. mimes, when non-empty,
// restricts the match to those MIME types.
func (s *PostgresStore) SearchDocuments(ctx context.Context, userID, query string, mimes []string, limit int) ([]Document, error) {
	q := `
		SELECT DISTINCT d.id, d.binder_id, d.owner_id, d.title, d.description, d.tags, d.path, d.mime_type, d.size_bytes, d.is_public, d.is_searchable, d.sort_order, d.created_at, d.updated_at
		FROM documents d
		LEFT JOIN document_user_permissions dp ON dp.document_id = d.id AND dp.user_id = $1
		WHERE d.is_searchable
			AND (d.title ILIKE '%' || $2 || '%' OR d.description ILIKE '%' || $2 || '%')
			AND (d.owner_id = $1 OR dp.user_id IS NOT NULL OR d.is_public)`
	args := []any{userID, query}
	if len(mimes) > 0 {
		placeholders := make([]string, 0, len(mimes))
		for _, mime := range mimes {
			args = append(args, mime)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		q += " AND d.mime_type IN (" + strings.Join(placeholders, ", ") + ")"
	}
	args = append(args, limit)
	q += fmt.Sprintf(" ORDER BY d.title LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocument(scan func(dest ...any) error) (Document, error) {
	var d Document
	var tags []byte
	err := scan(&d.ID, &d.BinderID, &d.OwnerID, &d.Title, &d.Description, &tags, &d.Path, &d.MimeType, &d.Size, &d.Public, &d.Searchable, &d.Order, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &d.Tags); err != nil {
			return Document{}, fmt.Errorf("decode tags: %w", err)
		}
	}
	return d, nil
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
