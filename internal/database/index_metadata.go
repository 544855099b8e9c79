package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonesrussell/north-cloud/index-buffer/internal/domain"
)

// ErrIndexMetadataNotFound is returned when no row exists for an index.
var ErrIndexMetadataNotFound = errors.New("index metadata not found")

// SaveIndexMetadata inserts or updates the row for name and returns it.
func (c *Connection) SaveIndexMetadata(ctx context.Context, name, status string) (*domain.IndexMetadata, error) {
	const query = `
		INSERT INTO index_metadata (index_name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (index_name)
		DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
		RETURNING id, index_name, status, created_at, updated_at`

	m := &domain.IndexMetadata{}
	err := c.DB.QueryRowContext(ctx, query, name, status, time.Now().UTC()).
		Scan(&m.ID, &m.IndexName, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("save index metadata %s: %w", name, err)
	}
	return m, nil
}

// GetIndexMetadata returns the row for name.
func (c *Connection) GetIndexMetadata(ctx context.Context, name string) (*domain.IndexMetadata, error) {
	const query = `
		SELECT id, index_name, status, created_at, updated_at
		FROM index_metadata
		WHERE index_name = $1`

	m := &domain.IndexMetadata{}
	err := c.DB.QueryRowContext(ctx, query, name).
		Scan(&m.ID, &m.IndexName, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIndexMetadataNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get index metadata %s: %w", name, err)
	}
	return m, nil
}

// ListIndexMetadata returns rows with the given status, or all rows when
// status is empty, ordered by name.
func (c *Connection) ListIndexMetadata(ctx context.Context, status string) ([]*domain.IndexMetadata, error) {
	query := `SELECT id, index_name, status, created_at, updated_at FROM index_metadata`
	var args []any
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY index_name`

	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list index metadata: %w", err)
	}
	defer rows.Close()

	var out []*domain.IndexMetadata
	for rows.Next() {
		m := &domain.IndexMetadata{}
		if err = rows.Scan(&m.ID, &m.IndexName, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan index metadata: %w", err)
		}
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate index metadata: %w", err)
	}
	return out, nil
}
