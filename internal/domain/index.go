package domain

import "time"

// Index status values kept in the metadata registry.
const (
	IndexStatusActive  = "active"
	IndexStatusDeleted = "deleted"
)

// IndexMetadata is the registry row for an index created through this service.
type IndexMetadata struct {
	ID        int       `json:"id"`
	IndexName string    `json:"index_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateIndexRequest creates an index with an optional settings/mappings body.
type CreateIndexRequest struct {
	IndexName string         `binding:"required" json:"index_name"`
	Body      map[string]any `json:"body,omitempty"`
}

// BufferStatus describes the pending batch of one collection.
type BufferStatus struct {
	Collection string `json:"collection"`
	Pending    int    `json:"pending"`
	Threshold  int    `json:"threshold"`
}

// HealthStatus is returned by the health endpoint.
type HealthStatus struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}
