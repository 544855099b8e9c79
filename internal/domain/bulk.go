// Package domain holds the request and response types shared by the search
// client, the services and the HTTP API.
package domain

// BulkItem is one encoded document in a bulk write. An empty ID lets the
// backend generate one.
type BulkItem struct {
	ID      string `json:"id,omitempty"`
	Payload []byte `json:"-"`
}

// ItemFailure describes one rejected bulk item.
type ItemFailure struct {
	Position int    `json:"position"`
	Index    string `json:"index"`
	ID       string `json:"id,omitempty"`
	Status   int    `json:"status"`
	Type     string `json:"type,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// BulkResult reports the outcome of a bulk write that reached the backend.
type BulkResult struct {
	TookMillis int64         `json:"took_ms"`
	Items      int           `json:"items"`
	Failures   []ItemFailure `json:"failures,omitempty"`
}

// HasFailures reports whether any item was rejected.
func (r *BulkResult) HasFailures() bool {
	return r != nil && len(r.Failures) > 0
}

// Succeeded returns the number of accepted items.
func (r *BulkResult) Succeeded() int {
	if r == nil {
		return 0
	}
	return r.Items - len(r.Failures)
}
