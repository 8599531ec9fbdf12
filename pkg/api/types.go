package api

import "time"

// EntityResponse is the paginated payload returned by entity collection queries.
type EntityResponse struct {
	Items      any              `json:"items"`
	Pagination PaginationResult `json:"pagination"`
}

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Total   int64 `json:"total"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	HasMore bool  `json:"has_more"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
	Indexers  []IndexerStatus `json:"indexers"`
}

// IndexerStatus represents the status of a single indexer.
type IndexerStatus struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	LatestBlock uint64 `json:"latest_block"`
	EntityCount int64  `json:"entity_count"`
	Healthy     bool   `json:"healthy"`
}

// IndexerInfo represents information about an available indexer.
type IndexerInfo struct {
	Type        string   `json:"type"`
	Name        string   `json:"name"`
	EntityKinds []string `json:"entity_kinds"`
	Endpoints   []string `json:"endpoints"`
}
