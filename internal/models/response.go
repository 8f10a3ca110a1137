package models

import (
	"github.com/soltixdb/unitmetrics/internal/store"
)

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Storage   string `json:"storage"`
}

// MetricResponse is a stored record as returned to clients
type MetricResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"userId"`
	Type      string  `json:"type"`
	Unit      string  `json:"unit"`
	Value     float64 `json:"value"`
	Date      string  `json:"date"`
	CreatedAt string  `json:"createdAt"`
}

// NewMetricResponse converts a record for output
func NewMetricResponse(r *store.Record) MetricResponse {
	return MetricResponse{
		ID:        r.ID,
		UserID:    r.OwnerID,
		Type:      r.Quantity.String(),
		Unit:      r.Unit.String(),
		Value:     r.Value,
		Date:      r.Timestamp.UTC().Format(timeLayout),
		CreatedAt: r.CreatedAt.UTC().Format(timeLayout),
	}
}

// timeLayout is ISO 8601 with milliseconds
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// WriteResponse represents a queued write
type WriteResponse struct {
	Accepted  bool   `json:"accepted"`
	ID        string `json:"id"`
	RequestID string `json:"request_id"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
