package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/relvacode/iso8601"
)

// MetricsQueryRequest selects a range of one owner's metrics.
// GET reads it from the query string, POST from a JSON body.
type MetricsQueryRequest struct {
	Type          string `json:"type"`
	Unit          string `json:"unit"`
	StartDate     string `json:"startDate"`
	EndDate       string `json:"endDate"`
	MaxDataPoints int    `json:"maxDataPoints"` // 0 = server default

	StartParsed time.Time `json:"-"`
	EndParsed   time.Time `json:"-"`
}

// NewMetricsQueryRequestFromQuery reads the request from query parameters
func NewMetricsQueryRequestFromQuery(c *fiber.Ctx) (*MetricsQueryRequest, error) {
	req := &MetricsQueryRequest{
		Type:      c.Query("type"),
		Unit:      c.Query("unit"),
		StartDate: restoreOffsetSign(c.Query("startDate")),
		EndDate:   restoreOffsetSign(c.Query("endDate")),
	}

	if raw := c.Query("maxDataPoints"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, badRequest("maxDataPoints must be an integer")
		}
		req.MaxDataPoints = n
	}

	return req, nil
}

// restoreOffsetSign undoes form decoding of an unescaped "+" in a UTC offset,
// e.g. "2025-09-01T00:00:00 07:00" back to "2025-09-01T00:00:00+07:00".
func restoreOffsetSign(value string) string {
	value = strings.TrimSpace(value)
	i := strings.LastIndexByte(value, ' ')
	if i < 0 || i == len(value)-1 || !strings.ContainsRune(value[:i], 'T') {
		return value
	}
	if c := value[i+1]; c < '0' || c > '9' {
		return value
	}
	return value[:i] + "+" + value[i+1:]
}

// Validate checks that both dates are present ISO 8601 timestamps. Ordering,
// units and the point budget are checked by the service.
func (q *MetricsQueryRequest) Validate() error {
	if q.StartDate == "" {
		return badRequest("startDate is required")
	}
	if q.EndDate == "" {
		return badRequest("endDate is required")
	}

	start, err := iso8601.ParseString(q.StartDate)
	if err != nil {
		return badRequest("startDate must be in ISO 8601 format")
	}
	end, err := iso8601.ParseString(q.EndDate)
	if err != nil {
		return badRequest("endDate must be in ISO 8601 format")
	}

	q.StartParsed = start
	q.EndParsed = end
	return nil
}
