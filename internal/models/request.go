package models

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/relvacode/iso8601"

	"github.com/soltixdb/unitmetrics/internal/units"
	"github.com/soltixdb/unitmetrics/internal/utils"
)

// CreateMetricRequest is the body of POST /v1/metrics
type CreateMetricRequest struct {
	Date  string      `json:"date"`
	Value interface{} `json:"value"` // number; kept loose to report type errors
	Unit  string      `json:"unit"`

	DateParsed  time.Time `json:"-"`
	ValueParsed float64   `json:"-"`
}

// Validate checks the body shape and fills DateParsed and ValueParsed
func (r *CreateMetricRequest) Validate() error {
	if strings.TrimSpace(r.Date) == "" {
		return badRequest("Date is required")
	}
	date, err := iso8601.ParseString(r.Date)
	if err != nil {
		return badRequest("Date must be in ISO 8601 format")
	}

	if r.Value == nil {
		return badRequest("Value is required")
	}
	value, ok := utils.ToFloat64(r.Value)
	if !ok {
		return badRequest("Value must be a number")
	}

	if strings.TrimSpace(r.Unit) == "" {
		return badRequest("Unit is required")
	}
	if _, err := units.ParseUnit(r.Unit); err != nil {
		return badRequest("Unit must be one of: " + strings.Join(units.Symbols(units.AllUnits()), ", "))
	}

	r.DateParsed = date
	r.ValueParsed = value
	return nil
}

func badRequest(message string) *fiber.Error {
	return &fiber.Error{
		Code:    fiber.StatusBadRequest,
		Message: message,
	}
}
