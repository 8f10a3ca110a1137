// Package services holds the business logic between the HTTP handlers and the
// store, queue and aggregation engine.
package services

import (
	"errors"
	"net/http"

	"github.com/soltixdb/unitmetrics/internal/aggregation"
	"github.com/soltixdb/unitmetrics/internal/buckets"
	"github.com/soltixdb/unitmetrics/internal/units"
)

// Error codes returned to clients
const (
	CodeInvalidUnit          = "INVALID_UNIT"
	CodeInvalidType          = "INVALID_TYPE"
	CodeUnitQuantityMismatch = "UNIT_QUANTITY_MISMATCH"
	CodeInvalidRange         = "INVALID_RANGE"
	CodeMissingUserID        = "MISSING_USER_ID"
	CodeAggregationFailed    = "AGGREGATION_FAILED"
	CodeStorageError         = "STORAGE_ERROR"
	CodeQueueUnavailable     = "QUEUE_UNAVAILABLE"
)

var codeStatus = map[string]int{
	CodeInvalidUnit:          http.StatusBadRequest,
	CodeInvalidType:          http.StatusBadRequest,
	CodeUnitQuantityMismatch: http.StatusBadRequest,
	CodeInvalidRange:         http.StatusBadRequest,
	CodeMissingUserID:        http.StatusBadRequest,
	CodeAggregationFailed:    http.StatusServiceUnavailable,
	CodeStorageError:         http.StatusInternalServerError,
	CodeQueueUnavailable:     http.StatusServiceUnavailable,
}

// ServiceError represents a service layer error
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// StatusCode maps the error code to an HTTP status
func (e *ServiceError) StatusCode() int {
	if status, ok := codeStatus[e.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NewServiceError creates a new ServiceError
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// NewServiceErrorWithDetails creates a new ServiceError with details
func NewServiceErrorWithDetails(code, message string, details map[string]interface{}) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// translateError maps engine errors onto client-facing service errors.
// Errors it does not recognise become fallbackCode.
func translateError(err error, fallbackCode string) *ServiceError {
	var (
		svcErr      *ServiceError
		unknownUnit *units.UnknownUnitError
		unknownType *units.UnknownQuantityError
		mismatch    *units.UnitQuantityMismatchError
		invalid     *buckets.InvalidRangeError
		source      *aggregation.SourceError
	)

	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.As(err, &unknownUnit):
		return NewServiceErrorWithDetails(CodeInvalidUnit, err.Error(), map[string]interface{}{
			"field": "unit",
			"value": unknownUnit.Symbol,
		})
	case errors.As(err, &unknownType):
		return NewServiceErrorWithDetails(CodeInvalidType, err.Error(), map[string]interface{}{
			"field": "type",
			"value": unknownType.Symbol,
		})
	case errors.As(err, &mismatch):
		return NewServiceErrorWithDetails(CodeUnitQuantityMismatch, err.Error(), map[string]interface{}{
			"field":    "unit",
			"unit":     mismatch.Unit.String(),
			"expected": mismatch.Expected.String(),
			"actual":   mismatch.Actual.String(),
		})
	case errors.As(err, &invalid):
		return NewServiceErrorWithDetails(CodeInvalidRange, err.Error(), map[string]interface{}{
			"field":  invalid.Field,
			"reason": invalid.Reason,
		})
	case errors.As(err, &source):
		return NewServiceErrorWithDetails(CodeAggregationFailed, "Failed to aggregate metrics", map[string]interface{}{
			"error":   source.Err.Error(),
			"timeout": source.Timeout(),
		})
	default:
		return NewServiceErrorWithDetails(fallbackCode, "Internal error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
