package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/models"
	"github.com/soltixdb/unitmetrics/internal/services"
	"github.com/soltixdb/unitmetrics/internal/store"
)

// Handler contains all HTTP handlers
type Handler struct {
	logger  *logging.Logger
	metrics *services.MetricsService
	store   store.Store
	version string
}

// New creates a new handler instance
func New(logger *logging.Logger, metricsService *services.MetricsService, st store.Store, version string) *Handler {
	return &Handler{
		logger:  logger,
		metrics: metricsService,
		store:   st,
		version: version,
	}
}

// errorResponse writes err in the common error envelope. Service errors keep
// their code; request validation errors become VALIDATION_ERROR.
func errorResponse(c *fiber.Ctx, err error) error {
	var (
		svcErr   *services.ServiceError
		fiberErr *fiber.Error
	)

	switch {
	case errors.As(err, &svcErr):
		return c.Status(svcErr.StatusCode()).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    svcErr.Code,
				Message: svcErr.Message,
				Path:    c.Path(),
				Details: svcErr.Details,
			},
		})
	case errors.As(err, &fiberErr):
		code := "ERROR"
		if fiberErr.Code == fiber.StatusBadRequest {
			code = "VALIDATION_ERROR"
		}
		return c.Status(fiberErr.Code).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    code,
				Message: fiberErr.Message,
				Path:    c.Path(),
			},
		})
	default:
		return err
	}
}
