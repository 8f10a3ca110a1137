package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/middleware"
	"github.com/soltixdb/unitmetrics/internal/models"
	"github.com/soltixdb/unitmetrics/internal/services"
)

// CreateMetric handles POST /v1/metrics
func (h *Handler) CreateMetric(c *fiber.Ctx) error {
	var req models.CreateMetricRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Failed to parse request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}

	if err := req.Validate(); err != nil {
		return errorResponse(c, err)
	}

	result, err := h.metrics.Ingest(c.UserContext(), services.IngestInput{
		OwnerID:   middleware.UserID(c),
		Value:     req.ValueParsed,
		Unit:      req.Unit,
		Timestamp: req.DateParsed,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	if result.Queued {
		return c.Status(fiber.StatusAccepted).JSON(models.WriteResponse{
			Accepted:  true,
			ID:        result.Record.ID,
			RequestID: logging.RequestIDFromContext(c.UserContext()),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.NewMetricResponse(result.Record))
}

// QueryMetrics handles GET /v1/metrics with query string parameters
func (h *Handler) QueryMetrics(c *fiber.Ctx) error {
	req, err := models.NewMetricsQueryRequestFromQuery(c)
	if err != nil {
		return errorResponse(c, err)
	}
	return h.executeQuery(c, req)
}

// QueryMetricsPost handles POST /v1/metrics/query with a JSON body
func (h *Handler) QueryMetricsPost(c *fiber.Ctx) error {
	var req models.MetricsQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: models.ErrorDetail{
				Code:    "INVALID_REQUEST",
				Message: "Failed to parse request body: " + err.Error(),
				Path:    c.Path(),
			},
		})
	}
	return h.executeQuery(c, &req)
}

func (h *Handler) executeQuery(c *fiber.Ctx, req *models.MetricsQueryRequest) error {
	if err := req.Validate(); err != nil {
		return errorResponse(c, err)
	}

	result, err := h.metrics.Query(c.UserContext(), services.QueryInput{
		OwnerID:    middleware.UserID(c),
		Quantity:   req.Type,
		TargetUnit: req.Unit,
		Start:      req.StartParsed,
		End:        req.EndParsed,
		MaxPoints:  req.MaxDataPoints,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(result)
}
