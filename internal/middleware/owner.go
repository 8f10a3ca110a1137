package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/soltixdb/unitmetrics/internal/logging"
	"github.com/soltixdb/unitmetrics/internal/models"
)

// Owner headers, checked in order
const (
	UserIDHeader    = "user-id"
	AltUserIDHeader = "userid"
)

const userIDLocal = "user_id"

// RequireUserID rejects requests without an owner header and stores the
// owner for handlers (UserID) and request logging.
func RequireUserID(logger *logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get(UserIDHeader))
		if userID == "" {
			userID = strings.TrimSpace(c.Get(AltUserIDHeader))
		}

		if userID == "" {
			logger.Warn("User ID missing",
				"path", c.Path(),
				"method", c.Method(),
				"ip", c.IP(),
			)
			return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
				Error: models.ErrorDetail{
					Code:    "MISSING_USER_ID",
					Message: "User ID is required",
					Path:    c.Path(),
				},
			})
		}

		c.Locals(userIDLocal, userID)
		c.SetUserContext(logging.WithUserID(c.UserContext(), userID))

		return c.Next()
	}
}

// UserID returns the owner set by RequireUserID
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
