package handlers

import (
	"strings"

	"github.com/arcade/backend/internal/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// callerID is the authenticated user id for log entries, empty when anonymous.
func callerID(c *fiber.Ctx) string {
	if id, ok := middleware.GetCurrentUserID(c); ok {
		return id.String()
	}
	return ""
}

func optionalTrimmed(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
