package utils

import "github.com/gofiber/fiber/v2"

const MessageInternalError = "Internal server error"

func Success(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

func Message(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"message": message})
}

// Error writes the uniform error body. Callers pass a client-safe message only.
func Error(c *fiber.Ctx, status int, message string) error {
	return Message(c, status, message)
}

func InternalError(c *fiber.Ctx) error {
	return Error(c, fiber.StatusInternalServerError, MessageInternalError)
}
