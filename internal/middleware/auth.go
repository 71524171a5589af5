package middleware

import (
	"strings"

	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/google/uuid"
)

const (
	currentUserIDKey = "currentUserID"
	// userIDLocal is the string form read by the request logger.
	userIDLocal = "userID"

	MessageAuthRequired = "Authentication required"
	MessageInvalidToken = "Invalid or expired token"
)

// AuthMiddleware trusts the signed token alone; it never touches the database.
type AuthMiddleware struct {
	Tokens *utils.TokenManager
}

func NewAuthMiddleware(tokens *utils.TokenManager) *AuthMiddleware {
	return &AuthMiddleware{Tokens: tokens}
}

func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		logger.Warn("jwt_missing_header", map[string]interface{}{
			"ip":   c.IP(),
			"path": c.Path(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, MessageAuthRequired)
	}

	tokenString, ok := bearerToken(authHeader)
	if !ok {
		logger.Warn("jwt_invalid_format", map[string]interface{}{
			"ip":          c.IP(),
			"path":        c.Path(),
			"auth_header": authHeader[:min(len(authHeader), 20)] + "...",
		})
		return utils.Error(c, fiber.StatusUnauthorized, MessageAuthRequired)
	}

	claims, err := a.Tokens.ValidateToken(tokenString)
	if err != nil {
		logger.Warn("jwt_validation_failed", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusForbidden, MessageInvalidToken)
	}

	c.Locals(currentUserIDKey, claims.UserID)
	c.Locals(userIDLocal, claims.UserID.String())
	return c.Next()
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// GetCurrentUserID returns the caller resolved by RequireAuth.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(currentUserIDKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// CORS allows credentials only for an explicit origin list; an empty list
// falls back to any origin.
func CORS(allowedOrigins string) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: allowedOrigins != "" && allowedOrigins != "*",
	})
}
