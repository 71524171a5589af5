package handlers

import (
	"errors"

	"github.com/arcade/backend/internal/middleware"
	"github.com/arcade/backend/internal/services"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

const (
	messageInvalidBody        = "invalid request body"
	messageInvalidSignup      = "Invalid signup data"
	messagePasswordMismatch   = "Passwords do not match"
	messageEmailTaken         = "Email already taken"
	messageSignupSuccess      = "User created successfully"
	messageInvalidCredentials = "Invalid email or password"
	messageUserNotFound       = "User not found"
)

type AuthHandler struct {
	Users    *services.UserService
	Tokens   *utils.TokenManager
	validate *validator.Validate
}

func NewAuthHandler(users *services.UserService, tokens *utils.TokenManager) *AuthHandler {
	return &AuthHandler{Users: users, Tokens: tokens, validate: newValidator()}
}

type signupRequest struct {
	Name            *string `json:"name"`
	Email           string  `json:"email" validate:"required,max=255"`
	Password        string  `json:"password" validate:"required"`
	ConfirmPassword string  `json:"confirmPassword"`
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, messageInvalidBody)
	}

	if req.Password != req.ConfirmPassword {
		return utils.Error(c, fiber.StatusBadRequest, messagePasswordMismatch)
	}
	if err := h.validate.Struct(req); err != nil || len(req.Password) > utils.MaxPasswordBytes {
		return utils.Error(c, fiber.StatusBadRequest, messageInvalidSignup)
	}

	user, err := h.Users.Register(c.UserContext(), optionalTrimmed(req.Name), req.Email, req.Password)
	if errors.Is(err, services.ErrEmailTaken) {
		logger.Warn("signup_email_taken", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusBadRequest, messageEmailTaken)
	}
	if err != nil {
		logger.Error("signup_failed", err, map[string]interface{}{"email": req.Email})
		return utils.InternalError(c)
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "token_generation_failed", err, nil)
		return utils.InternalError(c)
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
		"email":   user.Email,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": messageSignupSuccess,
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, messageInvalidBody)
	}

	if req.Email == "" || req.Password == "" || len(req.Password) > utils.MaxPasswordBytes {
		return utils.Error(c, fiber.StatusUnauthorized, messageInvalidCredentials)
	}

	user, err := h.Users.Authenticate(c.UserContext(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		logger.Warn("login_failed", map[string]interface{}{
			"email": req.Email,
			"ip":    c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, messageInvalidCredentials)
	}
	if err != nil {
		logger.Error("login_lookup_failed", err, map[string]interface{}{"email": req.Email})
		return utils.InternalError(c)
	}

	token, err := h.Tokens.GenerateToken(user.ID)
	if err != nil {
		logger.ErrorWithUser(user.ID.String(), "token_generation_failed", err, nil)
		return utils.InternalError(c)
	}

	logger.InfoWithUser(user.ID.String(), "user_login", map[string]interface{}{
		"ip": c.IP(),
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{"token": token})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, middleware.MessageAuthRequired)
	}

	user, err := h.Users.GetByID(c.UserContext(), userID)
	if errors.Is(err, services.ErrUserNotFound) {
		return utils.Error(c, fiber.StatusNotFound, messageUserNotFound)
	}
	if err != nil {
		logger.ErrorWithUser(userID.String(), "user_lookup_failed", err, nil)
		return utils.InternalError(c)
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": user.Public()})
}
