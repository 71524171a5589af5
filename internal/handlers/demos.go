package handlers

import (
	"errors"

	"github.com/arcade/backend/internal/middleware"
	"github.com/arcade/backend/internal/services"
	"github.com/arcade/backend/pkg/logger"
	"github.com/arcade/backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	messageInvalidDemo  = "Invalid demo data"
	messageDemoNotFound = "Demo not found"
	messageDemoDeleted  = "Demo deleted successfully"
)

type DemosHandler struct {
	Demos    *services.DemoService
	validate *validator.Validate
}

func NewDemosHandler(demos *services.DemoService) *DemosHandler {
	return &DemosHandler{Demos: demos, validate: newValidator()}
}

// demoRequest uses pointers so a missing field can be told apart from an
// empty one.
type demoRequest struct {
	Title       *string `json:"title" validate:"required,min=1,max=255"`
	Description *string `json:"description" validate:"required"`
	Type        *string `json:"type" validate:"required,max=64"`
	Content     *string `json:"content" validate:"required"`
	Thumbnail   *string `json:"thumbnail"`
	URL         *string `json:"url"`
	IsPublic    *bool   `json:"isPublic"`
}

func (r demoRequest) input() services.DemoInput {
	return services.DemoInput{
		Title:       *r.Title,
		Description: *r.Description,
		Type:        *r.Type,
		Content:     *r.Content,
		Thumbnail:   r.Thumbnail,
		URL:         r.URL,
		IsPublic:    r.IsPublic,
	}
}

func (h *DemosHandler) parseDemoRequest(c *fiber.Ctx) (services.DemoInput, bool) {
	var req demoRequest
	if err := c.BodyParser(&req); err != nil {
		return services.DemoInput{}, false
	}
	if err := h.validate.Struct(req); err != nil {
		return services.DemoInput{}, false
	}
	return req.input(), true
}

func (h *DemosHandler) Create(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, middleware.MessageAuthRequired)
	}

	input, ok := h.parseDemoRequest(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, messageInvalidDemo)
	}

	demo, err := h.Demos.Create(c.UserContext(), userID, input)
	if err != nil {
		logger.ErrorWithUser(userID.String(), "demo_create_failed", err, nil)
		return utils.InternalError(c)
	}

	logger.InfoWithUser(userID.String(), "demo_created", map[string]interface{}{
		"demo_id": demo.ID.String(),
		"type":    demo.Type,
	})

	return utils.Success(c, fiber.StatusCreated, demo)
}

func (h *DemosHandler) List(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, middleware.MessageAuthRequired)
	}

	demos, err := h.Demos.ListByOwner(c.UserContext(), userID)
	if err != nil {
		logger.ErrorWithUser(userID.String(), "demo_list_failed", err, nil)
		return utils.InternalError(c)
	}

	return utils.Success(c, fiber.StatusOK, demos)
}

func (h *DemosHandler) Get(c *fiber.Ctx) error {
	userID, demoID, ok := h.ownedDemoParams(c)
	if !ok {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}

	demo, err := h.Demos.View(c.UserContext(), userID, demoID)
	if errors.Is(err, services.ErrDemoNotFound) {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}
	if err != nil {
		logger.ErrorWithUser(userID.String(), "demo_view_failed", err, map[string]interface{}{
			"demo_id": demoID.String(),
		})
		return utils.InternalError(c)
	}

	return utils.Success(c, fiber.StatusOK, demo)
}

func (h *DemosHandler) Update(c *fiber.Ctx) error {
	userID, demoID, ok := h.ownedDemoParams(c)
	if !ok {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}

	input, ok := h.parseDemoRequest(c)
	if !ok {
		return utils.Error(c, fiber.StatusBadRequest, messageInvalidDemo)
	}

	demo, err := h.Demos.Update(c.UserContext(), userID, demoID, input)
	if errors.Is(err, services.ErrDemoNotFound) {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}
	if err != nil {
		logger.ErrorWithUser(userID.String(), "demo_update_failed", err, map[string]interface{}{
			"demo_id": demoID.String(),
		})
		return utils.InternalError(c)
	}

	logger.InfoWithUser(userID.String(), "demo_updated", map[string]interface{}{
		"demo_id": demo.ID.String(),
	})

	return utils.Success(c, fiber.StatusOK, demo)
}

func (h *DemosHandler) Delete(c *fiber.Ctx) error {
	userID, demoID, ok := h.ownedDemoParams(c)
	if !ok {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}

	err := h.Demos.Delete(c.UserContext(), userID, demoID)
	if errors.Is(err, services.ErrDemoNotFound) {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}
	if err != nil {
		logger.ErrorWithUser(userID.String(), "demo_delete_failed", err, map[string]interface{}{
			"demo_id": demoID.String(),
		})
		return utils.InternalError(c)
	}

	logger.InfoWithUser(userID.String(), "demo_deleted", map[string]interface{}{
		"demo_id": demoID.String(),
	})

	return utils.Message(c, fiber.StatusOK, messageDemoDeleted)
}

// PublicGet serves demos flagged public without authentication. It does not
// count a view.
func (h *DemosHandler) PublicGet(c *fiber.Ctx) error {
	demoID, err := parseUUID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}

	demo, err := h.Demos.GetPublic(c.UserContext(), demoID)
	if errors.Is(err, services.ErrDemoNotFound) {
		return utils.Error(c, fiber.StatusNotFound, messageDemoNotFound)
	}
	if err != nil {
		logger.Error("public_demo_lookup_failed", err, map[string]interface{}{
			"demo_id": demoID.String(),
		})
		return utils.InternalError(c)
	}

	return utils.Success(c, fiber.StatusOK, demo)
}

// ownedDemoParams returns the caller and the demo id. A malformed id is
// reported the same way as a missing demo.
func (h *DemosHandler) ownedDemoParams(c *fiber.Ctx) (uuid.UUID, uuid.UUID, bool) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	demoID, err := parseUUID(c.Params("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return userID, demoID, true
}
