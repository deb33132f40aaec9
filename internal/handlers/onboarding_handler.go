package handlers

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fitversal/onboardchat/internal/middleware"
	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
	"github.com/fitversal/onboardchat/internal/services"
)

type onboardingApplicationService interface {
	GetProfile(ctx context.Context, userID string) (models.Profile, error)
	UpdateProfile(ctx context.Context, userID string, patch onboarding.Patch) (models.Profile, error)
	SubmitAuth(ctx context.Context, identity onboarding.Identity) (services.StepResult, error)
	SubmitCoachSelection(ctx context.Context, userID string, input onboarding.CoachSelectionInput) (services.StepResult, error)
	SubmitPersonalInfo(ctx context.Context, userID string, input onboarding.PersonalInfoInput) (services.StepResult, error)
	SubmitPreferences(ctx context.Context, userID string, input onboarding.PreferencesInput) (services.StepResult, error)
	RecommendedCoaches(ctx context.Context, userID string) ([]models.CoachWithScore, error)
}

type OnboardingHandler struct {
	service onboardingApplicationService
}

func NewOnboardingHandler(service onboardingApplicationService) *OnboardingHandler {
	return &OnboardingHandler{service: service}
}

func (h *OnboardingHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	profile, err := h.service.GetProfile(c.UserContext(), userID)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *OnboardingHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var patch onboarding.Patch
	if err := c.BodyParser(&patch); err != nil || patch == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	profile, err := h.service.UpdateProfile(c.UserContext(), userID, patch)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

func (h *OnboardingHandler) ListCoaches(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coaches, err := h.service.RecommendedCoaches(c.UserContext(), userID)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(fiber.Map{"coaches": coaches})
}

// SubmitAuth records the verified account. The identity comes from the
// token, never from the request body.
func (h *OnboardingHandler) SubmitAuth(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	identity := onboarding.Identity{
		UID:         userID,
		Email:       localString(c, middleware.LocalEmail),
		DisplayName: localString(c, middleware.LocalName),
		PhotoURL:    localString(c, middleware.LocalPicture),
	}
	result, err := h.service.SubmitAuth(c.UserContext(), identity)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(result)
}

func (h *OnboardingHandler) SubmitCoachSelection(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req onboarding.CoachSelectionInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.SubmitCoachSelection(c.UserContext(), userID, req)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(result)
}

func (h *OnboardingHandler) SubmitPersonalInfo(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req onboarding.PersonalInfoInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.SubmitPersonalInfo(c.UserContext(), userID, req)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(result)
}

func (h *OnboardingHandler) SubmitPreferences(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req onboarding.PreferencesInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	result, err := h.service.SubmitPreferences(c.UserContext(), userID, req)
	if err != nil {
		return mapOnboardingError(c, err)
	}
	return c.JSON(result)
}

// StepPage describes one wizard page together with the profile it edits.
func (h *OnboardingHandler) StepPage(c *fiber.Ctx) error {
	step, ok := onboarding.StepByName(c.Params("step"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Step not found"})
	}

	userID, ok := currentUserID(c)
	if !ok {
		return c.JSON(fiber.Map{"step": step})
	}

	profile, err := h.service.GetProfile(c.UserContext(), userID)
	if err != nil {
		return mapOnboardingError(c, err)
	}

	response := fiber.Map{"step": step, "profile": profile}
	if step.Route == onboarding.RouteCoachSelection {
		coaches, err := h.service.RecommendedCoaches(c.UserContext(), userID)
		if err != nil {
			return mapOnboardingError(c, err)
		}
		response["coaches"] = coaches
	}
	return c.JSON(response)
}

func mapOnboardingError(c *fiber.Ctx, err error) error {
	var validation *onboarding.ValidationError
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validation.Message})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process onboarding request"})
	}
}

func currentUserID(c *fiber.Ctx) (string, bool) {
	userID := strings.TrimSpace(localString(c, middleware.LocalUserID))
	return userID, userID != ""
}

func localString(c *fiber.Ctx, key string) string {
	value, _ := c.Locals(key).(string)
	return value
}
