package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/fitversal/onboardchat/internal/middleware"
	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
	"github.com/fitversal/onboardchat/internal/services"
)

// onboardingApp wires the real profile service over an in-memory
// persister behind a fake identity.
func onboardingApp(t *testing.T) (*fiber.App, *services.ProfileService) {
	t.Helper()

	service := services.NewProfileService(onboarding.NewMemoryPersister())
	handler := NewOnboardingHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, "u1")
		c.Locals(middleware.LocalEmail, "ana@example.com")
		c.Locals(middleware.LocalName, "Ana Maria")
		c.Locals(middleware.LocalPicture, "https://example.com/ana.png")
		return c.Next()
	})
	app.Get("/profile", handler.GetProfile)
	app.Patch("/profile", handler.UpdateProfile)
	app.Get("/coaches", handler.ListCoaches)
	app.Post("/steps/auth", handler.SubmitAuth)
	app.Post("/steps/coach-selection", handler.SubmitCoachSelection)
	app.Post("/steps/personal-info", handler.SubmitPersonalInfo)
	app.Post("/steps/preferences", handler.SubmitPreferences)
	app.Get("/onboarding/:step", handler.StepPage)
	return app, service
}

func TestOnboardingStepsWalkTheWizard(t *testing.T) {
	app, service := onboardingApp(t)

	steps := []struct {
		path string
		body string
		next string
	}{
		{"/steps/auth", `{}`, onboarding.RouteCoachSelection},
		{"/steps/coach-selection", `{"coach_id":"coach_rory"}`, onboarding.RoutePersonalInfo},
		{"/steps/personal-info", `{"birth_date":"1990-05-01","gender":"Female","height":"170","weight":65}`, onboarding.RoutePreferences},
		{"/steps/preferences", `{"level":"intermediate","equipment":["Dumbbells"],"days":["Monday","Thursday"]}`, onboarding.RouteChatbot},
	}
	for _, step := range steps {
		status, body := postJSON(t, app, step.path, step.body)
		if status != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d (%v)", step.path, status, body)
		}
		if body["next"] != step.next {
			t.Fatalf("%s: expected next %q, got %v", step.path, step.next, body["next"])
		}
	}

	profile, err := service.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Firstname != "Ana" || profile.Email != "ana@example.com" {
		t.Fatalf("expected identity to be recorded, got %+v", profile)
	}
	if profile.CoachID != "coach_rory" || profile.Level != "Intermediate" {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.Frequency != 2 || profile.Days.Join() != "Monday,Thursday" {
		t.Fatalf("expected days and frequency, got %+v", profile)
	}
	if len(profile.ChatHistory) != 1 || profile.ChatHistory[0].Role != models.RoleSystem || profile.ChatHistory[0].Content != "" {
		t.Fatalf("expected untouched conversation seed, got %+v", profile.ChatHistory)
	}
}

func TestOnboardingStepValidationReturns400(t *testing.T) {
	app, _ := onboardingApp(t)

	status, body := postJSON(t, app, "/steps/coach-selection", `{"coach_id":"coach_nobody"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body["error"] != "unknown coach: coach_nobody" {
		t.Fatalf("unexpected error %v", body["error"])
	}

	status, _ = postJSON(t, app, "/steps/personal-info", `{"birth_date":"1990-05-01","gender":"Female","height":"tall","weight":"65"}`)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-numeric height, got %d", status)
	}
}

func TestUpdateProfileKeepsUserID(t *testing.T) {
	app, service := onboardingApp(t)

	req := httptest.NewRequest(http.MethodPatch, "/profile", stringsReader(`{"user_id":"attacker","goal":"Lose weight","days":"Monday, Friday"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	profile, _ := service.GetProfile(context.Background(), "u1")
	if profile.UserID == "attacker" {
		t.Fatalf("expected user_id to be ignored")
	}
	if profile.Goal != "Lose weight" || profile.Days.Join() != "Monday,Friday" {
		t.Fatalf("unexpected profile %+v", profile)
	}
}

func TestStepPageDescribesStep(t *testing.T) {
	app, _ := onboardingApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/onboarding/coach-selection", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	step, _ := body["step"].(map[string]any)
	if step["next"] != onboarding.RoutePersonalInfo {
		t.Fatalf("unexpected step %v", body["step"])
	}
	if coaches, _ := body["coaches"].([]any); len(coaches) != 3 {
		t.Fatalf("expected coach catalog, got %v", body["coaches"])
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/onboarding/stats", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown step, got %d", resp.StatusCode)
	}
}

func TestOnboardingRequiresUser(t *testing.T) {
	handler := NewOnboardingHandler(services.NewProfileService(onboarding.NewMemoryPersister()))
	app := fiber.New()
	app.Get("/profile", handler.GetProfile)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/profile", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}
