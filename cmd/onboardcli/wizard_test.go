package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/fitversal/onboardchat/internal/chat"
	"github.com/fitversal/onboardchat/internal/onboarding"
	"github.com/fitversal/onboardchat/internal/services"
	"github.com/fitversal/onboardchat/internal/storage"
)

func newProgramServer(t *testing.T, programCalls *int32) *httptest.Server {
	t.Helper()

	var chatCalls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case chat.ChatPath:
			if atomic.AddInt32(&chatCalls, 1) == 1 {
				if body["message"] != chat.InitialGreeting {
					t.Errorf("expected greeting first, got %v", body["message"])
				}
				_, _ = w.Write([]byte(`{"response":"{\"message\":\"Hey Ana! Ready?\"}","chat_history":[{"role":"user","content":"Hi"},{"role":"assistant","content":"Hey Ana! Ready?"}]}`))
				return
			}
			_, _ = w.Write([]byte(`{"response":"{\"message\":\"Building your plan\",\"program_creation\":true,\"program_duration_weeks\":4}"}`))
		case chat.ProgramPath:
			atomic.AddInt32(programCalls, 1)
			if body["coach_id"] != "coach_rory" {
				t.Errorf("unexpected program payload %v", body)
			}
			_, _ = w.Write([]byte(`{"status":"success"}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestWizardRunsOnboardingAndChat(t *testing.T) {
	var programCalls int32
	server := newProgramServer(t, &programCalls)
	defer server.Close()

	dataDir := t.TempDir()
	store, err := storage.NewJSONStore(dataDir)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	profiles := services.NewProfileService(store)
	chats := services.NewChatService(profiles, chat.NewHTTPTransport(server.URL, server.Client()), nil)

	input := strings.Join([]string{
		"Ana Maria",
		"coach_rory",
		"yesterday", "Female", "170", "", "65", "",
		"1990-05-01", "Female", "170", "", "65", "",
		"intermediate", "Dumbbells", "Monday, Thursday", "Build muscle",
		"",
		"Three days",
	}, "\n") + "\n"

	var out strings.Builder
	w := &wizard{
		in:       bufio.NewScanner(strings.NewReader(input)),
		out:      &out,
		userID:   "ana",
		profiles: profiles,
		chats:    chats,
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	if err := chats.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	transcript := out.String()
	for _, want := range []string{
		"birth_date must look like",
		"Coach: Hey Ana! Ready?",
		"Coach: Building your plan",
		"Your program is being generated.",
	} {
		if !strings.Contains(transcript, want) {
			t.Fatalf("expected %q in transcript:\n%s", want, transcript)
		}
	}
	if atomic.LoadInt32(&programCalls) != 1 {
		t.Fatalf("expected one program request, got %d", programCalls)
	}

	reloaded := services.NewProfileService(mustJSONStore(t, dataDir))
	profile, err := reloaded.GetProfile(context.Background(), "ana")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Firstname != "Ana" || profile.CoachID != "coach_rory" || profile.Frequency != 2 {
		t.Fatalf("unexpected persisted profile %+v", profile)
	}
	if profile.Duration != 4 || profile.NumberOfWeeks != 1 {
		t.Fatalf("expected program params to persist, got duration=%d weeks=%d", profile.Duration, profile.NumberOfWeeks)
	}
	if len(profile.ChatHistory) != 2 {
		t.Fatalf("expected canonical history to persist, got %+v", profile.ChatHistory)
	}
}

func TestWizardSkipsAnsweredSteps(t *testing.T) {
	var programCalls int32
	server := newProgramServer(t, &programCalls)
	defer server.Close()

	store := mustJSONStore(t, t.TempDir())
	profiles := services.NewProfileService(store)
	chats := services.NewChatService(profiles, chat.NewHTTPTransport(server.URL, server.Client()), nil)

	if _, err := profiles.UpdateProfile(context.Background(), "ana", map[string]any{
		"coach_id":   "coach_rory",
		"birth_date": "01 May 1990",
		"gender":     "Female",
		"days":       "Monday",
		"equipment":  "Dumbbells",
	}); err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if _, err := profiles.SubmitAuth(context.Background(), identityFor("ana")); err != nil {
		t.Fatalf("SubmitAuth: %v", err)
	}

	var out strings.Builder
	w := &wizard{
		in:       bufio.NewScanner(strings.NewReader("/skip\n")),
		out:      &out,
		userID:   "ana",
		profiles: profiles,
		chats:    chats,
	}
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v\n%s", err, out.String())
	}
	_ = chats.Shutdown(context.Background())

	if strings.Contains(out.String(), "Your name") {
		t.Fatalf("expected answered steps to be skipped:\n%s", out.String())
	}
	if atomic.LoadInt32(&programCalls) != 1 {
		t.Fatalf("expected skip to request a program, got %d", programCalls)
	}
}

func mustJSONStore(t *testing.T, dir string) *storage.JSONStore {
	t.Helper()

	store, err := storage.NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	return store
}

func identityFor(uid string) onboarding.Identity {
	return onboarding.Identity{UID: uid, DisplayName: "Ana"}
}
