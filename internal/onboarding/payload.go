package onboarding

import (
	"strings"

	"github.com/fitversal/onboardchat/internal/models"
)

const (
	defaultHeightUnit    = "cm"
	defaultWeightUnit    = "kg"
	defaultSport         = "fitness"
	defaultLanguage      = "en"
	defaultLevel         = "beginner"
	defaultMeasurement   = "0"
	defaultDurationWeeks = 6
	defaultNumberOfWeeks = 1
)

// ChatPayload projects the profile into the chat proxy request.
func ChatPayload(profile models.Profile, message string, history []models.ChatMessage) models.ChatRequest {
	return models.ChatRequest{
		UserID:      profile.UserID,
		Age:         int(profile.Age),
		Gender:      profile.Gender,
		Height:      orDefault(profile.Height.String(), defaultMeasurement),
		Weight:      orDefault(profile.Weight.String(), defaultMeasurement),
		HeightUnit:  orDefault(profile.HeightUnit, defaultHeightUnit),
		WeightUnit:  orDefault(profile.WeightUnit, defaultWeightUnit),
		Sport:       defaultSport,
		Equipment:   profile.Equipment.Join(),
		Level:       normalizedLevel(profile.Level),
		Frequency:   len(profile.Days),
		Days:        profile.Days.Join(),
		Firstname:   profile.Firstname,
		Message:     message,
		ChatHistory: nonNilHistory(history),
		CoachID:     profile.CoachID,
		Language:    defaultLanguage,
	}
}

// ProgramPayload projects the profile into the program-generation request
// using the derived program parameters as they are stored.
func ProgramPayload(profile models.Profile, history []models.ChatMessage) models.ProgramRequest {
	sameRoutine := false
	if profile.SameRoutine != nil {
		sameRoutine = *profile.SameRoutine
	}

	return models.ProgramRequest{
		UserID:        profile.UserID,
		Age:           int(profile.Age),
		Gender:        profile.Gender,
		Height:        orDefault(profile.Height.String(), defaultMeasurement),
		Weight:        orDefault(profile.Weight.String(), defaultMeasurement),
		HeightUnit:    orDefault(profile.HeightUnit, defaultHeightUnit),
		WeightUnit:    orDefault(profile.WeightUnit, defaultWeightUnit),
		Sport:         defaultSport,
		CoachID:       profile.CoachID,
		Duration:      int(profile.Duration),
		Frequency:     len(profile.Days),
		Days:          profile.Days.Join(),
		Firstname:     profile.Firstname,
		Language:      defaultLanguage,
		NumberOfWeeks: int(profile.NumberOfWeeks),
		BirthDate:     profile.BirthDate,
		ChatHistory:   nonNilHistory(history),
		StartDate:     profile.StartDate,
		Level:         normalizedLevel(profile.Level),
		SameRoutine:   sameRoutine,
		Equipment:     profile.Equipment.Join(),
	}
}

// SkipPayload is ProgramPayload with unset program parameters replaced by
// the six-week single-routine defaults.
func SkipPayload(profile models.Profile, history []models.ChatMessage) models.ProgramRequest {
	payload := ProgramPayload(profile, history)
	if payload.Duration == 0 {
		payload.Duration = defaultDurationWeeks
	}
	if payload.NumberOfWeeks == 0 {
		payload.NumberOfWeeks = defaultNumberOfWeeks
	}
	payload.SameRoutine = profile.SameRoutine == nil || *profile.SameRoutine
	return payload
}

func Formatted(profile models.Profile) models.FormattedProfile {
	return models.FormattedProfile{
		UserID:                 profile.UserID,
		Firstname:              profile.Firstname,
		Age:                    int(profile.Age),
		Gender:                 profile.Gender,
		Height:                 profile.Height.String(),
		Weight:                 profile.Weight.String(),
		Goal:                   profile.Goal,
		Level:                  strings.ToLower(profile.Level),
		Type:                   profile.Type,
		Days:                   profile.Days.Join(),
		SessionDurationMinutes: int(profile.SessionDurationMinutes),
		CoachID:                profile.CoachID,
		Reset:                  profile.Reset,
		ChatHistory:            nonNilHistory(profile.ChatHistory),
	}
}

func normalizedLevel(level string) string {
	return strings.ToLower(orDefault(strings.TrimSpace(level), defaultLevel))
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func nonNilHistory(history []models.ChatMessage) []models.ChatMessage {
	if history == nil {
		return []models.ChatMessage{}
	}
	return history
}
