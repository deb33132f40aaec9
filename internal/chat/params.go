package chat

import (
	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
)

const (
	defaultProgramDuration = 6
	defaultNumberOfWeeks   = 1
)

// ProgramParams are the program settings agreed on in the conversation.
type ProgramParams struct {
	Duration      int
	NumberOfWeeks int
	SameRoutine   bool
	StartDate     string
}

// DeriveProgramParams turns the weeks the coach agreed on into program
// settings. A routine that changes week to week is generated as one
// duration unit repeated over the given weeks; otherwise the same routine
// runs for the whole duration.
func DeriveProgramParams(reply Reply) ProgramParams {
	params := ProgramParams{
		Duration:      defaultProgramDuration,
		NumberOfWeeks: defaultNumberOfWeeks,
		SameRoutine:   true,
		StartDate:     reply.StartDate,
	}
	if reply.DurationWeeks == 0 {
		return params
	}

	if reply.SameRoutine != nil && !*reply.SameRoutine {
		params.Duration = 1
		params.NumberOfWeeks = reply.DurationWeeks
		params.SameRoutine = false
		return params
	}
	params.Duration = reply.DurationWeeks
	params.NumberOfWeeks = 1
	return params
}

func (p ProgramParams) Patch() onboarding.Patch {
	patch := onboarding.Patch{
		"duration":        p.Duration,
		"number_of_weeks": p.NumberOfWeeks,
		"same_routine":    p.SameRoutine,
	}
	if p.StartDate != "" {
		patch["start_date"] = p.StartDate
	}
	return patch
}

// Apply writes the parameters onto a profile copy.
func (p ProgramParams) Apply(profile models.Profile) models.Profile {
	profile.Duration = models.FlexInt(p.Duration)
	profile.NumberOfWeeks = models.FlexInt(p.NumberOfWeeks)
	sameRoutine := p.SameRoutine
	profile.SameRoutine = &sameRoutine
	if p.StartDate != "" {
		profile.StartDate = p.StartDate
	}
	return profile
}
