package onboarding

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fitversal/onboardchat/internal/models"
)

const (
	RouteAuth           = "/onboarding/auth"
	RouteCoachSelection = "/onboarding/coach-selection"
	RoutePersonalInfo   = "/onboarding/personal-info"
	RoutePreferences    = "/onboarding/preferences"
	RouteChatbot        = "/onboarding/chatbot"
	RouteProgramReady   = "/onboarding/program-ready"
)

const BirthDateLayout = "02 Jan 2006"

type Step struct {
	Name   string   `json:"name"`
	Route  string   `json:"route"`
	Next   string   `json:"next"`
	Fields []string `json:"fields"`
}

var steps = []Step{
	{Name: "auth", Route: RouteAuth, Next: RouteCoachSelection, Fields: []string{"user_id", "email", "firstname", "photoURL"}},
	{Name: "coach-selection", Route: RouteCoachSelection, Next: RoutePersonalInfo, Fields: []string{"coach_id"}},
	{Name: "personal-info", Route: RoutePersonalInfo, Next: RoutePreferences, Fields: []string{"birth_date", "age", "gender", "height", "height_unit", "weight", "weight_unit"}},
	{Name: "preferences", Route: RoutePreferences, Next: RouteChatbot, Fields: []string{"level", "equipment", "days", "frequency"}},
	{Name: "chatbot", Route: RouteChatbot, Next: RouteProgramReady, Fields: []string{"chat_history", "duration", "number_of_weeks", "same_routine", "start_date"}},
	{Name: "program-ready", Route: RouteProgramReady},
}

func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

func StepByName(name string) (Step, bool) {
	for _, step := range steps {
		if step.Name == name {
			return step, true
		}
	}
	return Step{}, false
}

// ValidationError reports step input that cannot be merged.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var allowedGenders = map[string]struct{}{
	"male":   {},
	"female": {},
	"other":  {},
}

var allowedLevels = map[string]string{
	"beginner":     "Beginner",
	"intermediate": "Intermediate",
	"advanced":     "Advanced",
}

var allowedHeightUnits = map[string]struct{}{
	"cm":      {},
	"ft inch": {},
}

var allowedWeightUnits = map[string]struct{}{
	"kg":  {},
	"lbs": {},
}

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Identity is the verified account behind the auth step.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string
}

func AuthPatch(identity Identity) (Patch, error) {
	if strings.TrimSpace(identity.UID) == "" {
		return nil, invalid("user_id is required")
	}

	firstname := ""
	if fields := strings.Fields(identity.DisplayName); len(fields) > 0 {
		firstname = fields[0]
	}

	return Patch{
		"user_id":   identity.UID,
		"email":     identity.Email,
		"firstname": firstname,
		"photoURL":  identity.PhotoURL,
	}, nil
}

type CoachSelectionInput struct {
	CoachID string `json:"coach_id"`
}

func CoachSelectionPatch(input CoachSelectionInput) (Patch, error) {
	coachID := strings.TrimSpace(input.CoachID)
	if coachID == "" {
		return nil, invalid("coach_id is required")
	}
	if _, ok := FindCoach(coachID); !ok {
		return nil, invalid("unknown coach: %s", coachID)
	}
	return Patch{"coach_id": coachID}, nil
}

type PersonalInfoInput struct {
	BirthDate  string            `json:"birth_date"`
	Gender     string            `json:"gender"`
	Height     models.FlexString `json:"height"`
	HeightUnit string            `json:"height_unit"`
	Weight     models.FlexString `json:"weight"`
	WeightUnit string            `json:"weight_unit"`
}

func PersonalInfoPatch(input PersonalInfoInput, now time.Time) (Patch, error) {
	height := strings.TrimSpace(input.Height.String())
	weight := strings.TrimSpace(input.Weight.String())
	if strings.TrimSpace(input.BirthDate) == "" || strings.TrimSpace(input.Gender) == "" || height == "" || weight == "" {
		return nil, invalid("birth_date, gender, height and weight are required")
	}
	if _, err := strconv.ParseFloat(height, 64); err != nil {
		return nil, invalid("height must be a number")
	}
	if _, err := strconv.ParseFloat(weight, 64); err != nil {
		return nil, invalid("weight must be a number")
	}
	if _, ok := allowedGenders[strings.ToLower(strings.TrimSpace(input.Gender))]; !ok {
		return nil, invalid("gender must be one of: Male, Female, Other")
	}

	heightUnit := orDefault(strings.TrimSpace(input.HeightUnit), defaultHeightUnit)
	if _, ok := allowedHeightUnits[heightUnit]; !ok {
		return nil, invalid("height_unit must be one of: cm, ft inch")
	}
	weightUnit := orDefault(strings.TrimSpace(input.WeightUnit), defaultWeightUnit)
	if _, ok := allowedWeightUnits[weightUnit]; !ok {
		return nil, invalid("weight_unit must be one of: kg, lbs")
	}

	birthDate, err := ParseBirthDate(input.BirthDate)
	if err != nil {
		return nil, invalid("birth_date must look like %q", BirthDateLayout)
	}
	if birthDate.After(now) {
		return nil, invalid("birth_date cannot be in the future")
	}

	return Patch{
		"birth_date":  birthDate.Format(BirthDateLayout),
		"age":         AgeOn(birthDate, now),
		"gender":      strings.TrimSpace(input.Gender),
		"height":      height,
		"height_unit": heightUnit,
		"weight":      weight,
		"weight_unit": weightUnit,
	}, nil
}

// ParseBirthDate accepts the display layout ("02 Jan 2006") and ISO dates.
func ParseBirthDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	var lastErr error
	for _, layout := range []string{BirthDateLayout, "2 Jan 2006", time.DateOnly, time.RFC3339} {
		parsed, err := time.Parse(layout, value)
		if err == nil {
			return parsed, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// AgeOn returns the completed years between birth and now.
func AgeOn(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}

type PreferencesInput struct {
	Level     string           `json:"level"`
	Equipment models.StringSet `json:"equipment"`
	Days      models.StringSet `json:"days"`
	Goal      string           `json:"goal,omitempty"`
}

func PreferencesPatch(input PreferencesInput) (Patch, error) {
	level, ok := allowedLevels[strings.ToLower(strings.TrimSpace(input.Level))]
	if !ok {
		return nil, invalid("level must be one of: Beginner, Intermediate, Advanced")
	}
	if len(input.Equipment) == 0 {
		return nil, invalid("equipment must contain at least one item")
	}

	days := make([]string, 0, len(input.Days))
	for _, day := range input.Days {
		name, ok := canonicalWeekday(day)
		if !ok {
			return nil, invalid("unknown day: %s", day)
		}
		days = append(days, name)
	}
	daySet := models.NewStringSet(days...)
	if len(daySet) == 0 {
		return nil, invalid("days must contain at least one weekday")
	}

	patch := Patch{
		"level":     level,
		"equipment": input.Equipment,
		"days":      daySet,
		"frequency": len(daySet),
	}
	if goal := strings.TrimSpace(input.Goal); goal != "" {
		patch["goal"] = goal
	}
	return patch, nil
}

func canonicalWeekday(value string) (string, bool) {
	value = strings.TrimSpace(value)
	for _, day := range weekdays {
		if strings.EqualFold(day, value) || (len(value) == 3 && strings.EqualFold(day[:3], value)) {
			return day, true
		}
	}
	return "", false
}
