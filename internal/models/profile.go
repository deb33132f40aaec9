package models

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Profile is the onboarding record collected across the wizard steps.
type Profile struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	PhotoURL  string `json:"photoURL"`

	Age        FlexInt    `json:"age"`
	Gender     string     `json:"gender"`
	Height     FlexString `json:"height"`
	Weight     FlexString `json:"weight"`
	HeightUnit string     `json:"height_unit"`
	WeightUnit string     `json:"weight_unit"`
	BirthDate  string     `json:"birth_date"`

	Goal                   string    `json:"goal"`
	Level                  string    `json:"level"`
	Type                   string    `json:"type"`
	Days                   StringSet `json:"days"`
	Frequency              FlexInt   `json:"frequency"`
	SessionDurationMinutes FlexInt   `json:"session_duration_minutes"`
	CoachID                string    `json:"coach_id"`
	Equipment              StringSet `json:"equipment"`
	Reset                  bool      `json:"reset"`

	Duration      FlexInt `json:"duration"`
	NumberOfWeeks FlexInt `json:"number_of_weeks"`
	SameRoutine   *bool   `json:"same_routine"`
	StartDate     string  `json:"start_date"`

	ChatHistory []ChatMessage `json:"chat_history"`
}

func DefaultProfile() Profile {
	return Profile{
		HeightUnit:             "cm",
		WeightUnit:             "kg",
		Type:                   "bodyweight",
		Days:                   StringSet{},
		Equipment:              StringSet{},
		SessionDurationMinutes: 45,
		ChatHistory: []ChatMessage{
			{Role: RoleSystem, Content: ""},
		},
	}
}
