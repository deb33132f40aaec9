package models

// ChatRequest is the body sent to the chat proxy route.
type ChatRequest struct {
	UserID      string        `json:"user_id"`
	Age         int           `json:"age"`
	Gender      string        `json:"gender"`
	Height      string        `json:"height"`
	Weight      string        `json:"weight"`
	HeightUnit  string        `json:"height_unit"`
	WeightUnit  string        `json:"weight_unit"`
	Sport       string        `json:"sport"`
	Equipment   string        `json:"equipment"`
	Level       string        `json:"level"`
	Frequency   int           `json:"frequency"`
	Days        string        `json:"days"`
	Firstname   string        `json:"firstname"`
	Message     string        `json:"message"`
	ChatHistory []ChatMessage `json:"chat_history"`
	CoachID     string        `json:"coach_id"`
	Language    string        `json:"language"`
}

// ProgramRequest is the body sent to the program-generation proxy route.
type ProgramRequest struct {
	UserID        string        `json:"user_id"`
	Age           int           `json:"age"`
	Gender        string        `json:"gender"`
	Height        string        `json:"height"`
	Weight        string        `json:"weight"`
	HeightUnit    string        `json:"height_unit"`
	WeightUnit    string        `json:"weight_unit"`
	Sport         string        `json:"sport"`
	CoachID       string        `json:"coach_id"`
	Duration      int           `json:"duration"`
	Frequency     int           `json:"frequency"`
	Days          string        `json:"days"`
	Firstname     string        `json:"firstname"`
	Language      string        `json:"language"`
	NumberOfWeeks int           `json:"number_of_weeks"`
	BirthDate     string        `json:"birth_date,omitempty"`
	ChatHistory   []ChatMessage `json:"chat_history"`
	StartDate     string        `json:"start_date,omitempty"`
	Level         string        `json:"level"`
	SameRoutine   bool          `json:"same_routine"`
	Equipment     string        `json:"equipment"`
}

// FormattedProfile is the compact projection of the profile shared with
// the coach agent outside of a chat turn.
type FormattedProfile struct {
	UserID                 string        `json:"user_id"`
	Firstname              string        `json:"firstname"`
	Age                    int           `json:"age"`
	Gender                 string        `json:"gender"`
	Height                 string        `json:"height"`
	Weight                 string        `json:"weight"`
	Goal                   string        `json:"goal"`
	Level                  string        `json:"level"`
	Type                   string        `json:"type"`
	Days                   string        `json:"days"`
	SessionDurationMinutes int           `json:"session_duration_minutes"`
	CoachID                string        `json:"coach_id"`
	Reset                  bool          `json:"reset"`
	ChatHistory            []ChatMessage `json:"chat_history"`
}
