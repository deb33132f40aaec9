package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/pkg/utils"
)

var ErrMalformedReply = errors.New("chat reply is not a JSON object")

// ReplyKind names how the assistant text was found in a chat reply.
type ReplyKind string

const (
	// ReplyStructured: "response" held a JSON-encoded object.
	ReplyStructured ReplyKind = "structured"
	// ReplyObject: "response" was already an object with a message.
	ReplyObject ReplyKind = "object"
	// ReplyText: top-level "message" or a bare "response" string.
	ReplyText  ReplyKind = "text"
	ReplyEmpty ReplyKind = "empty"
)

// Reply is a classified chat proxy response.
type Reply struct {
	Kind            ReplyKind
	Message         string
	ProgramCreation bool

	ChatHistory    []models.ChatMessage
	HasChatHistory bool

	StartDate     string
	DurationWeeks int
	SameRoutine   *bool
}

type replyFields map[string]json.RawMessage

// ParseReply classifies a chat proxy body. Only a body that is not a JSON
// object is an error; every shape of the "response" field resolves to a
// Reply.
func ParseReply(body []byte) (Reply, error) {
	var top replyFields
	if err := json.Unmarshal(body, &top); err != nil {
		return Reply{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}
	if top == nil {
		return Reply{}, ErrMalformedReply
	}

	reply := Reply{Kind: ReplyEmpty}
	inner := classifyResponse(top, &reply)

	reply.Message = utils.RepairMojibake(reply.Message)
	reply.ProgramCreation = utils.TruthyRaw(top["program_creation"]) ||
		(inner != nil && utils.TruthyRaw(inner["program_creation"]))

	reply.ChatHistory, reply.HasChatHistory = decodeHistory(top["chat_history"])
	reply.StartDate = firstText(top, inner, "program_start_date")
	reply.DurationWeeks = firstInt(top, inner, "program_duration_weeks")
	reply.SameRoutine = firstBool(top, inner, "same_routine")
	return reply, nil
}

func classifyResponse(top replyFields, reply *Reply) replyFields {
	raw := top["response"]

	var text string
	if json.Unmarshal(raw, &text) == nil && strings.HasPrefix(strings.TrimSpace(text), "{") {
		var inner replyFields
		if err := json.Unmarshal([]byte(text), &inner); err == nil && inner != nil {
			reply.Kind = ReplyStructured
			reply.Message = textValue(inner["message"])
			return inner
		}
	}

	var object replyFields
	if json.Unmarshal(raw, &object) == nil && object != nil && utils.TruthyRaw(object["message"]) {
		reply.Kind = ReplyObject
		reply.Message = textValue(object["message"])
		return object
	}

	if message := textValue(top["message"]); message != "" {
		reply.Kind = ReplyText
		reply.Message = message
		return nil
	}
	if text != "" {
		reply.Kind = ReplyText
		reply.Message = text
	}
	return nil
}

func decodeHistory(raw json.RawMessage) ([]models.ChatMessage, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var history []models.ChatMessage
	if err := json.Unmarshal(raw, &history); err != nil || history == nil {
		return nil, false
	}
	for i := range history {
		history[i].Content = utils.RepairMojibake(history[i].Content)
	}
	return history, true
}

// textValue reads a JSON string or number; anything else is empty.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value models.FlexString
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return value.String()
}

func firstText(top, inner replyFields, key string) string {
	if value := textValue(top[key]); value != "" {
		return value
	}
	if inner != nil {
		return textValue(inner[key])
	}
	return ""
}

func firstInt(top, inner replyFields, key string) int {
	for _, fields := range []replyFields{top, inner} {
		if fields == nil || !utils.TruthyRaw(fields[key]) {
			continue
		}
		var value models.FlexInt
		if err := json.Unmarshal(fields[key], &value); err == nil && value != 0 {
			return int(value)
		}
	}
	return 0
}

func firstBool(top, inner replyFields, key string) *bool {
	for _, fields := range []replyFields{top, inner} {
		if fields == nil {
			continue
		}
		raw := fields[key]
		if len(raw) == 0 || string(raw) == "null" {
			continue
		}
		var value bool
		if err := json.Unmarshal(raw, &value); err == nil {
			return &value
		}
	}
	return nil
}
