package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
)

var (
	ErrEmptyMessage  = errors.New("message is empty")
	ErrCoachRequired = errors.New("a coach must be selected before chatting")
	ErrNotRetryable  = errors.New("message has not failed")
	ErrSendFailed    = errors.New("chat request failed")
)

// InitialGreeting opens the conversation without being shown to the user.
const InitialGreeting = "Hi"

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting_response"
	StateFailed           State = "failed"
)

// Transport reaches the chat and program-generation proxy routes. Both
// return the raw success body.
type Transport interface {
	ChatWithAgent(ctx context.Context, req models.ChatRequest) ([]byte, error)
	GenerateProgram(ctx context.Context, req models.ProgramRequest) ([]byte, error)
}

type ProfileStore interface {
	Read() models.Profile
	Merge(ctx context.Context, patch onboarding.Patch) (models.Profile, error)
}

// Snapshot is a point-in-time copy of a session.
type Snapshot struct {
	ID            string               `json:"id"`
	State         State                `json:"state"`
	Messages      []models.ChatMessage `json:"messages"`
	ChatHistory   []models.ChatMessage `json:"chat_history"`
	FailedIndexes []int                `json:"failed_indexes"`
	IsLoading     bool                 `json:"is_loading"`
	Started       bool                 `json:"started"`
	NextRoute     string               `json:"next_route,omitempty"`
}

type pendingSend struct {
	content string
	display bool
}

// Session is one user's conversation with their coach. The displayed
// messages only grow; the canonical history is whatever the backend last
// returned. The mutex guards fields only, so overlapping sends are not
// serialized.
type Session struct {
	id        string
	store     ProfileStore
	transport Transport
	detached  *Detached

	mu        sync.Mutex
	state     State
	messages  []models.ChatMessage
	history   []models.ChatMessage
	failed    map[int]pendingSend
	loading   bool
	started   bool
	nextRoute string
	observer  func(Snapshot)
}

func NewSession(store ProfileStore, transport Transport, detached *Detached) *Session {
	if detached == nil {
		detached = NewDetached()
	}
	return &Session{
		id:        uuid.NewString(),
		store:     store,
		transport: transport,
		detached:  detached,
		state:     StateIdle,
		messages:  []models.ChatMessage{},
		history:   []models.ChatMessage{},
		failed:    make(map[int]pendingSend),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Observe registers fn to receive a snapshot after every state change.
func (s *Session) Observe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Initialize sends the silent greeting once per session.
func (s *Session) Initialize(ctx context.Context) (Snapshot, error) {
	profile := s.store.Read()

	s.mu.Lock()
	if s.started {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, nil
	}
	if profile.CoachID == "" {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, ErrCoachRequired
	}
	s.started = true
	index := len(s.messages)
	s.mu.Unlock()

	return s.dispatch(ctx, profile, index, InitialGreeting, false)
}

// Send posts message to the coach. With display set the message is shown
// before the reply arrives. Empty messages and a missing coach are
// rejected without touching the session.
func (s *Session) Send(ctx context.Context, message string, display bool) (Snapshot, error) {
	if strings.TrimSpace(message) == "" {
		return s.Snapshot(), ErrEmptyMessage
	}
	profile := s.store.Read()
	if profile.CoachID == "" {
		return s.Snapshot(), ErrCoachRequired
	}

	s.mu.Lock()
	s.started = true
	index := len(s.messages)
	if display {
		s.messages = append(s.messages, models.ChatMessage{Role: models.RoleUser, Content: message})
	}
	s.mu.Unlock()

	return s.dispatch(ctx, profile, index, message, display)
}

// Retry re-sends the content of a failed message at index.
func (s *Session) Retry(ctx context.Context, index int) (Snapshot, error) {
	profile := s.store.Read()
	if profile.CoachID == "" {
		return s.Snapshot(), ErrCoachRequired
	}

	s.mu.Lock()
	pending, ok := s.failed[index]
	if !ok {
		snapshot := s.snapshotLocked()
		s.mu.Unlock()
		return snapshot, fmt.Errorf("%w: index %d", ErrNotRetryable, index)
	}
	delete(s.failed, index)
	s.mu.Unlock()

	return s.dispatch(ctx, profile, index, pending.content, pending.display)
}

// Skip requests a program from the profile as it stands and moves on
// without waiting for it.
func (s *Session) Skip(ctx context.Context) Snapshot {
	profile := s.store.Read()

	s.mu.Lock()
	payload := onboarding.SkipPayload(profile, cloneHistory(s.history))
	s.nextRoute = onboarding.RouteProgramReady
	s.mu.Unlock()

	s.generate(ctx, "skip program generation", payload)
	s.publish()
	return s.Snapshot()
}

// Wait blocks until background program requests started by this session's
// runner have finished.
func (s *Session) Wait() {
	s.detached.Wait()
}

func (s *Session) dispatch(ctx context.Context, profile models.Profile, index int, content string, display bool) (Snapshot, error) {
	s.mu.Lock()
	s.state = StateAwaitingResponse
	s.loading = true
	history := cloneHistory(s.history)
	s.mu.Unlock()
	s.publish()

	body, err := s.transport.ChatWithAgent(ctx, onboarding.ChatPayload(profile, content, history))
	var reply Reply
	if err == nil {
		reply, err = ParseReply(body)
	}
	if err != nil {
		log.Printf("chat session=%s user_id=%s index=%d send failed: %v", s.id, profile.UserID, index, err)
		s.mu.Lock()
		s.failed[index] = pendingSend{content: content, display: display}
		s.state = StateFailed
		s.loading = false
		s.mu.Unlock()
		s.publish()
		return s.Snapshot(), fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	s.mu.Lock()
	delete(s.failed, index)
	if reply.HasChatHistory {
		s.history = reply.ChatHistory
	}
	if reply.Message != "" && (display || len(s.messages) == 0) {
		s.messages = append(s.messages, models.ChatMessage{Role: models.RoleAssistant, Content: reply.Message})
	}
	s.state = StateIdle
	s.loading = false
	history = cloneHistory(s.history)
	s.mu.Unlock()

	if reply.HasChatHistory {
		if _, err := s.store.Merge(ctx, onboarding.Patch{"chat_history": history}); err != nil {
			log.Printf("chat session=%s user_id=%s save history failed: %v", s.id, profile.UserID, err)
		}
	}
	if reply.ProgramCreation {
		s.startProgram(ctx, reply, history)
	}

	s.publish()
	return s.Snapshot(), nil
}

func (s *Session) startProgram(ctx context.Context, reply Reply, history []models.ChatMessage) {
	params := DeriveProgramParams(reply)
	profile, err := s.store.Merge(ctx, params.Patch())
	if err != nil {
		log.Printf("chat session=%s save program params failed: %v", s.id, err)
		profile = s.store.Read()
	}
	profile = params.Apply(profile)

	s.mu.Lock()
	s.nextRoute = onboarding.RouteProgramReady
	s.mu.Unlock()

	s.generate(ctx, "program generation", onboarding.ProgramPayload(profile, history))
}

func (s *Session) generate(ctx context.Context, name string, payload models.ProgramRequest) {
	sessionID := s.id
	s.detached.Go(ctx, name, func(ctx context.Context) error {
		body, err := s.transport.GenerateProgram(ctx, payload)
		if err != nil {
			return fmt.Errorf("session %s: %w", sessionID, err)
		}
		log.Printf("chat session=%s user_id=%s program generated bytes=%d", sessionID, payload.UserID, len(body))
		return nil
	})
}

func (s *Session) publish() {
	s.mu.Lock()
	observer := s.observer
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	if observer != nil {
		observer(snapshot)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	failed := make([]int, 0, len(s.failed))
	for index := range s.failed {
		failed = append(failed, index)
	}
	sort.Ints(failed)

	return Snapshot{
		ID:            s.id,
		State:         s.state,
		Messages:      cloneHistory(s.messages),
		ChatHistory:   cloneHistory(s.history),
		FailedIndexes: failed,
		IsLoading:     s.loading,
		Started:       s.started,
		NextRoute:     s.nextRoute,
	}
}

func cloneHistory(history []models.ChatMessage) []models.ChatMessage {
	return append([]models.ChatMessage{}, history...)
}
