package services

import (
	"context"
	"sync"

	"github.com/fitversal/onboardchat/internal/chat"
	"github.com/fitversal/onboardchat/internal/onboarding"
)

type storeProvider interface {
	Store(ctx context.Context, userID string) (*onboarding.Store, error)
}

// SnapshotNotifier receives every session change for a user.
type SnapshotNotifier interface {
	NotifySnapshot(userID string, snapshot chat.Snapshot)
}

// ChatService owns one chat session per user. Background program requests
// of every session share a single detached runner so shutdown can drain
// them.
type ChatService struct {
	profiles  storeProvider
	transport chat.Transport
	detached  *chat.Detached
	notifier  SnapshotNotifier

	mu       sync.Mutex
	sessions map[string]*chat.Session
}

func NewChatService(profiles storeProvider, transport chat.Transport, notifier SnapshotNotifier) *ChatService {
	return &ChatService{
		profiles:  profiles,
		transport: transport,
		detached:  chat.NewDetached(),
		notifier:  notifier,
		sessions:  make(map[string]*chat.Session),
	}
}

func (s *ChatService) session(ctx context.Context, userID string) (*chat.Session, error) {
	s.mu.Lock()
	session, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok {
		return session, nil
	}

	store, err := s.profiles.Store(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[userID]; ok {
		return session, nil
	}
	session = chat.NewSession(store, s.transport, s.detached)
	if s.notifier != nil {
		session.Observe(func(snapshot chat.Snapshot) {
			s.notifier.NotifySnapshot(userID, snapshot)
		})
	}
	s.sessions[userID] = session
	return session, nil
}

// Open returns the user's session, sending the opening greeting the first
// time.
func (s *ChatService) Open(ctx context.Context, userID string) (chat.Snapshot, error) {
	session, err := s.session(ctx, userID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Initialize(ctx)
}

func (s *ChatService) Snapshot(ctx context.Context, userID string) (chat.Snapshot, error) {
	session, err := s.session(ctx, userID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Snapshot(), nil
}

func (s *ChatService) Send(ctx context.Context, userID, message string) (chat.Snapshot, error) {
	session, err := s.session(ctx, userID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Send(ctx, message, true)
}

func (s *ChatService) Retry(ctx context.Context, userID string, index int) (chat.Snapshot, error) {
	session, err := s.session(ctx, userID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Retry(ctx, index)
}

func (s *ChatService) Skip(ctx context.Context, userID string) (chat.Snapshot, error) {
	session, err := s.session(ctx, userID)
	if err != nil {
		return chat.Snapshot{}, err
	}
	return session.Skip(ctx), nil
}

// Shutdown waits for background program requests until ctx ends.
func (s *ChatService) Shutdown(ctx context.Context) error {
	return s.detached.WaitContext(ctx)
}
