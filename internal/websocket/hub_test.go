package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fitversal/onboardchat/internal/chat"
)

type stubActions struct {
	calls []string
	err   error
}

func (s *stubActions) Open(_ context.Context, userID string) (chat.Snapshot, error) {
	s.calls = append(s.calls, "open:"+userID)
	return chat.Snapshot{}, s.err
}

func (s *stubActions) Send(_ context.Context, userID, message string) (chat.Snapshot, error) {
	s.calls = append(s.calls, "send:"+userID+":"+message)
	return chat.Snapshot{}, s.err
}

func (s *stubActions) Retry(_ context.Context, userID string, index int) (chat.Snapshot, error) {
	s.calls = append(s.calls, "retry:"+userID)
	if index != 2 {
		return chat.Snapshot{}, errors.New("unexpected index")
	}
	return chat.Snapshot{}, s.err
}

func (s *stubActions) Skip(_ context.Context, userID string) (chat.Snapshot, error) {
	s.calls = append(s.calls, "skip:"+userID)
	return chat.Snapshot{}, s.err
}

func TestDispatchRoutesCommands(t *testing.T) {
	actions := &stubActions{}
	index := 2

	commands := []incomingMessage{
		{Type: "open"},
		{Type: "message", Content: "Three days"},
		{Type: "retry", Index: &index},
		{Type: "skip"},
	}
	for _, command := range commands {
		if err := dispatch(context.Background(), actions, "u1", command); err != nil {
			t.Fatalf("dispatch %s: %v", command.Type, err)
		}
	}

	want := []string{"open:u1", "send:u1:Three days", "retry:u1", "skip:u1"}
	if len(actions.calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, actions.calls)
	}
	for i := range want {
		if actions.calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, actions.calls)
		}
	}
}

func TestDispatchRejectsBadCommands(t *testing.T) {
	actions := &stubActions{}

	if err := dispatch(context.Background(), actions, "u1", incomingMessage{Type: "retry"}); err == nil {
		t.Fatalf("expected retry without index to fail")
	}
	if err := dispatch(context.Background(), actions, "u1", incomingMessage{Type: "dance"}); err == nil {
		t.Fatalf("expected unknown type to fail")
	}
	if len(actions.calls) != 0 {
		t.Fatalf("expected no session calls, got %v", actions.calls)
	}
}

func TestDispatchHidesTransportDetails(t *testing.T) {
	actions := &stubActions{err: errors.Join(chat.ErrSendFailed, errors.New("dial tcp 10.0.0.1:443"))}

	err := dispatch(context.Background(), actions, "u1", incomingMessage{Type: "message", Content: "hi"})
	if err == nil || err.Error() != "message failed to send" {
		t.Fatalf("expected generic send failure, got %v", err)
	}
}

func TestHubDeliversSnapshotsToOwner(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	owner := &Client{hub: hub, userID: "u1", send: make(chan []byte, 4)}
	other := &Client{hub: hub, userID: "u2", send: make(chan []byte, 4)}
	hub.Register(owner)
	hub.Register(other)

	hub.NotifySnapshot("u1", chat.Snapshot{ID: "s1", State: chat.StateIdle})

	select {
	case payload := <-owner.send:
		var message Message
		if err := json.Unmarshal(payload, &message); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if message.Type != "session" || message.Session == nil || message.Session.ID != "s1" {
			t.Fatalf("unexpected message %s", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected snapshot for owner")
	}

	select {
	case payload := <-other.send:
		t.Fatalf("unexpected delivery to other user: %s", payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestErrorFrameAfterHubClosedSlowClient(t *testing.T) {
	hub := NewHub()
	client := &Client{hub: hub, userID: "u1", send: make(chan []byte, 1)}
	hub.clients["u1"] = map[*Client]struct{}{client: {}}

	client.send <- []byte(`{}`)
	hub.sendToUser("u1", []byte(`{"type":"session"}`))
	if _, registered := hub.clients["u1"]; registered {
		t.Fatalf("expected slow client to be dropped")
	}

	writeError(client, "invalid message payload")
	hub.deliver(<-hub.broadcast)

	<-client.send
	if _, open := <-client.send; open {
		t.Fatalf("expected no frames after the hub closed the client")
	}
}

func TestErrorFrameReachesOnlyItsSocket(t *testing.T) {
	hub := NewHub()
	first := &Client{hub: hub, userID: "u1", send: make(chan []byte, 4)}
	second := &Client{hub: hub, userID: "u1", send: make(chan []byte, 4)}
	hub.clients["u1"] = map[*Client]struct{}{first: {}, second: {}}

	writeError(first, "unsupported message type")
	hub.deliver(<-hub.broadcast)

	if len(second.send) != 0 {
		t.Fatalf("expected error frame only on the failing socket")
	}
	var message Message
	if err := json.Unmarshal(<-first.send, &message); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if message.Type != "error" || message.Error != "unsupported message type" {
		t.Fatalf("unexpected frame %+v", message)
	}
}
