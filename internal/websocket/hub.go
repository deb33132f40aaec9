package chatws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	websocket "github.com/gofiber/contrib/websocket"

	"github.com/fitversal/onboardchat/internal/chat"
)

// Hub fans session snapshots out to every open socket of the owning user.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// SessionActions are the chat operations a socket may trigger.
type SessionActions interface {
	Open(ctx context.Context, userID string) (chat.Snapshot, error)
	Send(ctx context.Context, userID, message string) (chat.Snapshot, error)
	Retry(ctx context.Context, userID string, index int) (chat.Snapshot, error)
	Skip(ctx context.Context, userID string) (chat.Snapshot, error)
}

type Message struct {
	Type      string         `json:"type"`
	UserID    string         `json:"-"`
	client    *Client
	Session   *chat.Snapshot `json:"session,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type incomingMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Index   *int   `json:"index"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 64),
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
			}
		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// NotifySnapshot queues a session snapshot for the user's sockets. It
// never blocks the chat session; snapshots are dropped when the queue is
// full.
func (h *Hub) NotifySnapshot(userID string, snapshot chat.Snapshot) {
	message := &Message{
		Type:      "session",
		UserID:    userID,
		Session:   &snapshot,
		Timestamp: timestamp(),
	}
	select {
	case h.broadcast <- message:
	default:
		log.Printf("chat hub user_id=%s dropped session snapshot", userID)
	}
}

func (h *Hub) deliver(message *Message) {
	encoded, err := json.Marshal(message)
	if err != nil {
		log.Printf("chat hub encode message: %v", err)
		return
	}
	if message.client != nil {
		h.sendToClient(message.client, encoded)
		return
	}
	h.sendToUser(message.UserID, encoded)
}

// sendToClient delivers to one socket if it is still registered.
func (h *Hub) sendToClient(client *Client, payload []byte) {
	set, ok := h.clients[client.userID]
	if !ok {
		return
	}
	if _, registered := set[client]; !registered {
		return
	}
	select {
	case client.send <- payload:
	default:
		delete(set, client)
		close(client.send)
		if len(set) == 0 {
			delete(h.clients, client.userID)
		}
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
	}
}

// ReadPump applies socket commands to the user's session until the
// connection closes. Results reach the socket through NotifySnapshot.
func (c *Client) ReadPump(ctx context.Context, actions SessionActions) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming incomingMessage
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}

		if err := dispatch(ctx, actions, c.userID, incoming); err != nil {
			writeError(c, err.Error())
		}
	}
}

func dispatch(ctx context.Context, actions SessionActions, userID string, incoming incomingMessage) error {
	var err error
	switch incoming.Type {
	case "open":
		_, err = actions.Open(ctx, userID)
	case "message":
		_, err = actions.Send(ctx, userID, incoming.Content)
	case "retry":
		if incoming.Index == nil {
			return errors.New("retry requires an index")
		}
		_, err = actions.Retry(ctx, userID, *incoming.Index)
	case "skip":
		_, err = actions.Skip(ctx, userID)
	default:
		return errors.New("unsupported message type")
	}

	switch {
	case err == nil:
		return nil
	case errors.Is(err, chat.ErrSendFailed):
		return errors.New("message failed to send")
	default:
		return err
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// writeError queues an error frame for one socket. Only the hub goroutine
// writes to or closes client.send.
func writeError(client *Client, message string) {
	frame := &Message{
		Type:      "error",
		UserID:    client.userID,
		Error:     message,
		Timestamp: timestamp(),
		client:    client,
	}
	select {
	case client.hub.broadcast <- frame:
	default:
		log.Printf("chat hub user_id=%s dropped error frame", client.userID)
	}
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
