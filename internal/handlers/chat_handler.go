package handlers

import (
	"context"
	"errors"
	"strconv"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/fitversal/onboardchat/internal/chat"
	"github.com/fitversal/onboardchat/internal/middleware"
	"github.com/fitversal/onboardchat/internal/services"
	chatws "github.com/fitversal/onboardchat/internal/websocket"
)

type chatApplicationService interface {
	chatws.SessionActions
	Snapshot(ctx context.Context, userID string) (chat.Snapshot, error)
}

type ChatHandler struct {
	service chatApplicationService
	hub     *chatws.Hub
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

func NewChatHandler(service chatApplicationService, hub *chatws.Hub) *ChatHandler {
	return &ChatHandler{
		service: service,
		hub:     hub,
	}
}

// GetSession opens the user's conversation, greeting the coach on the
// first visit.
func (h *ChatHandler) GetSession(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	snapshot, err := h.service.Open(c.UserContext(), userID)
	if err != nil {
		return mapChatError(c, snapshot, err)
	}
	return c.JSON(fiber.Map{"session": snapshot})
}

// GetSnapshot reports the session without starting the conversation.
func (h *ChatHandler) GetSnapshot(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	snapshot, err := h.service.Snapshot(c.UserContext(), userID)
	if err != nil {
		return mapChatError(c, snapshot, err)
	}
	return c.JSON(fiber.Map{"session": snapshot})
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	snapshot, err := h.service.Send(c.UserContext(), userID, req.Message)
	if err != nil {
		return mapChatError(c, snapshot, err)
	}
	return c.JSON(fiber.Map{"session": snapshot})
}

func (h *ChatHandler) RetryMessage(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message index"})
	}

	snapshot, err := h.service.Retry(c.UserContext(), userID, index)
	if err != nil {
		return mapChatError(c, snapshot, err)
	}
	return c.JSON(fiber.Map{"session": snapshot})
}

func (h *ChatHandler) Skip(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	snapshot, err := h.service.Skip(c.UserContext(), userID)
	if err != nil {
		return mapChatError(c, snapshot, err)
	}
	return c.JSON(fiber.Map{"session": snapshot})
}

func (h *ChatHandler) WebSocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}
	if _, ok := currentUserID(c); !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	return c.Next()
}

func (h *ChatHandler) HandleWebSocket(conn *websocket.Conn) {
	userID, _ := conn.Locals(middleware.LocalUserID).(string)
	client := chatws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(context.Background(), h.service)
}

func mapChatError(c *fiber.Ctx, snapshot chat.Snapshot, err error) error {
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Message is required"})
	case errors.Is(err, chat.ErrCoachRequired):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Select a coach before chatting", "session": snapshot})
	case errors.Is(err, chat.ErrNotRetryable):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Message cannot be retried", "session": snapshot})
	case errors.Is(err, chat.ErrSendFailed):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Message failed to send", "session": snapshot})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
