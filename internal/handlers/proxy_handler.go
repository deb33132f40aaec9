package handlers

import (
	"context"
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/fitversal/onboardchat/internal/services"
)

type proxyForwarder interface {
	Forward(ctx context.Context, route services.ProxyRoute, body []byte) ([]byte, error)
}

// ProxyHandler exposes the two program service routes the wizard talks to.
type ProxyHandler struct {
	forwarder proxyForwarder
}

func NewProxyHandler(forwarder proxyForwarder) *ProxyHandler {
	return &ProxyHandler{forwarder: forwarder}
}

func (h *ProxyHandler) ChatWithAgent(c *fiber.Ctx) error {
	return h.forward(c, services.ChatRoute)
}

func (h *ProxyHandler) GenerateProgram(c *fiber.Ctx) error {
	return h.forward(c, services.ProgramRoute)
}

func (h *ProxyHandler) forward(c *fiber.Ctx, route services.ProxyRoute) error {
	response, err := h.forwarder.Forward(c.UserContext(), route, c.Body())
	if err != nil {
		return mapProxyError(c, route, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Status(fiber.StatusOK).Send(response)
}

func mapProxyError(c *fiber.Ctx, route services.ProxyRoute, err error) error {
	var missing *services.MissingFieldError
	var upstream *services.UpstreamError

	switch {
	case errors.As(err, &missing):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": missing.Error()})
	case errors.As(err, &upstream):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"details": upstream.Message,
		})
	default:
		log.Printf("Error in %s: %v", route.Name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":   "Internal server error",
			"details": err.Error(),
		})
	}
}
