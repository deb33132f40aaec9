package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fitversal/onboardchat/internal/models"
)

type Forwarder interface {
	Forward(ctx context.Context, route ProxyRoute, body []byte) ([]byte, error)
}

// ProxyTransport serves chat sessions in-process through the same
// validation as the public proxy routes.
type ProxyTransport struct {
	forwarder Forwarder
}

func NewProxyTransport(forwarder Forwarder) *ProxyTransport {
	return &ProxyTransport{forwarder: forwarder}
}

func (t *ProxyTransport) ChatWithAgent(ctx context.Context, req models.ChatRequest) ([]byte, error) {
	return t.forward(ctx, ChatRoute, req)
}

func (t *ProxyTransport) GenerateProgram(ctx context.Context, req models.ProgramRequest) ([]byte, error) {
	return t.forward(ctx, ProgramRoute, req)
}

func (t *ProxyTransport) forward(ctx context.Context, route ProxyRoute, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", route.Name, err)
	}
	return t.forwarder.Forward(ctx, route, body)
}
