package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/fitversal/onboardchat/internal/config"
	"github.com/fitversal/onboardchat/internal/onboarding"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenVerifier turns a Firebase ID token into the account it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (onboarding.Identity, error)
}

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type FirebaseVerifier struct {
	client idTokenVerifier
}

func NewFirebaseVerifier(ctx context.Context, cfg config.AuthConfig) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &FirebaseVerifier{client: client}, nil
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (onboarding.Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return onboarding.Identity{}, ErrInvalidToken
	}

	verified, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return onboarding.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return identityFromToken(verified), nil
}

func identityFromToken(token *fbauth.Token) onboarding.Identity {
	return onboarding.Identity{
		UID:         token.UID,
		Email:       claimString(token.Claims, "email"),
		DisplayName: claimString(token.Claims, "name"),
		PhotoURL:    claimString(token.Claims, "picture"),
	}
}

func claimString(claims map[string]interface{}, key string) string {
	value, _ := claims[key].(string)
	return value
}

// DevVerifier accepts "dev:<uid>" tokens so the service can run without a
// Firebase project during local development.
type DevVerifier struct{}

const devTokenPrefix = "dev:"

func (DevVerifier) Verify(_ context.Context, token string) (onboarding.Identity, error) {
	token = strings.TrimSpace(token)
	if !strings.HasPrefix(token, devTokenPrefix) {
		return onboarding.Identity{}, ErrInvalidToken
	}
	uid := strings.TrimSpace(strings.TrimPrefix(token, devTokenPrefix))
	if uid == "" {
		return onboarding.Identity{}, ErrInvalidToken
	}
	return onboarding.Identity{
		UID:         uid,
		Email:       uid + "@dev.local",
		DisplayName: uid,
	}, nil
}

// NewVerifier picks the development verifier when the bypass is on and
// Firebase otherwise.
func NewVerifier(ctx context.Context, cfg config.AuthConfig) (TokenVerifier, error) {
	if cfg.DevBypass {
		return DevVerifier{}, nil
	}
	return NewFirebaseVerifier(ctx, cfg)
}
