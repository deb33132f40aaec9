package auth

import (
	"context"
	"errors"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitversal/onboardchat/internal/config"
)

type stubIDTokenVerifier struct {
	token *fbauth.Token
	err   error
	seen  string
}

func (s *stubIDTokenVerifier) VerifyIDToken(_ context.Context, idToken string) (*fbauth.Token, error) {
	s.seen = idToken
	return s.token, s.err
}

func TestFirebaseVerifierReadsClaims(t *testing.T) {
	stub := &stubIDTokenVerifier{token: &fbauth.Token{
		UID: "uid-1",
		Claims: map[string]interface{}{
			"email":   "ana@example.com",
			"name":    "Ana Maria",
			"picture": "https://example.com/ana.png",
		},
	}}
	verifier := &FirebaseVerifier{client: stub}

	identity, err := verifier.Verify(context.Background(), " token-abc ")
	require.NoError(t, err)
	assert.Equal(t, "token-abc", stub.seen)
	assert.Equal(t, "uid-1", identity.UID)
	assert.Equal(t, "ana@example.com", identity.Email)
	assert.Equal(t, "Ana Maria", identity.DisplayName)
	assert.Equal(t, "https://example.com/ana.png", identity.PhotoURL)
}

func TestFirebaseVerifierWrapsFailures(t *testing.T) {
	verifier := &FirebaseVerifier{client: &stubIDTokenVerifier{err: errors.New("token expired")}}

	_, err := verifier.Verify(context.Background(), "token-abc")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = verifier.Verify(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDevVerifier(t *testing.T) {
	identity, err := DevVerifier{}.Verify(context.Background(), "dev:tester")
	require.NoError(t, err)
	assert.Equal(t, "tester", identity.UID)

	for _, token := range []string{"", "dev:", "tester", "Bearer dev:x"} {
		_, err := DevVerifier{}.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}

func TestNewVerifierDevBypass(t *testing.T) {
	verifier, err := NewVerifier(context.Background(), config.AuthConfig{DevBypass: true})
	require.NoError(t, err)
	assert.IsType(t, DevVerifier{}, verifier)
}
