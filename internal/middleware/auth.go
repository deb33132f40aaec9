package middleware

import (
	"log"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/fitversal/onboardchat/internal/auth"
)

const (
	LocalUserID  = "user_id"
	LocalEmail   = "email"
	LocalName    = "name"
	LocalPicture = "picture"

	authRoute = "/onboarding/auth"
)

// AuthRequired guards API routes. The Firebase ID token comes from the
// auth cookie or a Bearer header.
func AuthRequired(verifier auth.TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := extractToken(c, cookieName)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authentication token",
			})
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		setIdentity(c, identity.UID, identity.Email, identity.DisplayName, identity.PhotoURL)
		return c.Next()
	}
}

// PageGuard sends unauthenticated visitors of onboarding pages to the auth
// page, remembering where they were headed. The auth page itself is open.
func PageGuard(verifier auth.TokenVerifier, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == authRoute || strings.HasPrefix(path, authRoute+"/") {
			return c.Next()
		}

		token := c.Cookies(cookieName)
		if token == "" {
			return redirectToAuth(c, path)
		}

		identity, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			log.Printf("page guard path=%s rejected token: %v", path, err)
			return redirectToAuth(c, path)
		}

		setIdentity(c, identity.UID, identity.Email, identity.DisplayName, identity.PhotoURL)
		return c.Next()
	}
}

func redirectToAuth(c *fiber.Ctx, path string) error {
	return c.Redirect(authRoute+"?callbackUrl="+url.QueryEscape(path), fiber.StatusFound)
}

func extractToken(c *fiber.Ctx, cookieName string) (string, bool) {
	if token := strings.TrimSpace(c.Cookies(cookieName)); token != "" {
		return token, true
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func setIdentity(c *fiber.Ctx, uid, email, name, picture string) {
	c.Locals(LocalUserID, uid)
	c.Locals(LocalEmail, email)
	c.Locals(LocalName, name)
	c.Locals(LocalPicture, picture)
}
