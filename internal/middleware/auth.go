package middleware

import (
	"strings"

	"github.com/fathia/miniapp/internal/auth"
	"github.com/fathia/miniapp/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

// SessionLookup reports the signed-in user; session.Service implements it.
type SessionLookup interface {
	Current() (models.User, bool)
}

// AuthMiddleware accepts a bearer token (or ?token= for websocket upgrades)
// issued to the user who is still signed in.
func AuthMiddleware(secret string, sessions SessionLookup, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, ok := bearerToken(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "missing authorization header"})
		}

		claims, err := auth.ParseJWT(secret, tokenStr)
		if err != nil {
			log.Debug("jwt parse error", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
		}

		user, signedIn := sessions.Current()
		if !signedIn || user.ID != claims.UserID {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "session ended"})
		}

		c.Locals(CtxUserID, claims.UserID)
		c.Locals(CtxEmail, claims.Email)

		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := c.Get("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		return token, token != header && token != ""
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

func GetUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(CtxUserID).(string)
	return id
}
