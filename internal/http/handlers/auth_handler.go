package handlers

import (
	"context"
	"time"

	"github.com/fathia/miniapp/internal/auth"
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Sessions is the mock auth flow; session.Service implements it.
type Sessions interface {
	Current() (models.User, bool)
	SignIn(ctx context.Context, email, password string) (models.User, error)
	SignUp(ctx context.Context, email, password, name string) (models.User, error)
	SignOut(ctx context.Context) error
}

type AuthHandler struct {
	sessions  Sessions
	jwtSecret string
	jwtTTL    time.Duration
	log       *zap.Logger
}

func NewAuthHandler(sessions Sessions, jwtSecret string, jwtTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{sessions: sessions, jwtSecret: jwtSecret, jwtTTL: jwtTTL, log: log}
}

// SignIn POST /auth/signin
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.sessions.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.issue(c, user)
}

// SignUp POST /auth/signup
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	user, err := h.sessions.SignUp(c.UserContext(), req.Email, req.Password, req.Name)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.issue(c, user)
}

// SignOut POST /auth/signout
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	if err := h.sessions.SignOut(c.UserContext()); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true})
}

func (h *AuthHandler) issue(c *fiber.Ctx, user models.User) error {
	token, err := auth.GenerateJWT(h.jwtSecret, user.ID, user.Email, h.jwtTTL)
	if err != nil {
		h.log.Error("failed to generate jwt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.AuthResponse{Token: token, User: user})
}
