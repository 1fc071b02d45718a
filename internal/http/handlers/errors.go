package handlers

import (
	"errors"

	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/middleware"
	"github.com/fathia/miniapp/internal/mood"
	"github.com/fathia/miniapp/internal/session"
	"github.com/fathia/miniapp/internal/verify"
	"github.com/fathia/miniapp/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps domain errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, wallet.ErrInvalidTransaction),
		errors.Is(err, mood.ErrInvalidMood),
		errors.Is(err, verify.ErrVerificationFailed):
		return fiber.StatusBadRequest
	case errors.Is(err, session.ErrInvalidCredentials),
		errors.Is(err, session.ErrNotSignedIn):
		return fiber.StatusUnauthorized
	case errors.Is(err, wallet.ErrUserRejected):
		return fiber.StatusForbidden
	case errors.Is(err, wallet.ErrNotConnected),
		errors.Is(err, wallet.ErrWrongNetwork),
		errors.Is(err, wallet.ErrRequestPending):
		return fiber.StatusConflict
	case errors.Is(err, wallet.ErrNoProvider):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, wallet.ErrProviderTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, wallet.ErrNoAccounts),
		errors.Is(err, wallet.ErrNetworkSwitchFailed),
		errors.Is(err, wallet.ErrTransactionFailed),
		errors.Is(err, wallet.ErrProviderInternal):
		return fiber.StatusBadGateway
	}
	return fiber.StatusInternalServerError
}

// writeError renders err as an ErrorResponse. Internal errors are logged
// and hidden from the client.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, resp := errorResponse(c, log, err)
	return c.Status(status).JSON(resp)
}

func errorResponse(c *fiber.Ctx, log *zap.Logger, err error) (int, dto.ErrorResponse) {
	status := statusFor(err)
	reqID, _ := c.Locals(middleware.CtxRequestID).(string)

	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		log.Error("request failed", zap.String("request_id", reqID), zap.String("path", c.Path()), zap.Error(err))
		msg = "internal server error"
	}
	return status, dto.ErrorResponse{Error: msg, RequestID: reqID}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: msg})
}
