package handlers

import (
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/session"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	sessions Sessions
	wallet   WalletService
	records  VerificationRecords
	log      *zap.Logger
}

func NewUserHandler(sessions Sessions, w WalletService, records VerificationRecords, log *zap.Logger) *UserHandler {
	return &UserHandler{sessions: sessions, wallet: w, records: records, log: log}
}

// GetMe GET /me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, ok := h.sessions.Current()
	if !ok {
		return writeError(c, h.log, session.ErrNotSignedIn)
	}

	resp := dto.MeResponse{User: user, Wallet: walletView(h.wallet)}
	if addr := resp.Wallet.Address; addr != "" {
		rec, found := h.records.Get(addr)
		resp.Verified = found && rec.Verified
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: resp})
}
