package handlers

import (
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/mood"
	"github.com/fathia/miniapp/internal/verify"
	"github.com/fathia/miniapp/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type VerificationRecords interface {
	Get(address string) (models.VerificationRecord, bool)
}

type VerifyHandler struct {
	verifier verify.Verifier
	records  VerificationRecords
	moods    mood.Contract
	wallet   WalletService
	log      *zap.Logger
}

func NewVerifyHandler(verifier verify.Verifier, records VerificationRecords, moods mood.Contract, w WalletService, log *zap.Logger) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, records: records, moods: moods, wallet: w, log: log}
}

// Verify POST /verify
// The subject defaults to the connected wallet when the body has none.
func (h *VerifyHandler) Verify(c *fiber.Ctx) error {
	var req verify.Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(verify.Response{Error: "invalid request body"})
	}
	if req.Address == "" {
		if sess := h.wallet.Session(); sess.IsConnected {
			req.Address = sess.Address
		}
	}

	rec, err := h.verifier.Verify(c.UserContext(), req)
	if err != nil {
		h.log.Debug("verification rejected", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(verify.Response{Error: err.Error()})
	}
	return c.JSON(verify.Response{Success: true, ID: rec.VerificationID})
}

// GetStatus GET /me/verification
func (h *VerifyHandler) GetStatus(c *fiber.Ctx) error {
	sess := h.wallet.Session()
	if !sess.IsConnected || sess.Address == "" {
		return writeError(c, h.log, wallet.ErrNotConnected)
	}

	verified, err := h.moods.CheckUserVerification(c.UserContext(), sess.Address)
	if err != nil {
		return writeError(c, h.log, err)
	}

	resp := dto.VerificationStatusResponse{Address: sess.Address, Verified: verified}
	if rec, ok := h.records.Get(sess.Address); ok {
		resp.Record = &rec
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: resp})
}
