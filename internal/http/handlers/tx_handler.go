package handlers

import (
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/models"
	"github.com/gofiber/fiber/v2"
)

type TxStatusView interface {
	Current() (models.TransactionRecord, bool)
}

// TxResetter clears the last transaction hash; mood.Contract implements it.
type TxResetter interface {
	ResetTransactionHash()
}

type TxHandler struct {
	status TxStatusView
	reset  TxResetter
}

func NewTxHandler(status TxStatusView, reset TxResetter) *TxHandler {
	return &TxHandler{status: status, reset: reset}
}

// GetCurrent GET /tx
func (h *TxHandler) GetCurrent(c *fiber.Ctx) error {
	rec, ok := h.status.Current()
	if !ok {
		return c.JSON(dto.SuccessResponse{OK: true})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: rec})
}

// Reset DELETE /tx
func (h *TxHandler) Reset(c *fiber.Ctx) error {
	h.reset.ResetTransactionHash()
	return c.JSON(dto.SuccessResponse{OK: true})
}
