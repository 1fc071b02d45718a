package handlers

import (
	"context"

	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/wallet"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// WalletService is the part of wallet.Manager exposed over HTTP.
type WalletService interface {
	Session() wallet.Session
	HasProvider() bool
	Connect(ctx context.Context) (string, error)
	Disconnect(ctx context.Context)
	SwitchNetwork(ctx context.Context, target chain.Target) (*chain.Network, error)
	SendTransaction(ctx context.Context, to, valueWei, data string) (string, error)
}

type TxTracker interface {
	Track(hash string, onConfirmed func())
}

type WalletHandler struct {
	wallet  WalletService
	tracker TxTracker
	log     *zap.Logger
}

func NewWalletHandler(w WalletService, tracker TxTracker, log *zap.Logger) *WalletHandler {
	return &WalletHandler{wallet: w, tracker: tracker, log: log}
}

func walletView(w WalletService) dto.WalletResponse {
	sess := w.Session()
	resp := dto.WalletResponse{
		Session:       sess,
		State:         sess.State(),
		IsBaseNetwork: chain.IsBaseNetwork(sess.ChainID),
		HasProvider:   w.HasProvider(),
	}
	if sess.ChainID != 0 {
		resp.NetworkName = chain.NetworkName(sess.ChainID)
	}
	return resp
}

// GetWallet GET /me/wallet
func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletView(h.wallet)})
}

// Connect POST /me/wallet
func (h *WalletHandler) Connect(c *fiber.Ctx) error {
	if _, err := h.wallet.Connect(c.UserContext()); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletView(h.wallet)})
}

// Disconnect DELETE /me/wallet
func (h *WalletHandler) Disconnect(c *fiber.Ctx) error {
	h.wallet.Disconnect(c.UserContext())
	return c.JSON(dto.SuccessResponse{OK: true, Data: walletView(h.wallet)})
}

// SwitchNetwork POST /me/wallet/network
func (h *WalletHandler) SwitchNetwork(c *fiber.Ctx) error {
	var req dto.SwitchNetworkRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	target, err := chain.ParseTarget(req.Target)
	if err != nil {
		return badRequest(c, err.Error())
	}

	landed, err := h.wallet.SwitchNetwork(c.UserContext(), target)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.SwitchNetworkResponse{
		Network: landed,
		Wallet:  walletView(h.wallet),
	}})
}

// SendTransaction POST /me/wallet/transactions
func (h *WalletHandler) SendTransaction(c *fiber.Ctx) error {
	var req dto.SendTransactionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.To == "" {
		return badRequest(c, "to is required")
	}

	hash, err := h.wallet.SendTransaction(c.UserContext(), req.To, req.Value, req.Data)
	if err != nil {
		return writeError(c, h.log, err)
	}
	if h.tracker != nil {
		h.tracker.Track(hash, nil)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.TransactionResponse{Hash: hash}})
}
