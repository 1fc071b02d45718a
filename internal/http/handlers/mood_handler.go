package handlers

import (
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/fathia/miniapp/internal/models"
	"github.com/fathia/miniapp/internal/mood"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type MoodHandler struct {
	moods mood.Contract
	log   *zap.Logger
}

func NewMoodHandler(moods mood.Contract, log *zap.Logger) *MoodHandler {
	return &MoodHandler{moods: moods, log: log}
}

// GetCurrent GET /moods/current
func (h *MoodHandler) GetCurrent(c *fiber.Ctx) error {
	if _, err := h.moods.FetchCurrentMood(c.UserContext()); err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.moods.State()})
}

// SetMood POST /moods
func (h *MoodHandler) SetMood(c *fiber.Ctx) error {
	var req dto.SetMoodRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if !models.IsValidMood(req.Mood) {
		return badRequest(c, "mood must be one of the predefined labels")
	}

	hash, err := h.moods.SetMood(c.UserContext(), req.Mood)
	if err != nil {
		status, resp := errorResponse(c, h.log, err)
		// the transaction may already be on its way
		resp.TxHash = hash
		return c.Status(status).JSON(resp)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.TransactionResponse{Hash: hash}})
}

// GetHistory GET /moods/history
func (h *MoodHandler) GetHistory(c *fiber.Ctx) error {
	entries, err := h.moods.GetMoodHistory(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}

// GetLatest GET /moods/latest
func (h *MoodHandler) GetLatest(c *fiber.Ctx) error {
	records, err := h.moods.GetAllLatestMoods(c.UserContext())
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: records})
}

func (h *MoodHandler) GetLabels(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: models.MoodLabels})
}
