package handlers

import (
	"github.com/fathia/miniapp/internal/chain"
	"github.com/fathia/miniapp/internal/http/dto"
	"github.com/gofiber/fiber/v2"
)

type NetworkHandler struct {
	networks []dto.NetworkInfo
}

func NewNetworkHandler() *NetworkHandler {
	var infos []dto.NetworkInfo
	for _, n := range chain.Networks() {
		id := n.ChainID()
		infos = append(infos, dto.NetworkInfo{
			Network:   n,
			ID:        id,
			IsBase:    chain.IsBaseNetwork(id),
			IsTestnet: chain.IsTestnet(id),
		})
	}
	return &NetworkHandler{networks: infos}
}

// GetNetworks GET /networks
func (h *NetworkHandler) GetNetworks(c *fiber.Ctx) error {
	return c.JSON(dto.SuccessResponse{OK: true, Data: h.networks})
}
