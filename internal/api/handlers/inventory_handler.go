package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/internal/repositories"
	"example.com/foodbank/services/donations/internal/services"
)

// InventoryHandler handles stock view requests
type InventoryHandler struct {
	inventoryService *services.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryService *services.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// HandleListAvailable returns aggregated available stock per (description, unit).
// Query parameters: descricao (substring), unidade (exact), venc ("expired"
// or a number of days until the nearest expiry).
func (h *InventoryHandler) HandleListAvailable(c *gin.Context) {
	filter := repositories.StockFilter{
		Descricao: c.Query("descricao"),
		Unidade:   c.Query("unidade"),
		Venc:      c.Query("venc"),
	}

	groups, err := h.inventoryService.ListAvailable(c.Request.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Failed to aggregate stock")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, groups)
}

// HandleListLots returns the raw lots for one description, FEFO ordered,
// used by the UI to preview stock before submitting a distribution
func (h *InventoryHandler) HandleListLots(c *gin.Context) {
	lots, err := h.inventoryService.ListLots(c.Request.Context(), c.Query("descricao"))
	if err != nil {
		log.Error().Err(err).Msg("Failed to list lots")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, lots)
}

// RegisterRoutes registers the handler's routes
func (h *InventoryHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/api/estoque", h.HandleListAvailable)
	router.GET("/api/estoque/lotes", h.HandleListLots)
}
