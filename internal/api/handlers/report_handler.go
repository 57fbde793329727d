package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/internal/services"
)

// ReportHandler handles the accountability report endpoints
type ReportHandler struct {
	reportService    *services.ReportService
	inventoryService *services.InventoryService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService *services.ReportService, inventoryService *services.InventoryService) *ReportHandler {
	return &ReportHandler{
		reportService:    reportService,
		inventoryService: inventoryService,
	}
}

func (h *ReportHandler) respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Report query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleEntries reports received quantities per day, donor and item
func (h *ReportHandler) HandleEntries(c *gin.Context) {
	rows, err := h.reportService.Entries(c.Request.Context(), c.Query("start"), c.Query("end"))
	h.respond(c, rows, err)
}

// HandleStockPosition reports the aggregated stock, nearest expiry first
func (h *ReportHandler) HandleStockPosition(c *gin.Context) {
	groups, err := h.inventoryService.StockPosition(c.Request.Context())
	h.respond(c, groups, err)
}

// HandleOutflows reports distributed quantities per day, institution and item
func (h *ReportHandler) HandleOutflows(c *gin.Context) {
	rows, err := h.reportService.Outflows(c.Request.Context(), c.Query("start"), c.Query("end"))
	h.respond(c, rows, err)
}

// HandleByInstitution reports distributed quantities per institution and item
func (h *ReportHandler) HandleByInstitution(c *gin.Context) {
	rows, err := h.reportService.ByInstitution(c.Request.Context(), c.Query("start"), c.Query("end"))
	h.respond(c, rows, err)
}

// HandleDetailed lists every consumption record with its distribution context
func (h *ReportHandler) HandleDetailed(c *gin.Context) {
	rows, err := h.reportService.Detailed(c.Request.Context(), c.Query("start"), c.Query("end"))
	h.respond(c, rows, err)
}

// RegisterRoutes registers the handler's routes
func (h *ReportHandler) RegisterRoutes(router *gin.Engine) {
	reports := router.Group("/api/relatorios")
	reports.GET("/entradas", h.HandleEntries)
	reports.GET("/posicao_estoque", h.HandleStockPosition)
	reports.GET("/saidas", h.HandleOutflows)
	reports.GET("/prestacao_instituicoes", h.HandleByInstitution)
	reports.GET("/prestacao_detalhada", h.HandleDetailed)
}
