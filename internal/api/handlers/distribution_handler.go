package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/services"
	"example.com/foodbank/services/donations/internal/tracing"
)

// DistributionHandler handles distribution requests
type DistributionHandler struct {
	distributionService *services.DistributionService
	partnerService      *services.PartnerService
	tracer              tracing.Tracer
}

// NewDistributionHandler creates a new distribution handler
func NewDistributionHandler(
	distributionService *services.DistributionService,
	partnerService *services.PartnerService,
	tracer tracing.Tracer,
) *DistributionHandler {
	return &DistributionHandler{
		distributionService: distributionService,
		partnerService:      partnerService,
		tracer:              tracer,
	}
}

// HandleCreateDistribution registers a distribution, consuming stock FEFO.
// The whole request is rejected when any line cannot be fully satisfied.
func (h *DistributionHandler) HandleCreateDistribution(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-distribution")
	defer h.tracer.EndTransaction(txn)

	var payload models.DistributionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid distribution request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Informe os itens da saída."})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "items", len(payload.Items))

	distribution, err := h.distributionService.CreateDistribution(c.Request.Context(), &payload)
	if err != nil {
		var stockErr *services.InsufficientStockError
		switch {
		case errors.As(err, &stockErr):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Estoque insuficiente para \"%s\". Faltam %s", stockErr.Descricao, stockErr.Faltam),
			})
		case errors.Is(err, services.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Informe os itens da saída."})
		default:
			log.Error().Err(err).Msg("Failed to create distribution")
			h.tracer.RecordError(txn, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"id_saida": distribution.ID})
}

// HandleGetDistribution returns one distribution with its consumption records
func (h *DistributionHandler) HandleGetDistribution(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Identificador inválido."})
		return
	}

	distribution, err := h.distributionService.Get(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Saída não encontrada."})
			return
		}
		log.Error().Err(err).Msg("Failed to get distribution")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, distribution)
}

// distributionResponse decorates a distribution with its institution name
type distributionResponse struct {
	models.Distribution
	Instituicao *string `json:"instituicao"`
}

// HandleListDistributions lists distributions with their consumption records
func (h *DistributionHandler) HandleListDistributions(c *gin.Context) {
	ctx := c.Request.Context()

	distributions, err := h.distributionService.List(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list distributions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	institutions, err := h.partnerService.ListInstitutions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to resolve institution names")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	names := make(map[uint]string, len(institutions))
	for _, institution := range institutions {
		names[institution.ID] = institution.Nome
	}

	response := make([]distributionResponse, 0, len(distributions))
	for _, distribution := range distributions {
		item := distributionResponse{Distribution: distribution}
		if distribution.InstitutionID != nil {
			if nome, ok := names[*distribution.InstitutionID]; ok {
				item.Instituicao = &nome
			}
		}
		response = append(response, item)
	}

	c.JSON(http.StatusOK, response)
}

// RegisterRoutes registers the handler's routes
func (h *DistributionHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/saidas", h.HandleCreateDistribution)
	router.GET("/api/saidas", h.HandleListDistributions)
	router.GET("/api/saidas/:id", h.HandleGetDistribution)
}
