package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/services"
)

// PartnerHandler handles donor and institution registration requests
type PartnerHandler struct {
	partnerService *services.PartnerService
}

// NewPartnerHandler creates a new partner handler
func NewPartnerHandler(partnerService *services.PartnerService) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService}
}

// HandleCreateDonor registers a donor
func (h *PartnerHandler) HandleCreateDonor(c *gin.Context) {
	var donor models.Donor
	if err := c.ShouldBindJSON(&donor); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.partnerService.CreateDonor(c.Request.Context(), &donor); err != nil {
		if errors.Is(err, services.ErrMissingName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Campo "nome" é obrigatório.`})
			return
		}
		log.Error().Err(err).Msg("Failed to create donor")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": donor.ID})
}

// HandleListDonors lists registered donors
func (h *PartnerHandler) HandleListDonors(c *gin.Context) {
	donors, err := h.partnerService.ListDonors(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list donors")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, donors)
}

// HandleCreateInstitution registers a partner institution
func (h *PartnerHandler) HandleCreateInstitution(c *gin.Context) {
	var institution models.Institution
	if err := c.ShouldBindJSON(&institution); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.partnerService.CreateInstitution(c.Request.Context(), &institution); err != nil {
		if errors.Is(err, services.ErrMissingName) {
			c.JSON(http.StatusBadRequest, gin.H{"error": `Campo "nome" é obrigatório.`})
			return
		}
		log.Error().Err(err).Msg("Failed to create institution")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": institution.ID})
}

// HandleListInstitutions lists registered institutions
func (h *PartnerHandler) HandleListInstitutions(c *gin.Context) {
	institutions, err := h.partnerService.ListInstitutions(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list institutions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, institutions)
}

// RegisterRoutes registers the handler's routes
func (h *PartnerHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/doadores", h.HandleCreateDonor)
	router.GET("/api/doadores", h.HandleListDonors)
	router.POST("/api/instituicoes", h.HandleCreateInstitution)
	router.GET("/api/instituicoes", h.HandleListInstitutions)
}
