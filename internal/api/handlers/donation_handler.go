package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/services"
	"example.com/foodbank/services/donations/internal/tracing"
)

// DonationHandler handles donation receipt requests
type DonationHandler struct {
	donationService *services.DonationService
	tracer          tracing.Tracer
}

// NewDonationHandler creates a new donation handler
func NewDonationHandler(donationService *services.DonationService, tracer tracing.Tracer) *DonationHandler {
	return &DonationHandler{
		donationService: donationService,
		tracer:          tracer,
	}
}

// HandleCreateDonation records a donation and its lots
func (h *DonationHandler) HandleCreateDonation(c *gin.Context) {
	txn := h.tracer.StartTransaction("api-create-donation")
	defer h.tracer.EndTransaction(txn)

	var payload models.DonationPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Error().Err(err).Msg("Invalid donation request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		h.tracer.RecordError(txn, err)
		return
	}

	h.tracer.AddAttribute(txn, "items", len(payload.Items))

	donation, err := h.donationService.CreateDonation(c.Request.Context(), &payload)
	if err != nil {
		if errors.Is(err, services.ErrEmptyDonation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A doação precisa conter ao menos um item."})
			return
		}
		log.Error().Err(err).Msg("Failed to create donation")
		h.tracer.RecordError(txn, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": donation.ID})
}

// RegisterRoutes registers the handler's routes
func (h *DonationHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/api/doacoes", h.HandleCreateDonation)
}
