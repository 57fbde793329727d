package services

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/repositories"
	"example.com/foodbank/services/donations/internal/tracing"
)

// DonationService records donation receipts, the sole producer of lots.
// A receipt creates its header and one lot per item atomically.
type DonationService struct {
	db           *gorm.DB
	donationRepo *repositories.DonationRepository
	metrics      *metrics.Metrics
	tracer       tracing.Tracer
}

// NewDonationService creates a new donation service
func NewDonationService(db *gorm.DB, metricsCollector *metrics.Metrics, tracer tracing.Tracer) *DonationService {
	return &DonationService{
		db:           db,
		donationRepo: repositories.NewDonationRepository(db),
		metrics:      metricsCollector,
		tracer:       tracer,
	}
}

// CreateDonation validates and persists one donation receipt. Items with an
// empty description or non-positive quantity are discarded; a receipt with
// no usable item at all is rejected.
func (s *DonationService) CreateDonation(ctx context.Context, payload *models.DonationPayload) (*models.Donation, error) {
	txn := s.tracer.StartTransaction("create-donation")
	defer s.tracer.EndTransaction(txn)

	type lotInput struct {
		descricao  string
		quantidade decimal.Decimal
		unidade    *string
		validade   string
	}

	items := make([]lotInput, 0, len(payload.Items))
	for _, item := range payload.Items {
		descricao := strings.TrimSpace(item.Descricao)
		if descricao == "" || !item.Quantidade.GreaterThan(decimal.Zero) {
			continue
		}
		items = append(items, lotInput{
			descricao:  descricao,
			quantidade: item.Quantidade,
			unidade:    optionalString(item.Unidade),
			validade:   item.Validade,
		})
	}
	if len(items) == 0 {
		return nil, ErrEmptyDonation
	}

	if payload.IdempotencyKey == uuid.Nil {
		payload.IdempotencyKey = uuid.New()
	} else {
		existing, err := s.donationRepo.GetByIdempotencyKey(ctx, payload.IdempotencyKey)
		if err == nil {
			log.Info().
				Uint("donation_id", existing.ID).
				Str("idempotency_key", payload.IdempotencyKey.String()).
				Msg("Donation already recorded for idempotency key")
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, "failed to check idempotency key")
		}
	}

	date, err := models.ParseDate(payload.Date)
	if err != nil {
		return nil, errors.Wrap(ErrEmptyDonation, err.Error())
	}

	donation := &models.Donation{
		DonorID:        payload.DonorID,
		Date:           date,
		Notes:          optionalString(payload.Notes),
		IdempotencyKey: payload.IdempotencyKey,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(donation).Error; err != nil {
			return errors.Wrap(err, "failed to create donation header")
		}

		for _, item := range items {
			validade, err := models.ParseDate(item.validade)
			if err != nil {
				return err
			}
			lot := models.Lot{
				DonationID: donation.ID,
				Descricao:  item.descricao,
				Quantidade: item.quantidade,
				Unidade:    item.unidade,
				Validade:   validade,
			}
			if err := tx.Create(&lot).Error; err != nil {
				return errors.Wrap(err, "failed to create lot")
			}
			donation.Lots = append(donation.Lots, lot)
		}

		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)
		s.metrics.RecordError("create_donation")
		return nil, errors.Wrap(err, "donation transaction failed")
	}

	s.metrics.RecordSuccess("create_donation")
	s.metrics.IncrementCounter(metrics.CounterDonationsCreated)

	log.Info().
		Uint("donation_id", donation.ID).
		Int("lots", len(donation.Lots)).
		Msg("Donation recorded")

	return donation, nil
}

// ProcessIntakeMessage handles one donation payload from the intake queue
func (s *DonationService) ProcessIntakeMessage(ctx context.Context, message *azservicebus.ReceivedMessage) error {
	payload, err := ExtractDonationPayload(message)
	if err != nil {
		return errors.Wrap(err, "failed to extract donation payload")
	}

	donation, err := s.CreateDonation(ctx, payload)
	if err != nil {
		if errors.Is(err, ErrEmptyDonation) {
			// Poison payloads are logged and dropped, redelivery cannot fix them
			log.Warn().Str("message_id", message.MessageID).Msg("Discarding intake message without usable items")
			return nil
		}
		return err
	}

	s.metrics.IncrementCounter(metrics.CounterDonationsFromQueue)
	log.Info().
		Uint("donation_id", donation.ID).
		Str("message_id", message.MessageID).
		Msg("Intake message processed")

	return nil
}

// ExtractDonationPayload decodes a donation payload from an intake message
func ExtractDonationPayload(message *azservicebus.ReceivedMessage) (*models.DonationPayload, error) {
	var payload models.DonationPayload
	if err := json.Unmarshal(message.Body, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal intake message")
	}

	return &payload, nil
}
