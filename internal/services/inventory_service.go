package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/messaging"
	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/repositories"
)

// InventoryService is the read-only view over lots. It never decrements
// stock and is safe to call concurrently with running allocations.
type InventoryService struct {
	inventoryRepo *repositories.InventoryRepository
	lotRepo       *repositories.LotRepository
	bus           *messaging.ServiceBus
	metrics       *metrics.Metrics
}

// NewInventoryService creates a new inventory service
func NewInventoryService(db *gorm.DB, bus *messaging.ServiceBus, metricsCollector *metrics.Metrics) *InventoryService {
	return &InventoryService{
		inventoryRepo: repositories.NewInventoryRepository(db),
		lotRepo:       repositories.NewLotRepository(db),
		bus:           bus,
		metrics:       metricsCollector,
	}
}

// ListAvailable returns the aggregated stock view ordered by description
func (s *InventoryService) ListAvailable(ctx context.Context, filter repositories.StockFilter) ([]repositories.StockGroup, error) {
	return s.inventoryRepo.ListAvailable(ctx, filter, time.Now())
}

// StockPosition returns the aggregated stock view ordered nearest expiry first
func (s *InventoryService) StockPosition(ctx context.Context) ([]repositories.StockGroup, error) {
	return s.inventoryRepo.StockPosition(ctx)
}

// ListLots returns the raw lots for one description in FEFO order
func (s *InventoryService) ListLots(ctx context.Context, descricao string) ([]models.Lot, error) {
	return s.lotRepo.ListByDescription(ctx, descricao)
}

// ExpiringLotAlert is published for each scan that finds lots near expiry
type ExpiringLotAlert struct {
	Days int          `json:"days"`
	Lots []models.Lot `json:"lots"`
}

// ScanExpiring looks for lots with stock expiring within the given number
// of days, publishes an alert and updates the expiring-lot gauge. Run
// periodically by the worker.
func (s *InventoryService) ScanExpiring(ctx context.Context, days int) error {
	cutoff := time.Now().Truncate(24 * time.Hour).AddDate(0, 0, days)

	lots, err := s.lotRepo.ExpiringWithin(ctx, cutoff)
	if err != nil {
		return errors.Wrap(err, "expiry scan failed")
	}

	today := time.Now()
	expired := 0
	for i := range lots {
		if lots[i].IsExpired(today) {
			expired++
		}
	}

	s.metrics.SetGauge("lots_expiring_soon", int64(len(lots)))
	s.metrics.SetGauge("lots_expired", int64(expired))
	if len(lots) == 0 {
		return nil
	}

	s.metrics.IncrementCounter(metrics.CounterExpiringLotAlerts)
	log.Warn().
		Int("lots", len(lots)).
		Int("days", days).
		Msg("Lots close to expiry, prioritize them in the next distributions")

	if s.bus != nil {
		alert := ExpiringLotAlert{Days: days, Lots: lots}
		if err := s.bus.PublishEvent(ctx, "stock.expiring", alert); err != nil {
			log.Warn().Err(err).Msg("Failed to publish expiring stock alert")
		}
	}

	return nil
}
