package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/allocation"
	"example.com/foodbank/services/donations/internal/messaging"
	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/repositories"
	"example.com/foodbank/services/donations/internal/search"
	"example.com/foodbank/services/donations/internal/tracing"
)

// DistributionService coordinates outgoing distributions. Each request runs
// as one all-or-nothing transaction: header insert, per-line allocation in
// caller order, consumption records and lot decrements. Any shortfall or
// storage failure rolls the whole thing back, so a distribution is never
// partially recorded.
type DistributionService struct {
	db            *gorm.DB
	lotRepo       *repositories.LotRepository
	distRepo      *repositories.DistributionRepository
	instRepo      *repositories.InstitutionRepository
	elasticClient *search.ElasticClient
	bus           *messaging.ServiceBus
	metrics       *metrics.Metrics
	tracer        tracing.Tracer
}

// NewDistributionService creates a new distribution service
func NewDistributionService(
	db *gorm.DB,
	elasticClient *search.ElasticClient,
	bus *messaging.ServiceBus,
	metricsCollector *metrics.Metrics,
	tracer tracing.Tracer,
) *DistributionService {
	return &DistributionService{
		db:            db,
		lotRepo:       repositories.NewLotRepository(db),
		distRepo:      repositories.NewDistributionRepository(db),
		instRepo:      repositories.NewInstitutionRepository(db),
		elasticClient: elasticClient,
		bus:           bus,
		metrics:       metricsCollector,
		tracer:        tracer,
	}
}

// CreateDistribution validates the demand lines, allocates stock for each
// one FEFO inside a single transaction and returns the committed
// distribution. Lines with an empty description or non-positive quantity
// are discarded before allocation.
func (s *DistributionService) CreateDistribution(ctx context.Context, payload *models.DistributionPayload) (*models.Distribution, error) {
	txn := s.tracer.StartTransaction("create-distribution")
	defer s.tracer.EndTransaction(txn)

	demands := make([]allocation.Demand, 0, len(payload.Items))
	for _, item := range payload.Items {
		demand := allocation.Demand{
			Descricao:  item.Descricao,
			Quantidade: item.Quantidade,
			Unidade:    item.Unidade,
		}.Normalized()
		if demand.Valid() {
			demands = append(demands, demand)
		}
	}
	if len(demands) == 0 {
		s.metrics.IncrementCounter(metrics.CounterDistributionsInvalid)
		return nil, ErrInvalidRequest
	}

	if payload.IdempotencyKey == uuid.Nil {
		payload.IdempotencyKey = uuid.New()
	} else {
		existing, err := s.distRepo.GetByIdempotencyKey(ctx, payload.IdempotencyKey)
		if err == nil {
			log.Info().
				Uint("distribution_id", existing.ID).
				Str("idempotency_key", payload.IdempotencyKey.String()).
				Msg("Distribution already committed for idempotency key")
			return existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, "failed to check idempotency key")
		}
	}

	date, err := models.ParseDate(payload.Date)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidRequest, err.Error())
	}

	distribution := &models.Distribution{
		InstitutionID:  payload.InstitutionID,
		Date:           date,
		Notes:          optionalString(payload.Notes),
		IdempotencyKey: payload.IdempotencyKey,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		span := s.tracer.StartSpan("insert-distribution-header", txn)
		err := tx.Create(distribution).Error
		span.End()
		if err != nil {
			return errors.Wrap(err, "failed to create distribution header")
		}

		for _, demand := range demands {
			allocSpan := s.tracer.StartSpan("allocate-demand-line", txn)
			err := s.allocateLine(tx, distribution, demand)
			allocSpan.End()
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		s.tracer.RecordError(txn, err)

		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.metrics.IncrementCounter(metrics.CounterDistributionsRejected)
			log.Info().
				Str("descricao", stockErr.Descricao).
				Str("faltam", stockErr.Faltam.String()).
				Msg("Distribution rejected, insufficient stock")
			return nil, err
		}

		s.metrics.RecordError("create_distribution")
		return nil, errors.Wrap(err, "distribution transaction failed")
	}

	s.metrics.RecordSuccess("create_distribution")
	s.metrics.IncrementCounter(metrics.CounterDistributionsCreated)
	s.metrics.IncrementCounterBy(metrics.CounterLotsConsumed, int64(len(distribution.Items)))

	log.Info().
		Uint("distribution_id", distribution.ID).
		Int("consumptions", len(distribution.Items)).
		Msg("Distribution committed")

	// Post-commit side effects are best-effort: the stock movement already
	// committed and must not be undone by indexing or messaging failures.
	s.indexCommitted(ctx, distribution)
	s.publishCommitted(ctx, distribution)

	return distribution, nil
}

// allocateLine runs the allocation engine for one demand line under the
// active transaction and persists its consumption records and decrements.
func (s *DistributionService) allocateLine(tx *gorm.DB, distribution *models.Distribution, demand allocation.Demand) error {
	lots, err := s.lotRepo.FindCandidatesForUpdate(tx, demand.Descricao, demand.Unidade)
	if err != nil {
		return err
	}

	result, err := allocation.Allocate(lots, demand)
	if err != nil {
		return err
	}
	if !result.FullySatisfied() {
		return &InsufficientStockError{Descricao: demand.Descricao, Faltam: result.Shortfall}
	}

	for _, consumption := range result.Consumptions {
		item := models.DistributionItem{
			DistributionID: distribution.ID,
			Descricao:      demand.Descricao,
			Quantidade:     consumption.Quantidade,
			Unidade:        optionalString(demand.Unidade),
			Validade:       consumption.Validade,
		}
		if err := tx.Create(&item).Error; err != nil {
			return errors.Wrap(err, "failed to create consumption record")
		}
		if err := s.lotRepo.ConsumeQuantity(tx, consumption.LotID, consumption.Quantidade); err != nil {
			return err
		}
		distribution.Items = append(distribution.Items, item)
	}

	return nil
}

// List returns all distributions with their consumption records
func (s *DistributionService) List(ctx context.Context) ([]models.Distribution, error) {
	return s.distRepo.ListWithItems(ctx)
}

// Get returns one distribution with its consumption records
func (s *DistributionService) Get(ctx context.Context, id uint) (*models.Distribution, error) {
	return s.distRepo.GetWithItems(ctx, id)
}

// ReindexDistributions indexes committed distributions that missed their
// post-commit indexing, as a fallback run by the worker.
func (s *DistributionService) ReindexDistributions(ctx context.Context) error {
	if s.elasticClient == nil {
		return nil
	}

	distributions, err := s.distRepo.GetUnindexed(ctx, 100)
	if err != nil {
		return errors.Wrap(err, "failed to get unindexed distributions")
	}
	if len(distributions) == 0 {
		return nil
	}

	log.Info().Msgf("Found %d unindexed distributions for reconciliation", len(distributions))

	for i := range distributions {
		s.indexCommitted(ctx, &distributions[i])
		if distributions[i].IsIndexed {
			s.metrics.IncrementCounter(metrics.CounterDistributionsReconciled)
		}
	}

	return nil
}

func (s *DistributionService) indexCommitted(ctx context.Context, distribution *models.Distribution) {
	if s.elasticClient == nil {
		return
	}

	institutionName := ""
	if distribution.InstitutionID != nil {
		institution, err := s.instRepo.GetByID(ctx, *distribution.InstitutionID)
		if err != nil {
			log.Warn().Err(err).Uint("distribution_id", distribution.ID).Msg("Failed to resolve institution for indexing")
		} else {
			institutionName = institution.Nome
		}
	}

	if err := s.elasticClient.IndexDistribution(ctx, distribution, institutionName); err != nil {
		log.Warn().Err(err).Uint("distribution_id", distribution.ID).Msg("Failed to index distribution, worker will retry")
		return
	}

	if err := s.distRepo.MarkAsIndexed(ctx, distribution.ID); err != nil {
		log.Warn().Err(err).Uint("distribution_id", distribution.ID).Msg("Failed to mark distribution as indexed")
		return
	}
	distribution.IsIndexed = true
}

func (s *DistributionService) publishCommitted(ctx context.Context, distribution *models.Distribution) {
	if s.bus == nil {
		return
	}

	err := s.bus.PublishEvent(ctx, "distribution.committed", distribution)
	if err != nil {
		log.Warn().Err(err).Uint("distribution_id", distribution.ID).Msg("Failed to publish distribution event")
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
