package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"example.com/foodbank/services/donations/internal/models"
)

// ErrStaleLot is returned when a conditional decrement matched no row,
// meaning another transaction drained the lot between read and write.
var ErrStaleLot = errors.New("lot quantity changed concurrently")

// DonorRepository provides access to donor data
type DonorRepository struct {
	db *gorm.DB
}

// NewDonorRepository creates a new donor repository
func NewDonorRepository(db *gorm.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// Create creates a new donor
func (r *DonorRepository) Create(ctx context.Context, donor *models.Donor) error {
	return r.db.WithContext(ctx).Create(donor).Error
}

// List returns donors, newest first
func (r *DonorRepository) List(ctx context.Context) ([]models.Donor, error) {
	var donors []models.Donor
	err := r.db.WithContext(ctx).Order("id DESC").Find(&donors).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list donors")
	}
	return donors, nil
}

// InstitutionRepository provides access to institution data
type InstitutionRepository struct {
	db *gorm.DB
}

// NewInstitutionRepository creates a new institution repository
func NewInstitutionRepository(db *gorm.DB) *InstitutionRepository {
	return &InstitutionRepository{db: db}
}

// Create creates a new institution
func (r *InstitutionRepository) Create(ctx context.Context, institution *models.Institution) error {
	return r.db.WithContext(ctx).Create(institution).Error
}

// List returns institutions, newest first
func (r *InstitutionRepository) List(ctx context.Context) ([]models.Institution, error) {
	var institutions []models.Institution
	err := r.db.WithContext(ctx).Order("id DESC").Find(&institutions).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list institutions")
	}
	return institutions, nil
}

// GetByID gets an institution by ID
func (r *InstitutionRepository) GetByID(ctx context.Context, id uint) (*models.Institution, error) {
	var institution models.Institution
	err := r.db.WithContext(ctx).First(&institution, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get institution by ID")
	}
	return &institution, nil
}

// DonationRepository provides access to donation receipts
type DonationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a new donation repository
func NewDonationRepository(db *gorm.DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// GetByIdempotencyKey finds a previously recorded donation for the key
func (r *DonationRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.WithContext(ctx).Preload("Lots").Where("idempotency_key = ?", key).First(&donation).Error
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// LotRepository provides access to inventory lots
type LotRepository struct {
	db *gorm.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

// FindCandidatesForUpdate loads the candidate lots for one demand line in
// FEFO order, locking the rows for the duration of the transaction so that
// concurrent distributions cannot double-spend the same lot. The unit
// predicate is permissive: an unset unit on the lot or on the request never
// excludes a candidate.
func (r *LotRepository) FindCandidatesForUpdate(tx *gorm.DB, descricao, unidade string) ([]models.Lot, error) {
	q := tx.Where("descricao = ? AND quantidade > 0", descricao)
	if unidade != "" {
		q = q.Where("(unidade = ? OR unidade IS NULL OR unidade = '')", unidade)
	}
	if tx.Dialector.Name() == "postgres" {
		// SQLite serializes writers and has no FOR UPDATE
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var lots []models.Lot
	err := q.Order("(validade IS NULL), validade ASC, id ASC").Find(&lots).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load candidate lots")
	}
	return lots, nil
}

// ConsumeQuantity applies one proposed decrement as a conditional update.
// The quantity guard makes the read-then-decrement effectively serialized
// per lot even without row locks; zero rows affected means the snapshot the
// allocation was computed from is stale and the transaction must abort.
func (r *LotRepository) ConsumeQuantity(tx *gorm.DB, lotID uint, take decimal.Decimal) error {
	result := tx.Model(&models.Lot{}).
		Where("id = ? AND quantidade >= ?", lotID, take).
		Update("quantidade", gorm.Expr("quantidade - ?", take))
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to decrement lot")
	}
	if result.RowsAffected == 0 {
		return ErrStaleLot
	}
	return nil
}

// ListByDescription returns raw lots for one description in FEFO order,
// used by the UI to preview stock before submitting a distribution.
func (r *LotRepository) ListByDescription(ctx context.Context, descricao string) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("descricao = ?", descricao).
		Order("(validade IS NULL), validade ASC, id ASC").
		Find(&lots).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list lots by description")
	}
	return lots, nil
}

// SumRemaining returns the total remaining quantity across all lots
func (r *LotRepository) SumRemaining(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Select("SUM(quantidade)").
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "failed to sum remaining stock")
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// ExpiringWithin returns lots with stock whose expiry falls on or before the cutoff
func (r *LotRepository) ExpiringWithin(ctx context.Context, cutoff time.Time) ([]models.Lot, error) {
	var lots []models.Lot
	err := r.db.WithContext(ctx).
		Where("quantidade > 0 AND validade IS NOT NULL AND validade <= ?", cutoff).
		Order("validade ASC").
		Find(&lots).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to load expiring lots")
	}
	return lots, nil
}

// DistributionRepository provides access to distribution data
type DistributionRepository struct {
	db *gorm.DB
}

// NewDistributionRepository creates a new distribution repository
func NewDistributionRepository(db *gorm.DB) *DistributionRepository {
	return &DistributionRepository{db: db}
}

// GetByIdempotencyKey finds a previously committed distribution for the key
func (r *DistributionRepository) GetByIdempotencyKey(ctx context.Context, key uuid.UUID) (*models.Distribution, error) {
	var distribution models.Distribution
	err := r.db.WithContext(ctx).Preload("Items").Where("idempotency_key = ?", key).First(&distribution).Error
	if err != nil {
		return nil, err
	}
	return &distribution, nil
}

// GetWithItems loads one distribution with its consumption records
func (r *DistributionRepository) GetWithItems(ctx context.Context, id uint) (*models.Distribution, error) {
	var distribution models.Distribution
	err := r.db.WithContext(ctx).Preload("Items").First(&distribution, id).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get distribution")
	}
	return &distribution, nil
}

// ListWithItems returns all distributions with items, newest first
func (r *DistributionRepository) ListWithItems(ctx context.Context) ([]models.Distribution, error) {
	var distributions []models.Distribution
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("data_saida DESC, id DESC").
		Find(&distributions).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list distributions")
	}
	return distributions, nil
}

// GetUnindexed returns committed distributions not yet indexed for search
func (r *DistributionRepository) GetUnindexed(ctx context.Context, limit int) ([]models.Distribution, error) {
	var distributions []models.Distribution
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("is_indexed = ?", false).
		Limit(limit).
		Find(&distributions).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to get unindexed distributions")
	}
	return distributions, nil
}

// MarkAsIndexed marks a distribution as indexed
func (r *DistributionRepository) MarkAsIndexed(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Distribution{}).
		Where("id = ?", id).
		Update("is_indexed", true)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to mark distribution as indexed")
	}
	if result.RowsAffected == 0 {
		return errors.New("no distribution updated")
	}
	return nil
}
