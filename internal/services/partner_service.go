package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/cache"
	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/repositories"
)

const partnerListTTL = time.Minute

// PartnerService manages donor and institution registrations. List results
// are cached briefly in Redis; only partner reference data is cached, never
// lot state.
type PartnerService struct {
	donorRepo       *repositories.DonorRepository
	institutionRepo *repositories.InstitutionRepository
	cache           *cache.RedisCache
}

// NewPartnerService creates a new partner service
func NewPartnerService(db *gorm.DB, redisCache *cache.RedisCache) *PartnerService {
	return &PartnerService{
		donorRepo:       repositories.NewDonorRepository(db),
		institutionRepo: repositories.NewInstitutionRepository(db),
		cache:           redisCache,
	}
}

// CreateDonor registers a new donor
func (s *PartnerService) CreateDonor(ctx context.Context, donor *models.Donor) error {
	donor.Nome = strings.TrimSpace(donor.Nome)
	if donor.Nome == "" {
		return ErrMissingName
	}

	if err := s.donorRepo.Create(ctx, donor); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, cache.DonorListCacheKey()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate donor list cache")
	}

	return nil
}

// ListDonors returns all donors, newest first, served from cache when possible
func (s *PartnerService) ListDonors(ctx context.Context) ([]models.Donor, error) {
	var donors []models.Donor
	if err := s.cache.Get(ctx, cache.DonorListCacheKey(), &donors); err == nil {
		return donors, nil
	}

	donors, err := s.donorRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.DonorListCacheKey(), donors, partnerListTTL); err != nil {
		log.Debug().Err(err).Msg("Failed to cache donor list")
	}

	return donors, nil
}

// CreateInstitution registers a new partner institution
func (s *PartnerService) CreateInstitution(ctx context.Context, institution *models.Institution) error {
	institution.Nome = strings.TrimSpace(institution.Nome)
	if institution.Nome == "" {
		return ErrMissingName
	}

	if err := s.institutionRepo.Create(ctx, institution); err != nil {
		return err
	}

	if err := s.cache.Delete(ctx, cache.InstitutionListCacheKey()); err != nil {
		log.Warn().Err(err).Msg("Failed to invalidate institution list cache")
	}

	return nil
}

// ListInstitutions returns all institutions, newest first, cached briefly
func (s *PartnerService) ListInstitutions(ctx context.Context) ([]models.Institution, error) {
	var institutions []models.Institution
	if err := s.cache.Get(ctx, cache.InstitutionListCacheKey(), &institutions); err == nil {
		return institutions, nil
	}

	institutions, err := s.institutionRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cache.InstitutionListCacheKey(), institutions, partnerListTTL); err != nil {
		log.Debug().Err(err).Msg("Failed to cache institution list")
	}

	return institutions, nil
}
