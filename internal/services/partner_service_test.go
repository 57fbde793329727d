package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"example.com/foodbank/services/donations/config"
	"example.com/foodbank/services/donations/internal/cache"
	"example.com/foodbank/services/donations/internal/models"
)

func newPartnerServiceForTest(t *testing.T) *PartnerService {
	t.Helper()

	db := newTestDB(t)
	disabledCache, err := cache.NewRedisCache(config.RedisConfig{Enabled: false})
	require.NoError(t, err)

	return NewPartnerService(db, disabledCache)
}

func TestCreateDonorRequiresName(t *testing.T) {
	service := newPartnerServiceForTest(t)

	err := service.CreateDonor(context.Background(), &models.Donor{Nome: "   "})
	require.ErrorIs(t, err, ErrMissingName)

	donor := &models.Donor{Nome: "  Mercado Central  "}
	require.NoError(t, service.CreateDonor(context.Background(), donor))
	require.NotZero(t, donor.ID)
	require.Equal(t, "Mercado Central", donor.Nome)
}

func TestListDonorsNewestFirst(t *testing.T) {
	service := newPartnerServiceForTest(t)

	require.NoError(t, service.CreateDonor(context.Background(), &models.Donor{Nome: "Padaria do Bairro"}))
	require.NoError(t, service.CreateDonor(context.Background(), &models.Donor{Nome: "Mercado Central"}))

	donors, err := service.ListDonors(context.Background())
	require.NoError(t, err)
	require.Len(t, donors, 2)
	require.Equal(t, "Mercado Central", donors[0].Nome)
	require.Equal(t, "Padaria do Bairro", donors[1].Nome)
}

func TestCreateInstitutionRequiresName(t *testing.T) {
	service := newPartnerServiceForTest(t)

	err := service.CreateInstitution(context.Background(), &models.Institution{Nome: ""})
	require.ErrorIs(t, err, ErrMissingName)

	institution := &models.Institution{Nome: "Casa de Apoio"}
	require.NoError(t, service.CreateInstitution(context.Background(), institution))
	require.NotZero(t, institution.ID)
}

func TestListInstitutionsNewestFirst(t *testing.T) {
	service := newPartnerServiceForTest(t)

	require.NoError(t, service.CreateInstitution(context.Background(), &models.Institution{Nome: "Casa de Apoio"}))
	require.NoError(t, service.CreateInstitution(context.Background(), &models.Institution{Nome: "Abrigo Esperança"}))

	institutions, err := service.ListInstitutions(context.Background())
	require.NoError(t, err)
	require.Len(t, institutions, 2)
	require.Equal(t, "Abrigo Esperança", institutions[0].Nome)
}
