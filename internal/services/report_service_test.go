package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/models"
)

// seedReportFixture records one donation of rice and beans and distributes
// part of the rice to an institution, all dated inside February 2026.
func seedReportFixture(t *testing.T, db *gorm.DB) {
	t.Helper()

	donor := &models.Donor{Nome: "Mercado Central"}
	require.NoError(t, db.Create(donor).Error)

	institution := &models.Institution{Nome: "Casa de Apoio"}
	require.NoError(t, db.Create(institution).Error)

	donationService := newDonationServiceForTest(t, db)
	_, err := donationService.CreateDonation(context.Background(), &models.DonationPayload{
		DonorID: &donor.ID,
		Date:    "2026-02-01",
		Items: []models.DonationItemPayload{
			{Descricao: "Arroz", Quantidade: decimal.NewFromInt(10), Unidade: "kg"},
			{Descricao: "Feijão", Quantidade: decimal.NewFromInt(6), Unidade: "kg"},
		},
	})
	require.NoError(t, err)

	distributionService := newDistributionServiceForTest(t, db)
	_, err = distributionService.CreateDistribution(context.Background(), &models.DistributionPayload{
		IdempotencyKey: uuid.New(),
		InstitutionID:  &institution.ID,
		Date:           "2026-02-10",
		Items: []models.DemandLinePayload{
			{Descricao: "Arroz", Quantidade: decimal.NewFromInt(4), Unidade: "kg"},
		},
	})
	require.NoError(t, err)
}

func TestEntriesReportGroupsByDonorAndItem(t *testing.T) {
	db := newTestDB(t)
	seedReportFixture(t, db)
	service := NewReportService(db)

	rows, err := service.Entries(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	totals := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		require.Equal(t, "Mercado Central", row.Parceiro)
		require.Equal(t, "2026-02-01", row.DataDoacao.Format(models.DateLayout))
		totals[row.Descricao] = row.TotalQuantidade
	}
	require.True(t, totals["Arroz"].Equal(decimal.NewFromInt(10)))
	require.True(t, totals["Feijão"].Equal(decimal.NewFromInt(6)))
}

func TestEntriesReportHonorsDateRange(t *testing.T) {
	db := newTestDB(t)
	seedReportFixture(t, db)
	service := NewReportService(db)

	rows, err := service.Entries(context.Background(), "2026-02-02", "")
	require.NoError(t, err)
	require.Empty(t, rows)

	rows, err = service.Entries(context.Background(), "2026-01-01", "2026-02-01")
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestOutflowsReportGroupsByInstitutionAndItem(t *testing.T) {
	db := newTestDB(t)
	seedReportFixture(t, db)
	service := NewReportService(db)

	rows, err := service.Outflows(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].Instituicao)
	require.Equal(t, "Casa de Apoio", *rows[0].Instituicao)
	require.Equal(t, "Arroz", rows[0].Descricao)
	require.True(t, rows[0].TotalQuantidade.Equal(decimal.NewFromInt(4)))
}

func TestByInstitutionReport(t *testing.T) {
	db := newTestDB(t)
	seedReportFixture(t, db)
	service := NewReportService(db)

	rows, err := service.ByInstitution(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Casa de Apoio", rows[0].Instituicao)
	require.True(t, rows[0].TotalQuantidade.Equal(decimal.NewFromInt(4)))
}

func TestDetailedReportListsConsumptions(t *testing.T) {
	db := newTestDB(t)
	seedReportFixture(t, db)
	service := NewReportService(db)

	rows, err := service.Detailed(context.Background(), "", "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Arroz", rows[0].Descricao)
	require.True(t, rows[0].Quantidade.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, rows[0].Instituicao)
	require.Equal(t, "Casa de Apoio", *rows[0].Instituicao)
}

func TestReportsRejectMalformedDates(t *testing.T) {
	db := newTestDB(t)
	service := NewReportService(db)

	_, err := service.Entries(context.Background(), "02/01/2026", "")
	require.Error(t, err)

	_, err = service.Outflows(context.Background(), "", "not-a-date")
	require.Error(t, err)
}
