package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/repositories"
)

func TestListAvailableAggregatesPerDescriptionAndUnit(t *testing.T) {
	db := newTestDB(t)
	service := NewInventoryService(db, nil, metrics.NewMetrics())
	donation := seedDonation(t, db)

	seedLot(t, db, donation.ID, "Feijão", "4", "kg", "2026-05-01")
	seedLot(t, db, donation.ID, "Feijão", "6", "kg", "2026-03-01")
	seedLot(t, db, donation.ID, "Feijão", "0", "kg", "2026-01-01")
	seedLot(t, db, donation.ID, "Arroz", "5", "kg", "")

	groups, err := service.ListAvailable(context.Background(), repositories.StockFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 2)

	require.Equal(t, "Arroz", groups[0].Descricao)
	require.True(t, groups[0].QuantidadeTotal.Equal(decimal.NewFromInt(5)))
	require.Nil(t, groups[0].ProximoVencimento.Time)

	// Exhausted lots are excluded from both the total and the nearest expiry
	require.Equal(t, "Feijão", groups[1].Descricao)
	require.Equal(t, "kg", groups[1].Unidade)
	require.True(t, groups[1].QuantidadeTotal.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, groups[1].ProximoVencimento.Time)
	require.Equal(t, "2026-03-01", groups[1].ProximoVencimento.Time.Format("2006-01-02"))
}

func TestListAvailableFiltersByDescriptionSubstring(t *testing.T) {
	db := newTestDB(t)
	service := NewInventoryService(db, nil, metrics.NewMetrics())
	donation := seedDonation(t, db)

	seedLot(t, db, donation.ID, "Feijão Preto", "4", "kg", "")
	seedLot(t, db, donation.ID, "Arroz", "5", "kg", "")

	groups, err := service.ListAvailable(context.Background(), repositories.StockFilter{Descricao: "fei"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "Feijão Preto", groups[0].Descricao)
}

func TestListAvailableExpiredFilter(t *testing.T) {
	db := newTestDB(t)
	service := NewInventoryService(db, nil, metrics.NewMetrics())
	donation := seedDonation(t, db)

	seedLot(t, db, donation.ID, "Leite", "3", "l", "2020-01-01")
	seedLot(t, db, donation.ID, "Arroz", "5", "kg", "2099-01-01")

	groups, err := service.ListAvailable(context.Background(), repositories.StockFilter{Venc: "expired"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "Leite", groups[0].Descricao)
}

func TestStockPositionOrdersNearestExpiryFirst(t *testing.T) {
	db := newTestDB(t)
	service := NewInventoryService(db, nil, metrics.NewMetrics())
	donation := seedDonation(t, db)

	seedLot(t, db, donation.ID, "Feijão", "4", "kg", "2026-03-01")
	seedLot(t, db, donation.ID, "Arroz", "5", "kg", "")
	seedLot(t, db, donation.ID, "Leite", "2", "l", "2026-01-01")

	groups, err := service.StockPosition(context.Background())
	require.NoError(t, err)
	require.Len(t, groups, 3)
	require.Equal(t, "Leite", groups[0].Descricao)
	require.Equal(t, "Feijão", groups[1].Descricao)
	require.Equal(t, "Arroz", groups[2].Descricao)
}

func TestListLotsReturnsFEFOOrder(t *testing.T) {
	db := newTestDB(t)
	service := NewInventoryService(db, nil, metrics.NewMetrics())
	donation := seedDonation(t, db)

	later := seedLot(t, db, donation.ID, "Arroz", "4", "kg", "2026-01-10")
	sooner := seedLot(t, db, donation.ID, "Arroz", "3", "kg", "2026-01-05")
	undated := seedLot(t, db, donation.ID, "Arroz", "5", "kg", "")

	lots, err := service.ListLots(context.Background(), "Arroz")
	require.NoError(t, err)
	require.Len(t, lots, 3)
	require.Equal(t, sooner.ID, lots[0].ID)
	require.Equal(t, later.ID, lots[1].ID)
	require.Equal(t, undated.ID, lots[2].ID)
}

func TestScanExpiring(t *testing.T) {
	db := newTestDB(t)
	collector := metrics.NewMetrics()
	service := NewInventoryService(db, nil, collector)
	donation := seedDonation(t, db)

	soon := time.Now().AddDate(0, 0, 3).Format("2006-01-02")
	seedLot(t, db, donation.ID, "Leite", "3", "l", "2020-01-01")
	seedLot(t, db, donation.ID, "Feijão", "2", "kg", soon)
	seedLot(t, db, donation.ID, "Arroz", "5", "kg", "2099-01-01")

	require.NoError(t, service.ScanExpiring(context.Background(), 7))

	gauges := collector.GetGauges()
	require.EqualValues(t, 2, gauges["lots_expiring_soon"])
	require.EqualValues(t, 1, gauges["lots_expired"])
}
