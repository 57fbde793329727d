package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"example.com/foodbank/services/donations/config"
	"example.com/foodbank/services/donations/internal/metrics"
	"example.com/foodbank/services/donations/internal/models"
	"example.com/foodbank/services/donations/internal/tracing"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// An in-memory SQLite database lives on a single connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, models.SetupModels(db))
	return db
}

func newNoopTracer(t *testing.T) tracing.Tracer {
	t.Helper()

	tracer, err := tracing.NewTracer(config.TracingConfig{})
	require.NoError(t, err)
	return tracer
}

func newDistributionServiceForTest(t *testing.T, db *gorm.DB) *DistributionService {
	t.Helper()
	return NewDistributionService(db, nil, nil, metrics.NewMetrics(), newNoopTracer(t))
}

func newDonationServiceForTest(t *testing.T, db *gorm.DB) *DonationService {
	t.Helper()
	return NewDonationService(db, metrics.NewMetrics(), newNoopTracer(t))
}

func seedDonation(t *testing.T, db *gorm.DB) *models.Donation {
	t.Helper()

	donation := &models.Donation{IdempotencyKey: uuid.New()}
	require.NoError(t, db.Create(donation).Error)
	return donation
}

// seedLot creates one lot; unidade "" means unset, validade "" means undated
func seedLot(t *testing.T, db *gorm.DB, donationID uint, descricao, quantidade, unidade, validade string) *models.Lot {
	t.Helper()

	lot := &models.Lot{
		DonationID: donationID,
		Descricao:  descricao,
		Quantidade: decimal.RequireFromString(quantidade),
	}
	if unidade != "" {
		lot.Unidade = &unidade
	}
	parsed, err := models.ParseDate(validade)
	require.NoError(t, err)
	lot.Validade = parsed

	require.NoError(t, db.Create(lot).Error)
	return lot
}

func lotQuantity(t *testing.T, db *gorm.DB, id uint) decimal.Decimal {
	t.Helper()

	var lot models.Lot
	require.NoError(t, db.First(&lot, id).Error)
	return lot.Quantidade
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
