package allocation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"example.com/foodbank/services/donations/internal/models"
)

func datePtr(t *testing.T, s string) *time.Time {
	t.Helper()
	d, err := time.Parse(models.DateLayout, s)
	require.NoError(t, err)
	return &d
}

func qty(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func lot(id uint, quantity string, validade *time.Time) models.Lot {
	return models.Lot{ID: id, Descricao: "Arroz", Quantidade: qty(quantity), Validade: validade}
}

func demand(quantity string) Demand {
	return Demand{Descricao: "Arroz", Quantidade: qty(quantity)}
}

func TestAllocateConsumesNearestExpiryFirst(t *testing.T) {
	lots := []models.Lot{
		lot(1, "5", datePtr(t, "2024-01-10")),
		lot(2, "5", datePtr(t, "2024-01-05")),
	}

	result, err := Allocate(lots, demand("3"))
	require.NoError(t, err)
	require.True(t, result.FullySatisfied())
	require.Len(t, result.Consumptions, 1)
	require.Equal(t, uint(2), result.Consumptions[0].LotID)
	require.True(t, result.Consumptions[0].Quantidade.Equal(qty("3")))
}

func TestAllocateUndatedLotsLast(t *testing.T) {
	lots := []models.Lot{
		lot(1, "10", nil),
		lot(2, "10", datePtr(t, "2024-02-01")),
	}

	result, err := Allocate(lots, demand("15"))
	require.NoError(t, err)
	require.True(t, result.FullySatisfied())
	require.Len(t, result.Consumptions, 2)
	require.Equal(t, uint(2), result.Consumptions[0].LotID)
	require.True(t, result.Consumptions[0].Quantidade.Equal(qty("10")))
	require.Equal(t, uint(1), result.Consumptions[1].LotID)
	require.True(t, result.Consumptions[1].Quantidade.Equal(qty("5")))
}

func TestAllocateExactBoundaryDrainsEveryLot(t *testing.T) {
	lots := []models.Lot{
		lot(1, "2.5", datePtr(t, "2024-01-01")),
		lot(2, "4", datePtr(t, "2024-03-01")),
		lot(3, "3.5", nil),
	}

	result, err := Allocate(lots, demand("10"))
	require.NoError(t, err)
	require.True(t, result.FullySatisfied())
	require.Len(t, result.Consumptions, 3)
	require.True(t, result.TotalAllocated().Equal(qty("10")))
	for i, c := range result.Consumptions {
		require.True(t, c.Quantidade.Equal(lots[i].Quantidade), "lot %d should be fully drained", lots[i].ID)
	}
}

func TestAllocateReportsShortfallWithPartialConsumptions(t *testing.T) {
	lots := []models.Lot{
		lot(1, "2", datePtr(t, "2024-01-01")),
	}

	result, err := Allocate(lots, demand("10"))
	require.NoError(t, err)
	require.False(t, result.FullySatisfied())
	require.True(t, result.Shortfall.Equal(qty("8")))
	require.Len(t, result.Consumptions, 1)
	require.True(t, result.Consumptions[0].Quantidade.Equal(qty("2")))
}

func TestAllocateSkipsExhaustedLots(t *testing.T) {
	lots := []models.Lot{
		lot(1, "0", datePtr(t, "2024-01-01")),
		lot(2, "5", datePtr(t, "2024-06-01")),
	}

	result, err := Allocate(lots, demand("5"))
	require.NoError(t, err)
	require.True(t, result.FullySatisfied())
	require.Len(t, result.Consumptions, 1)
	require.Equal(t, uint(2), result.Consumptions[0].LotID)
}

func TestAllocateSkipsUnitMismatchedLots(t *testing.T) {
	un := "un"
	kg := "kg"
	mismatched := lot(1, "10", datePtr(t, "2024-01-01"))
	mismatched.Unidade = &un
	matching := lot(2, "10", datePtr(t, "2024-06-01"))
	matching.Unidade = &kg
	unitless := lot(3, "10", nil)

	result, err := Allocate([]models.Lot{mismatched, matching, unitless}, Demand{
		Descricao:  "Arroz",
		Quantidade: qty("15"),
		Unidade:    "kg",
	})
	require.NoError(t, err)
	require.True(t, result.FullySatisfied())
	require.Len(t, result.Consumptions, 2)
	require.Equal(t, uint(2), result.Consumptions[0].LotID)
	require.Equal(t, uint(3), result.Consumptions[1].LotID)
}

func TestAllocateSnapshotsSourceExpiry(t *testing.T) {
	validade := datePtr(t, "2024-05-20")
	result, err := Allocate([]models.Lot{lot(7, "4", validade)}, demand("1"))
	require.NoError(t, err)
	require.NotNil(t, result.Consumptions[0].Validade)
	require.True(t, result.Consumptions[0].Validade.Equal(*validade))
}

func TestAllocateRejectsNonPositiveQuantity(t *testing.T) {
	_, err := Allocate(nil, Demand{Descricao: "Arroz"})
	require.Error(t, err)

	_, err = Allocate(nil, demand("-1"))
	require.Error(t, err)
}

func TestDemandValidation(t *testing.T) {
	cases := []struct {
		name   string
		demand Demand
		valid  bool
	}{
		{"ok", Demand{Descricao: "Arroz", Quantidade: qty("1")}, true},
		{"empty description", Demand{Descricao: "", Quantidade: qty("1")}, false},
		{"whitespace description", Demand{Descricao: "   ", Quantidade: qty("1")}, false},
		{"zero quantity", Demand{Descricao: "Arroz", Quantidade: decimal.Zero}, false},
		{"negative quantity", Demand{Descricao: "Arroz", Quantidade: qty("-2")}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.valid, tc.demand.Normalized().Valid())
		})
	}
}

func TestMatchesUnitIsPermissive(t *testing.T) {
	kg := "kg"
	un := "un"
	empty := ""

	require.True(t, MatchesUnit(models.Lot{Unidade: &kg}, ""))
	require.True(t, MatchesUnit(models.Lot{Unidade: nil}, "kg"))
	require.True(t, MatchesUnit(models.Lot{Unidade: &empty}, "kg"))
	require.True(t, MatchesUnit(models.Lot{Unidade: &kg}, "kg"))
	require.False(t, MatchesUnit(models.Lot{Unidade: &un}, "kg"))
}
