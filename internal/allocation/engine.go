// Package allocation implements lot selection for outgoing distributions.
// Selection is FEFO (first-expired, first-out): lots closest to expiry are
// consumed first, undated lots last, so that spoilage is minimized.
package allocation

import (
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"example.com/foodbank/services/donations/internal/models"
)

// Demand is one requested (description, quantity) pair within a distribution
type Demand struct {
	Descricao  string
	Quantidade decimal.Decimal
	Unidade    string
}

// Normalized returns the demand with its description trimmed
func (d Demand) Normalized() Demand {
	d.Descricao = strings.TrimSpace(d.Descricao)
	return d
}

// Valid reports whether the demand can be allocated at all.
// Invalid demands are discarded by the caller before allocation.
func (d Demand) Valid() bool {
	return d.Descricao != "" && d.Quantidade.GreaterThan(decimal.Zero)
}

// Consumption records one lot draw proposed by the engine
type Consumption struct {
	LotID      uint
	Quantidade decimal.Decimal
	Validade   *time.Time
}

// Result is the outcome of allocating a single demand line. Shortfall is the
// unmet quantity after exhausting all candidate lots; zero means fully
// satisfied. The engine reports shortfall as data, it is the caller's
// decision whether partial results are applied or the whole request aborts.
type Result struct {
	Consumptions []Consumption
	Shortfall    decimal.Decimal
}

// FullySatisfied reports whether the demand was completely covered
func (r Result) FullySatisfied() bool {
	return !r.Shortfall.GreaterThan(decimal.Zero)
}

// TotalAllocated returns the summed quantity across all consumptions
func (r Result) TotalAllocated() decimal.Decimal {
	total := decimal.Zero
	for _, c := range r.Consumptions {
		total = total.Add(c.Quantidade)
	}
	return total
}

// MatchesUnit implements the permissive unit predicate: an empty filter, an
// empty lot unit, or an exact match all qualify. An unset unit on either
// side never excludes a candidate.
func MatchesUnit(lot models.Lot, unidade string) bool {
	if unidade == "" {
		return true
	}
	if lot.Unidade == nil || *lot.Unidade == "" {
		return true
	}
	return *lot.Unidade == unidade
}

// SortFEFO orders lots by expiry ascending with undated lots last,
// breaking ties by id so the order is stable across runs.
func SortFEFO(lots []models.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		vi, vj := lots[i].Validade, lots[j].Validade
		if vi != nil && vj != nil {
			if !vi.Equal(*vj) {
				return vi.Before(*vj)
			}
			return lots[i].ID < lots[j].ID
		}
		if vi != nil {
			return true
		}
		if vj != nil {
			return false
		}
		return lots[i].ID < lots[j].ID
	})
}

// Allocate greedily consumes candidate lots in FEFO order until the
// demanded quantity is satisfied or the candidates are exhausted. Exhausted
// and unit-mismatched lots are filtered out and the candidates re-sorted, so
// the result does not depend on how the caller loaded them. The input slice
// is not mutated; callers apply the proposed decrements inside their own
// transaction scope.
func Allocate(lots []models.Lot, demand Demand) (Result, error) {
	if !demand.Quantidade.GreaterThan(decimal.Zero) {
		return Result{}, errors.New("allocation quantity must be positive")
	}

	candidates := make([]models.Lot, 0, len(lots))
	for _, lot := range lots {
		if lot.HasStock() && MatchesUnit(lot, demand.Unidade) {
			candidates = append(candidates, lot)
		}
	}
	SortFEFO(candidates)

	result := Result{Consumptions: make([]Consumption, 0, len(candidates))}
	remaining := demand.Quantidade

	for _, lot := range candidates {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		take := decimal.Min(lot.Quantidade, remaining)
		result.Consumptions = append(result.Consumptions, Consumption{
			LotID:      lot.ID,
			Quantidade: take,
			Validade:   lot.Validade,
		})
		remaining = remaining.Sub(take)
	}

	result.Shortfall = remaining
	return result, nil
}
