package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"example.com/foodbank/services/donations/internal/models"
)

// StockFilter narrows the aggregated stock view. Venc is either "expired"
// or an integer number of days; anything else is ignored, matching the
// permissive query handling of the stock endpoint.
type StockFilter struct {
	Descricao string
	Unidade   string
	Venc      string
}

// NullDate scans an optional date coming out of an aggregate expression.
// Drivers lose the column type on expressions like MIN(validade) and may
// hand back text instead of time, so it accepts both.
type NullDate struct {
	Time *time.Time
}

var nullDateLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05-07:00",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Scan implements sql.Scanner
func (d *NullDate) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		d.Time = nil
		return nil
	case time.Time:
		d.Time = &v
		return nil
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	}
	return errors.Errorf("cannot scan %T into NullDate", value)
}

func (d *NullDate) parse(s string) error {
	for _, layout := range nullDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = &t
			return nil
		}
	}
	return errors.Errorf("cannot parse %q as date", s)
}

// MarshalJSON renders the date part only, or null
func (d NullDate) MarshalJSON() ([]byte, error) {
	if d.Time == nil {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

// StockGroup is one (description, unit) aggregate of available lots
type StockGroup struct {
	Descricao         string          `json:"descricao"`
	Unidade           string          `json:"unidade"`
	QuantidadeTotal   decimal.Decimal `json:"quantidade_total"`
	ProximoVencimento NullDate        `json:"proximo_vencimento" gorm:"type:time"`
}

// InventoryRepository provides the read-only aggregated view of lots.
// It never mutates state and is safe to query concurrently with allocation.
type InventoryRepository struct {
	db *gorm.DB
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.Lot{}).
		Select("descricao, COALESCE(unidade, '') AS unidade, SUM(quantidade) AS quantidade_total, MIN(validade) AS proximo_vencimento").
		Where("quantidade > 0").
		Group("descricao, unidade")
}

// ListAvailable aggregates available lots per (description, unit), ordered
// by description. The description filter is a case-insensitive substring
// match; the expiry filter applies to the group's nearest expiry.
func (r *InventoryRepository) ListAvailable(ctx context.Context, filter StockFilter, today time.Time) ([]StockGroup, error) {
	q := r.baseQuery(ctx)

	if desc := strings.TrimSpace(filter.Descricao); desc != "" {
		q = q.Where("LOWER(descricao) LIKE ?", "%"+strings.ToLower(desc)+"%")
	}
	if unidade := strings.TrimSpace(filter.Unidade); unidade != "" {
		q = q.Where("unidade = ?", unidade)
	}

	day := today.Truncate(24 * time.Hour)
	switch venc := strings.TrimSpace(filter.Venc); {
	case venc == "expired":
		q = q.Having("MIN(validade) IS NOT NULL AND MIN(validade) < ?", day)
	case venc != "":
		if days, err := strconv.Atoi(venc); err == nil {
			q = q.Having("MIN(validade) IS NOT NULL AND MIN(validade) <= ?", day.AddDate(0, 0, days))
		}
	}

	var groups []StockGroup
	err := q.Order("descricao").Scan(&groups).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate available stock")
	}
	return groups, nil
}

// StockPosition is the same aggregation ordered nearest expiry first,
// undated groups last, description as tiebreak. Used by expiry-first
// report displays.
func (r *InventoryRepository) StockPosition(ctx context.Context) ([]StockGroup, error) {
	var groups []StockGroup
	err := r.baseQuery(ctx).
		Order("(MIN(validade) IS NULL), MIN(validade) ASC, descricao ASC").
		Scan(&groups).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to aggregate stock position")
	}
	return groups, nil
}
