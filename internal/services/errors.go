package services

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidRequest means no usable demand lines survived validation
var ErrInvalidRequest = errors.New("no usable demand lines in request")

// ErrEmptyDonation means a donation arrived without any usable item
var ErrEmptyDonation = errors.New("donation must contain at least one item")

// ErrMissingName means a partner registration arrived without a name
var ErrMissingName = errors.New("nome is required")

// InsufficientStockError reports the first demand line that could not be
// fully covered. The whole distribution is rolled back when it is raised;
// nothing is committed.
type InsufficientStockError struct {
	Descricao string
	Faltam    decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q, short by %s", e.Descricao, e.Faltam)
}
