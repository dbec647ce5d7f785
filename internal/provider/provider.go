package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stockdata/stock-data-service/internal/models"
)

// ErrNoData signals the provider has no records for the requested range.
// A closed market or an unlisted date range is not a failure.
var ErrNoData = errors.New("no data for range")

// Error is a typed fetch failure carrying the symbol it occurred for, so the
// coordinator can log it and move on to the next symbol.
type Error struct {
	Symbol string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("fetch failed for %s: %v", e.Symbol, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fetcher retrieves daily price records for one symbol over a date range.
// Implementations return ErrNoData when the provider legitimately has
// nothing in range, and a *Error for transport or parse failures.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string, startDate, endDate time.Time) ([]*models.PriceRecord, error)
}
