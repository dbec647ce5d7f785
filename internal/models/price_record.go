package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord represents daily OHLCV price data for one symbol on one
// trading date. (symbol, date) is the natural key: re-ingesting the same
// date overwrites the price fields and refreshes CreatedAt.
type PriceRecord struct {
	ID        int             `json:"id"`
	Symbol    string          `json:"symbol"`
	Date      time.Time       `json:"date"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    int64           `json:"volume"`
	CreatedAt time.Time       `json:"created_at"`
}

// SymbolFreshness tracks the last successful ingestion touch per symbol.
// It is a monitoring marker, not part of query correctness.
type SymbolFreshness struct {
	Symbol      string    `json:"symbol"`
	LastUpdated time.Time `json:"last_updated"`
}

// SymbolStats summarizes the stored history for one symbol.
type SymbolStats struct {
	Symbol     string          `json:"symbol"`
	DataPoints int             `json:"data_points"`
	FirstDate  time.Time       `json:"first_date"`
	LastDate   time.Time       `json:"last_date"`
	AvgClose   decimal.Decimal `json:"avg_close"`
	MinPrice   decimal.Decimal `json:"min_price"`
	MaxPrice   decimal.Decimal `json:"max_price"`
	AvgVolume  int64           `json:"avg_volume"`
}
