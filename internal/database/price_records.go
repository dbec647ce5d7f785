package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockdata/stock-data-service/internal/models"
)

// WriteBatch persists one symbol's records with insert-or-replace semantics
// keyed by (symbol, date). The whole batch runs in a single transaction;
// each record is wrapped in a savepoint so a bad row is logged and skipped
// without aborting the rows around it. When at least one row committed, the
// symbol's freshness marker is upserted in the same transaction. The return
// value is the number of rows actually written, which may be less than
// len(records).
//
// All records must share the given symbol; mixed input is a caller bug and
// is rejected before any write. An infrastructure failure (lost connection,
// failed commit) rolls back the entire batch and returns a *BatchError.
func (db *DB) WriteBatch(ctx context.Context, symbol string, records []*models.PriceRecord) (int, error) {
	if symbol == "" {
		return 0, fmt.Errorf("symbol is required")
	}
	if len(records) == 0 {
		return 0, fmt.Errorf("empty batch for %s", symbol)
	}
	for _, r := range records {
		if r.Symbol != symbol {
			return 0, fmt.Errorf("mixed-symbol batch: got %s, want %s", r.Symbol, symbol)
		}
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, &BatchError{Symbol: symbol, Err: fmt.Errorf("failed to begin transaction: %w", err)}
	}
	defer tx.Rollback()

	upsert := `
		INSERT INTO stock_data (symbol, date, open, high, low, close, volume, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			created_at = EXCLUDED.created_at
	`

	written := 0
	now := time.Now()
	for _, r := range records {
		// A failed statement poisons a Postgres transaction, so each row
		// gets its own savepoint to make skip-and-continue possible.
		if _, err := tx.ExecContext(ctx, "SAVEPOINT record_write"); err != nil {
			return written, &BatchError{Symbol: symbol, Err: fmt.Errorf("failed to create savepoint: %w", err)}
		}

		_, err := tx.ExecContext(ctx, upsert,
			r.Symbol, r.Date, r.Open, r.High, r.Low, r.Close, r.Volume, now,
		)
		if err != nil {
			slog.Warn("skipping record",
				"symbol", r.Symbol,
				"date", r.Date.Format("2006-01-02"),
				"error", err,
			)
			if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT record_write"); rbErr != nil {
				return written, &BatchError{Symbol: symbol, Err: fmt.Errorf("failed to roll back savepoint: %w", rbErr)}
			}
			continue
		}
		written++
	}

	if written > 0 {
		freshness := `
			INSERT INTO stock_metadata (symbol, last_updated)
			VALUES ($1, $2)
			ON CONFLICT (symbol) DO UPDATE SET
				last_updated = EXCLUDED.last_updated
		`
		if _, err := tx.ExecContext(ctx, freshness, symbol, now); err != nil {
			return 0, &BatchError{Symbol: symbol, Err: fmt.Errorf("failed to update freshness: %w", err)}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &BatchError{Symbol: symbol, Err: fmt.Errorf("failed to commit transaction: %w", err)}
	}
	return written, nil
}

// GetFreshness retrieves the freshness marker for a symbol.
func (db *DB) GetFreshness(ctx context.Context, symbol string) (*models.SymbolFreshness, error) {
	query := `SELECT symbol, last_updated FROM stock_metadata WHERE symbol = $1`

	var f models.SymbolFreshness
	err := db.conn.QueryRowContext(ctx, query, symbol).Scan(&f.Symbol, &f.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("freshness for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get freshness: %w", err)
	}
	return &f, nil
}
