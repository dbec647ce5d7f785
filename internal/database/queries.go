package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/stockdata/stock-data-service/internal/models"
)

const recordColumns = "id, symbol, date, open, high, low, close, volume, created_at"

func scanRecord(row interface{ Scan(...any) error }) (*models.PriceRecord, error) {
	var r models.PriceRecord
	err := row.Scan(&r.ID, &r.Symbol, &r.Date, &r.Open, &r.High, &r.Low, &r.Close, &r.Volume, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListPage retrieves one page of records. With a symbol filter the page is
// that symbol's records newest first; without it, newest first across all
// symbols with symbol ascending as tie-break. Pages are 1-indexed; a page
// past the end is an empty slice, not an error.
func (db *DB) ListPage(ctx context.Context, symbol string, page, pageSize int) ([]*models.PriceRecord, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("invalid page %d or page size %d", page, pageSize)
	}
	offset := (page - 1) * pageSize

	var rows *sql.Rows
	var err error
	if symbol != "" {
		query := `
			SELECT ` + recordColumns + `
			FROM stock_data
			WHERE symbol = $1
			ORDER BY date DESC
			LIMIT $2 OFFSET $3
		`
		rows, err = db.conn.QueryContext(ctx, query, symbol, pageSize, offset)
	} else {
		query := `
			SELECT ` + recordColumns + `
			FROM stock_data
			ORDER BY date DESC, symbol
			LIMIT $1 OFFSET $2
		`
		rows, err = db.conn.QueryContext(ctx, query, pageSize, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list price records: %w", err)
	}
	defer rows.Close()

	records := []*models.PriceRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price records: %w", err)
	}
	return records, nil
}

// Latest retrieves the newest record for a symbol, or ErrNotFound when the
// symbol has no stored records.
func (db *DB) Latest(ctx context.Context, symbol string) (*models.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM stock_data
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT 1
	`
	r, err := scanRecord(db.conn.QueryRowContext(ctx, query, symbol))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price data for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price record: %w", err)
	}
	return r, nil
}

// Range retrieves a symbol's records ascending by date. Both bounds are
// inclusive and optional; a nil bound leaves that side open. No matching
// rows yields an empty slice.
func (db *DB) Range(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]*models.PriceRecord, error) {
	query := `
		SELECT ` + recordColumns + `
		FROM stock_data
		WHERE symbol = $1
	`
	args := []any{symbol}

	if startDate != nil {
		args = append(args, *startDate)
		query += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if endDate != nil {
		args = append(args, *endDate)
		query += fmt.Sprintf(" AND date <= $%d", len(args))
	}
	query += " ORDER BY date ASC"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get price range: %w", err)
	}
	defer rows.Close()

	records := []*models.PriceRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price records: %w", err)
	}
	return records, nil
}

// Symbols retrieves the distinct symbols present in the store, ascending.
func (db *DB) Symbols(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT symbol FROM stock_data ORDER BY symbol`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	symbols := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbols: %w", err)
	}
	return symbols, nil
}

// Stats summarizes the stored history for a symbol, or ErrNotFound when the
// symbol has no stored records.
func (db *DB) Stats(ctx context.Context, symbol string) (*models.SymbolStats, error) {
	query := `
		SELECT symbol,
		       COUNT(*),
		       MIN(date),
		       MAX(date),
		       ROUND(AVG(close), 2),
		       MIN(low),
		       MAX(high),
		       AVG(volume)::bigint
		FROM stock_data
		WHERE symbol = $1
		GROUP BY symbol
	`
	var s models.SymbolStats
	err := db.conn.QueryRowContext(ctx, query, symbol).Scan(
		&s.Symbol, &s.DataPoints, &s.FirstDate, &s.LastDate,
		&s.AvgClose, &s.MinPrice, &s.MaxPrice, &s.AvgVolume,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no price data for %s: %w", symbol, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get symbol stats: %w", err)
	}
	return &s, nil
}
