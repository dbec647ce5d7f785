package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockdata/stock-data-service/internal/models"
	"github.com/stockdata/stock-data-service/internal/provider"
)

// BatchWriter persists one symbol's records and reports how many committed.
type BatchWriter interface {
	Ping(ctx context.Context) error
	WriteBatch(ctx context.Context, symbol string, records []*models.PriceRecord) (int, error)
}

// RunPublisher announces completed ingestion runs.
type RunPublisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
}

// Coordinator drives one ingestion run: fetch each symbol in order, write
// its batch, and aggregate the outcome. One symbol's failure never stops
// the symbols after it.
type Coordinator struct {
	fetcher   provider.Fetcher
	writer    BatchWriter
	publisher RunPublisher // optional
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator. The publisher may be nil.
func NewCoordinator(fetcher provider.Fetcher, writer BatchWriter, publisher RunPublisher, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		fetcher:   fetcher,
		writer:    writer,
		publisher: publisher,
		logger:    logger,
	}
}

// Run ingests the given window for each symbol in order and returns a
// summary of every symbol's outcome. It returns an error only for
// precondition violations or when the storage backend is unreachable before
// any symbol is processed; per-symbol fetch and write failures are recorded
// in the summary and the run continues.
func (c *Coordinator) Run(ctx context.Context, symbols []string, startDate, endDate time.Time) (*models.RunSummary, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("no symbols to ingest")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date %s after end date %s",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}
	seen := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s == "" {
			return nil, fmt.Errorf("empty symbol in list")
		}
		if _, dup := seen[s]; dup {
			return nil, fmt.Errorf("duplicate symbol %s", s)
		}
		seen[s] = struct{}{}
	}

	if err := c.writer.Ping(ctx); err != nil {
		return nil, fmt.Errorf("storage unavailable: %w", err)
	}

	summary := &models.RunSummary{
		StartDate: startDate,
		EndDate:   endDate,
		Outcomes:  make([]models.SymbolOutcome, 0, len(symbols)),
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			// Cancelled mid-run: already-committed batches stay, the
			// rest of the symbol list is abandoned.
			return summary, err
		}
		summary.Outcomes = append(summary.Outcomes, c.processSymbol(ctx, symbol, startDate, endDate))
		summary.TotalWritten += summary.Outcomes[len(summary.Outcomes)-1].Written
	}

	c.logger.Info("ingestion run completed",
		"symbols", len(symbols),
		"total_written", summary.TotalWritten,
	)

	if c.publisher != nil {
		if err := c.publisher.PublishRunCompleted(ctx, summary); err != nil {
			c.logger.Warn("failed to publish run event", "error", err)
		}
	}
	return summary, nil
}

func (c *Coordinator) processSymbol(ctx context.Context, symbol string, startDate, endDate time.Time) models.SymbolOutcome {
	records, err := c.fetcher.Fetch(ctx, symbol, startDate, endDate)
	if errors.Is(err, provider.ErrNoData) {
		c.logger.Info("no data for symbol", "symbol", symbol)
		return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeNoData}
	}
	if err != nil {
		c.logger.Error("fetch failed", "symbol", symbol, "error", err)
		return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeFetchFailed, Error: err.Error()}
	}

	written, err := c.writer.WriteBatch(ctx, symbol, records)
	if err != nil {
		c.logger.Error("batch write failed", "symbol", symbol, "error", err)
		return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeWriteFailed, Error: err.Error()}
	}

	c.logger.Info("symbol ingested", "symbol", symbol, "fetched", len(records), "written", written)
	return models.SymbolOutcome{Symbol: symbol, Status: models.OutcomeWritten, Written: written}
}
