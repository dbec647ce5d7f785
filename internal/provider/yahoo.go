package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stockdata/stock-data-service/internal/models"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher against the Yahoo Finance chart API.
type YahooFetcher struct {
	client  *http.Client
	baseURL string
}

// NewYahooFetcher creates a Yahoo Finance fetcher. An empty baseURL uses the
// public endpoint; tests point it at a local server.
func NewYahooFetcher(baseURL string, timeout time.Duration) *YahooFetcher {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooFetcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from the Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves daily bars for symbol within [startDate, endDate].
func (f *YahooFetcher) Fetch(ctx context.Context, symbol string, startDate, endDate time.Time) ([]*models.PriceRecord, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date %s after end date %s",
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}

	// period2 is exclusive in the chart API, so push it one day forward to
	// keep endDate inclusive.
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.baseURL, url.PathEscape(symbol), startDate.Unix(), endDate.AddDate(0, 0, 1).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &Error{Symbol: symbol, Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Symbol: symbol, Err: fmt.Errorf("yahoo fetch: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Symbol: symbol, Err: fmt.Errorf("yahoo read body: %w", err)}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoData
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Symbol: symbol, Err: fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))}
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &Error{Symbol: symbol, Err: fmt.Errorf("yahoo decode: %w", err)}
	}
	if chart.Chart.Error != nil {
		return nil, &Error{Symbol: symbol, Err: fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)}
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, ErrNoData
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	quote := result.Indicators.Quote[0]

	records := make([]*models.PriceRecord, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) ||
			i >= len(quote.Close) || i >= len(quote.Volume) {
			break
		}
		// Nil slots are dates the provider reports without prices
		// (halts, partial sessions); drop them rather than store zeros.
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil {
			continue
		}

		day := time.Unix(ts, 0).UTC()
		date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		if date.Before(startDate) || date.After(endDate) {
			continue
		}

		var volume int64
		if quote.Volume[i] != nil {
			volume = *quote.Volume[i]
		}

		records = append(records, &models.PriceRecord{
			Symbol: symbol,
			Date:   date,
			Open:   decimal.NewFromFloat(*quote.Open[i]).Round(2),
			High:   decimal.NewFromFloat(*quote.High[i]).Round(2),
			Low:    decimal.NewFromFloat(*quote.Low[i]).Round(2),
			Close:  decimal.NewFromFloat(*quote.Close[i]).Round(2),
			Volume: volume,
		})
	}

	if len(records) == 0 {
		return nil, ErrNoData
	}
	return records, nil
}
