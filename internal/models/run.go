package models

import "time"

// Outcome statuses recorded per symbol in a run summary.
const (
	OutcomeWritten     = "written"
	OutcomeNoData      = "no_data"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeWriteFailed = "write_failed"
)

// SymbolOutcome records what happened to one symbol during an ingestion run.
type SymbolOutcome struct {
	Symbol  string `json:"symbol"`
	Status  string `json:"status"`
	Written int    `json:"written"`
	Error   string `json:"error,omitempty"`
}

// RunSummary aggregates per-symbol outcomes for one ingestion run.
type RunSummary struct {
	StartDate    time.Time       `json:"start_date"`
	EndDate      time.Time       `json:"end_date"`
	TotalWritten int             `json:"total_written"`
	Outcomes     []SymbolOutcome `json:"outcomes"`
}

// RunEvent is the Kafka event published after an ingestion run completes.
type RunEvent struct {
	EventType string      `json:"event_type"`
	Summary   *RunSummary `json:"summary"`
	Timestamp time.Time   `json:"timestamp"`
}

// IngestRequest is the Kafka message that triggers an on-demand ingestion
// run. Empty Symbols means "use the configured symbol set"; zero dates mean
// "use the default window".
type IngestRequest struct {
	Symbols   []string  `json:"symbols,omitempty"`
	StartDate time.Time `json:"start_date,omitempty"`
	EndDate   time.Time `json:"end_date,omitempty"`
}
