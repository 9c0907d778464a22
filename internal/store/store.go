// Package store persists what the dashboard chooses to keep locally: a
// journal of fetch outcomes for diagnostics, and exported history series.
// Neither is read back by the dashboard itself.
package store

import (
	"context"
	"time"

	"marketview/pkg/marketview"
)

// Fetch outcomes recorded in the journal.
const (
	OutcomeReady     = "ready"
	OutcomeError     = "error"
	OutcomeDiscarded = "discarded"
)

// FetchRecord describes how one view-model fetch ended.
type FetchRecord struct {
	Time     time.Time
	View     string // chart or insight
	Symbol   string
	Outcome  string
	Kind     string // network, server or parse; empty unless Outcome is error
	Status   int    // HTTP status for server errors
	Duration time.Duration
	Detail   string
}

// FetchJournal records fetch outcomes.
type FetchJournal interface {
	// Record appends one outcome.
	Record(ctx context.Context, rec FetchRecord) error

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]FetchRecord, error)

	Close() error
}

// HistoryStore persists and retrieves historical series.
type HistoryStore interface {
	// WriteHistory merges points into the stored series for symbol.
	WriteHistory(ctx context.Context, symbol string, points []marketview.HistoricalPoint) error

	// ReadHistory returns the stored series for symbol in date order.
	ReadHistory(ctx context.Context, symbol string) ([]marketview.HistoricalPoint, error)
}

// NoopJournal discards every record. It is used when no journal path is
// configured.
type NoopJournal struct{}

func (NoopJournal) Record(context.Context, FetchRecord) error { return nil }
func (NoopJournal) Recent(context.Context, int) ([]FetchRecord, error) {
	return nil, nil
}
func (NoopJournal) Close() error { return nil }
