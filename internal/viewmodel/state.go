// Package viewmodel holds the two dashboard panels' data as small state
// machines. Each panel fetches its data for a symbol, exposes one of Idle,
// Loading, Error or Ready, and tells subscribers when that changes. Results
// of fetches that were superseded by a newer Load are dropped.
package viewmodel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"marketview/internal/store"
	"marketview/pkg/marketview"
)

// ErrorMessage is the only error text shown to the user. The cause is logged.
const ErrorMessage = "error loading data"

// Status is the phase of a panel.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusError:
		return "error"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

// State is a snapshot of a panel. Data is set when Status is StatusReady,
// and also while a reload of the same symbol is Loading, in which case it
// holds the previous result.
type State[T any] struct {
	Status  Status
	Symbol  string
	Message string
	Data    *T
}

// Journal receives the outcome of every fetch that ran to completion.
type Journal interface {
	Record(ctx context.Context, rec store.FetchRecord) error
}

// Option configures a view-model.
type Option func(*settings)

type settings struct {
	log     *slog.Logger
	journal Journal
}

// WithLogger sets the logger used for fetch failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithJournal records fetch outcomes to j.
func WithJournal(j Journal) Option {
	return func(s *settings) { s.journal = j }
}

func newSettings(opts []Option) settings {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.journal == nil {
		s.journal = store.NoopJournal{}
	}
	return s
}

// machine is the state machine shared by both panels. Only the fetch started
// by the most recent Load may write state; gen identifies it.
type machine[T any] struct {
	view    string
	fetch   func(ctx context.Context, symbol string) (*T, error)
	log     *slog.Logger
	journal Journal

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State[T]

	subsMu    sync.Mutex
	subs      map[int]chan struct{}
	nextSubID int

	wg sync.WaitGroup
}

func newMachine[T any](view string, fetch func(context.Context, string) (*T, error), s settings) *machine[T] {
	return &machine[T]{
		view:    view,
		fetch:   fetch,
		log:     s.log.With("view", view),
		journal: s.journal,
		subs:    make(map[int]chan struct{}),
	}
}

// Load shows symbol. An empty symbol returns the panel to Idle without any
// request. Otherwise the panel enters Loading and fetches in the background;
// any fetch still running for an earlier Load is cancelled and its result
// ignored.
func (m *machine[T]) Load(symbol string) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	if symbol == "" {
		m.state = State[T]{Status: StatusIdle}
		m.mu.Unlock()
		m.notify()
		return
	}

	var prev *T
	if m.state.Symbol == symbol {
		prev = m.state.Data
	}
	m.state = State[T]{Status: StatusLoading, Symbol: symbol, Data: prev}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.wg.Add(1)
	m.mu.Unlock()

	m.notify()
	go m.run(ctx, cancel, gen, symbol)
}

func (m *machine[T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, symbol string) {
	defer m.wg.Done()
	defer cancel()

	start := time.Now()
	data, err := m.fetch(ctx, symbol)
	rec := store.FetchRecord{
		Time:     start,
		View:     m.view,
		Symbol:   symbol,
		Duration: time.Since(start),
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		m.log.Debug("discarding stale result", "symbol", symbol)
		rec.Outcome = store.OutcomeDiscarded
		m.record(rec)
		return
	}
	m.cancel = nil
	if err != nil {
		m.state = State[T]{Status: StatusError, Symbol: symbol, Message: ErrorMessage}
	} else {
		m.state = State[T]{Status: StatusReady, Symbol: symbol, Data: data}
	}
	m.mu.Unlock()

	if err != nil {
		rec.Outcome = store.OutcomeError
		attrs := []any{"symbol", symbol, "error", err}
		var apiErr *marketview.Error
		if errors.As(err, &apiErr) {
			rec.Kind = apiErr.Kind.String()
			rec.Status = apiErr.StatusCode
			rec.Detail = apiErr.Detail
			attrs = append(attrs, "op", apiErr.Op, "kind", rec.Kind, "status", apiErr.StatusCode)
		}
		m.log.Warn("fetch failed", attrs...)
	} else {
		rec.Outcome = store.OutcomeReady
		m.log.Debug("fetch complete", "symbol", symbol, "elapsed", rec.Duration)
	}
	m.record(rec)
	m.notify()
}

func (m *machine[T]) record(rec store.FetchRecord) {
	if err := m.journal.Record(context.Background(), rec); err != nil {
		m.log.Warn("journal write failed", "error", err)
	}
}

// State returns the current snapshot.
func (m *machine[T]) State() State[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Wait blocks until every fetch started so far has finished.
func (m *machine[T]) Wait() {
	m.wg.Wait()
}

// Close cancels any fetch in flight, drops its result and waits for it to
// return. The panel keeps its last state.
func (m *machine[T]) Close() {
	m.mu.Lock()
	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.mu.Unlock()
	m.wg.Wait()
}

// Subscribe returns a channel that receives a signal after every state
// change. Signals coalesce: a subscriber that falls behind sees one pending
// signal and should re-read State.
func (m *machine[T]) Subscribe() (id int, ch <-chan struct{}) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	id = m.nextSubID
	m.nextSubID++
	c := make(chan struct{}, 1)
	m.subs[id] = c
	return id, c
}

// Unsubscribe removes a subscription and closes its channel.
func (m *machine[T]) Unsubscribe(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	if ch, ok := m.subs[id]; ok {
		close(ch)
		delete(m.subs, id)
	}
}

func (m *machine[T]) notify() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
