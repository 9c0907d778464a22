package marketview

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindNetwork means no response arrived: dial failure, reset, timeout or
	// cancellation.
	KindNetwork Kind = iota + 1
	// KindServer means the service answered with a non-2xx status.
	KindServer
	// KindParse means the body did not match the expected shape.
	KindParse
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Sentinel errors. Every *Error matches exactly one of ErrNetwork, ErrServer
// and ErrParse under errors.Is.
var (
	ErrEmptySymbol = errors.New("marketview: empty symbol")
	ErrNetwork     = errors.New("marketview: network error")
	ErrServer      = errors.New("marketview: server error")
	ErrParse       = errors.New("marketview: parse error")
)

// Error is a classified failure of one API call.
type Error struct {
	Kind       Kind
	Op         string // quote, history, insights, predict
	Symbol     string
	StatusCode int    // KindServer only
	Detail     string // error text from the service body, if any
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "marketview: %s %s: %s error", e.Op, e.Symbol, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrServer:
		return e.Kind == KindServer
	case ErrParse:
		return e.Kind == KindParse
	}
	return false
}

// KindOf returns the classification of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

const maxDetailLen = 200

// errorDetail extracts the FastAPI-style {"detail": ...} message from an
// error body, falling back to the raw body text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			return truncate(s)
		}
		return truncate(string(payload.Detail))
	}
	return truncate(strings.TrimSpace(string(body)))
}

func truncate(s string) string {
	if len(s) <= maxDetailLen {
		return s
	}
	cut := maxDetailLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
