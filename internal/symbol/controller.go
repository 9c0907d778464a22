// Package symbol holds the ticker symbol the dashboard is showing and tells
// the panels when it changes.
package symbol

import (
	"strings"
	"sync"
)

// Dependent is anything that reloads when the symbol changes. Load must not
// block; view-models start their fetch in the background.
type Dependent interface {
	Load(symbol string)
}

// Controller owns the current symbol. Last write wins.
type Controller struct {
	mu      sync.Mutex
	current string
	deps    []Dependent
}

// New returns a Controller with an empty symbol that signals deps in order.
func New(deps ...Dependent) *Controller {
	return &Controller{deps: deps}
}

// Normalize trims surrounding whitespace and uppercases raw.
func Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// SetSymbol normalizes and stores raw. Dependents are signalled only when the
// stored value changes. The stored value is returned.
func (c *Controller) SetSymbol(raw string) string {
	sym := Normalize(raw)

	c.mu.Lock()
	if sym == c.current {
		c.mu.Unlock()
		return sym
	}
	c.current = sym
	c.signal(sym)
	c.mu.Unlock()
	return sym
}

// Refresh signals every dependent with the current symbol again.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.signal(c.current)
}

// Current returns the stored symbol.
func (c *Controller) Current() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// signal runs under c.mu so dependents see loads in the order values were
// stored.
func (c *Controller) signal(sym string) {
	for _, d := range c.deps {
		d.Load(sym)
	}
}
