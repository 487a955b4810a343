// Package health checks the backing stores the auth service depends on.
package health

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout bounds a whole Check call.
const DefaultTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger (e.g. func(ctx) error { return rdb.Ping(ctx).Err() }).
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Checker pings every registered dependency.
type Checker struct {
	mu      sync.RWMutex
	pingers map[string]Pinger
	timeout time.Duration
}

// NewChecker returns a Checker whose Check gives up after timeout (DefaultTimeout when <= 0).
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Checker{pingers: make(map[string]Pinger), timeout: timeout}
}

// Add registers p under name. A nil p is ignored.
func (c *Checker) Add(name string, p Pinger) {
	if p == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingers[name] = p
}

// Check pings all dependencies and joins the failures. nil means healthy.
func (c *Checker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	c.mu.RLock()
	names := make([]string, 0, len(c.pingers))
	for name := range c.pingers {
		names = append(names, name)
	}
	c.mu.RUnlock()
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		c.mu.RLock()
		p := c.pingers[name]
		c.mu.RUnlock()
		if err := p.Ping(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Ready reports whether Check succeeds. Suitable as an observability.ReadinessChecker.
func (c *Checker) Ready() bool {
	return c.Check(context.Background()) == nil
}
