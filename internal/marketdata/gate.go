package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// DefaultGateInterval is the spacing kept between two calls to the same upstream.
const DefaultGateInterval = 1200 * time.Millisecond

// Gate serializes calls to one upstream and keeps at least minInterval between the
// completion of a call and the dispatch of the next one.
type Gate struct {
	name        string
	clock       clock.Clock
	minInterval time.Duration

	mu       sync.Mutex
	last     time.Time
	hasFired bool
}

// NewGate creates a gate for the named upstream.
func NewGate(name string, clk clock.Clock, minInterval time.Duration) *Gate {
	return &Gate{
		name:        name,
		clock:       clk,
		minInterval: minInterval,
		mu:          sync.Mutex{},
		last:        time.Time{},
		hasFired:    false,
	}
}

// Name returns the upstream name.
func (g *Gate) Name() string {
	return g.name
}

// Do waits for the cooldown, then runs fn. Calls are dispatched one at a time in
// the order they acquire the gate.
func (g *Gate) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.hasFired {
		wait := g.last.Add(g.minInterval).Sub(g.clock.Now())
		if wait > 0 {
			if err := g.clock.Sleep(ctx, wait); err != nil {
				return errors.Wrapf(errors.ErrCodeRateLimitWaitAborted, err, "waiting for %s gate", g.name)
			}
		}
	}

	err := fn(ctx)

	g.last = g.clock.Now()
	g.hasFired = true

	return err
}

// Call runs fn through the gate and returns its result.
func Call[T any](ctx context.Context, g *Gate, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	err := g.Do(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}

		out = v

		return nil
	})

	return out, err
}

// Gates hands out one gate per upstream name for the life of the process.
type Gates struct {
	clock       clock.Clock
	minInterval time.Duration

	mu    sync.Mutex
	gates map[string]*Gate
}

// NewGates creates an empty gate set.
func NewGates(clk clock.Clock, minInterval time.Duration) *Gates {
	return &Gates{
		clock:       clk,
		minInterval: minInterval,
		mu:          sync.Mutex{},
		gates:       make(map[string]*Gate),
	}
}

// Get returns the gate for upstream, creating it on first use.
func (g *Gates) Get(upstream string) *Gate {
	g.mu.Lock()
	defer g.mu.Unlock()

	gate, ok := g.gates[upstream]
	if !ok {
		gate = NewGate(upstream, g.clock, g.minInterval)
		g.gates[upstream] = gate
	}

	return gate
}
