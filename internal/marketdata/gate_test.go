package marketdata

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type GateTestSuite struct {
	suite.Suite
	clock *clock.Fake
	gate  *Gate
}

func TestGateSuite(t *testing.T) {
	suite.Run(t, new(GateTestSuite))
}

func (suite *GateTestSuite) SetupTest() {
	suite.clock = clock.NewFake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	suite.gate = NewGate("coingecko", suite.clock, DefaultGateInterval)
}

func noop(context.Context) error { return nil }

func (suite *GateTestSuite) TestFirstCallIsNotDelayed() {
	suite.NoError(suite.gate.Do(context.Background(), noop))
	suite.Empty(suite.clock.Sleeps())
}

func (suite *GateTestSuite) TestBackToBackCallsAreSpaced() {
	suite.NoError(suite.gate.Do(context.Background(), noop))
	suite.NoError(suite.gate.Do(context.Background(), noop))

	suite.Equal([]time.Duration{DefaultGateInterval}, suite.clock.Sleeps())
}

func (suite *GateTestSuite) TestCooldownStartsAtCompletion() {
	suite.NoError(suite.gate.Do(context.Background(), func(context.Context) error {
		suite.clock.Advance(500 * time.Millisecond)

		return nil
	}))

	suite.clock.Advance(300 * time.Millisecond)
	suite.NoError(suite.gate.Do(context.Background(), noop))

	suite.Equal([]time.Duration{900 * time.Millisecond}, suite.clock.Sleeps())
}

func (suite *GateTestSuite) TestNoWaitAfterInterval() {
	suite.NoError(suite.gate.Do(context.Background(), noop))
	suite.clock.Advance(2 * time.Second)
	suite.NoError(suite.gate.Do(context.Background(), noop))

	suite.Empty(suite.clock.Sleeps())
}

func (suite *GateTestSuite) TestFailedCallStillStartsCooldown() {
	err := suite.gate.Do(context.Background(), func(context.Context) error {
		return errors.New(errors.ErrCodeMarketDataFetchFailed, "boom")
	})
	suite.Error(err)
	suite.True(errors.IsFetchError(err))

	suite.NoError(suite.gate.Do(context.Background(), noop))
	suite.Equal([]time.Duration{DefaultGateInterval}, suite.clock.Sleeps())
}

func (suite *GateTestSuite) TestCancelledWaitSkipsCall() {
	suite.NoError(suite.gate.Do(context.Background(), noop))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := suite.gate.Do(ctx, func(context.Context) error {
		called = true

		return nil
	})

	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeRateLimitWaitAborted))
	suite.False(called)
}

func (suite *GateTestSuite) TestConcurrentCallsAreSerialized() {
	var (
		mu         sync.Mutex
		active     int
		maxActive  int
		dispatched []time.Time
		wg         sync.WaitGroup
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_ = suite.gate.Do(context.Background(), func(context.Context) error {
				mu.Lock()
				active++
				if active > maxActive {
					maxActive = active
				}
				dispatched = append(dispatched, suite.clock.Now())
				mu.Unlock()

				mu.Lock()
				active--
				mu.Unlock()

				return nil
			})
		}()
	}

	wg.Wait()

	suite.Equal(1, maxActive)
	suite.Len(dispatched, 5)

	sort.Slice(dispatched, func(i, j int) bool { return dispatched[i].Before(dispatched[j]) })

	for i := 1; i < len(dispatched); i++ {
		suite.GreaterOrEqual(dispatched[i].Sub(dispatched[i-1]), DefaultGateInterval)
	}
}

func (suite *GateTestSuite) TestCallReturnsValue() {
	v, err := Call(context.Background(), suite.gate, func(context.Context) (float64, error) {
		return 42.5, nil
	})
	suite.NoError(err)
	suite.Equal(42.5, v)

	_, err = Call(context.Background(), suite.gate, func(context.Context) (float64, error) {
		return 0, errors.New(errors.ErrCodeMarketDataParseFailed, "bad payload")
	})
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *GateTestSuite) TestGatesAreSharedPerUpstream() {
	gates := NewGates(suite.clock, DefaultGateInterval)

	a := gates.Get("coingecko")
	b := gates.Get("coingecko")
	c := gates.Get("exchangerate")

	suite.Same(a, b)
	suite.NotSame(a, c)
	suite.Equal("exchangerate", c.Name())
}
