// Package desk owns the simulation state: the tracked instruments with their
// positions and orders, the volatile prices and histories, the user preferences and
// the refresh cycles that tie them to the market data layer.
package desk

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/indicator"
	"github.com/rxtech-lab/trading-desk/internal/ledger"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/store"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

// MinIndicatorSamples is the shortest history indicators are computed for.
const MinIndicatorSamples = 5

type Options struct {
	Clock  clock.Clock
	Logger *logger.Logger
	Store  *store.Store
	Market *marketdata.Service
	Engine *indicator.Engine
	// DefaultBase is used when no base currency was persisted.
	DefaultBase string
}

// live is the volatile state of an instrument. It is never persisted.
type live struct {
	price      optional.Option[float64]
	change     optional.Option[float64]
	pricedAt   optional.Option[time.Time]
	history    types.PriceHistory
	hasHistory bool
	indicators types.IndicatorSeries
}

// Desk is the single owner of the simulation state.
type Desk struct {
	clock  clock.Clock
	logger *logger.Logger
	store  *store.Store
	market *marketdata.Service
	ledger *ledger.Ledger
	engine *indicator.Engine

	// mu guards every field below it. Upstream calls are never made while holding it.
	mu          sync.RWMutex
	prefs       types.Preferences
	active      string
	instruments []*types.Instrument
	live        map[string]*live
	status      Status

	cyclesMu sync.Mutex
	cycles   map[string]*sync.Mutex

	listeners *listeners
}

// New loads the persisted state from opts.Store. Unreadable preferences fall back to
// their defaults; unreadable instruments are an error so they are never overwritten.
func New(opts Options) (*Desk, error) {
	if opts.Store == nil || opts.Market == nil || opts.Engine == nil {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "desk needs a store, a market data service and an indicator engine")
	}

	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewNopLogger()
	}

	if opts.DefaultBase == "" {
		opts.DefaultBase = types.DefaultBaseCurrency
	}

	d := &Desk{
		clock:  opts.Clock,
		logger: opts.Logger,
		store:  opts.Store,
		market: opts.Market,
		ledger: ledger.NewLedger(opts.Clock, opts.Logger),
		engine: opts.Engine,
		mu:     sync.RWMutex{},
		prefs: types.Preferences{
			Theme:  types.ThemeDark,
			Base:   strings.ToUpper(opts.DefaultBase),
			Player: "",
		},
		active:      "",
		instruments: make([]*types.Instrument, 0),
		live:        make(map[string]*live),
		status:      StatusOK,
		cyclesMu:    sync.Mutex{},
		cycles:      make(map[string]*sync.Mutex),
		listeners:   newListeners(),
	}

	if err := d.load(); err != nil {
		return nil, err
	}

	return d, nil
}

func (d *Desk) load() error {
	if theme, found, err := d.store.LoadTheme(); err != nil {
		d.logger.Warn("Ignoring unreadable theme", zap.Error(err))
	} else if found {
		d.prefs.Theme = theme
	}

	if base, found, err := d.store.LoadBase(); err != nil {
		d.logger.Warn("Ignoring unreadable base currency", zap.Error(err))
	} else if found {
		d.prefs.Base = base
	}

	if player, found, err := d.store.LoadPlayer(); err != nil {
		d.logger.Warn("Ignoring unreadable player", zap.Error(err))
	} else if found {
		d.prefs.Player = player
	}

	instruments, found, err := d.store.LoadInstruments()
	if err != nil {
		return err
	}

	if found {
		d.instruments = instruments
	}

	active, found, err := d.store.LoadActive()
	if err != nil {
		d.logger.Warn("Ignoring unreadable active instrument", zap.Error(err))
	}

	if found && d.indexOf(active) >= 0 {
		d.active = active
	} else if len(d.instruments) > 0 {
		d.active = d.instruments[0].Key
	}

	d.logger.Info("Desk state loaded",
		zap.Int("instruments", len(d.instruments)),
		zap.String("active", d.active),
		zap.String("base", d.prefs.Base),
	)

	return nil
}

// indexOf returns the position of key in the instrument list or -1. Callers hold mu.
func (d *Desk) indexOf(key string) int {
	for i, inst := range d.instruments {
		if inst.Key == key {
			return i
		}
	}

	return -1
}

// find returns the instrument stored under key. Callers hold mu.
func (d *Desk) find(key string) (*types.Instrument, int, error) {
	idx := d.indexOf(key)
	if idx < 0 {
		return nil, -1, errors.Newf(errors.ErrCodeInstrumentNotFound, "instrument %s is not tracked", key)
	}

	return d.instruments[idx], idx, nil
}

// liveFor returns the volatile state of key, creating it. Callers hold mu for writing.
func (d *Desk) liveFor(key string) *live {
	l, ok := d.live[key]
	if !ok {
		l = &live{
			price:      optional.None[float64](),
			change:     optional.None[float64](),
			pricedAt:   optional.None[time.Time](),
			history:    types.PriceHistory{Samples: nil, RefreshedAt: time.Time{}},
			hasHistory: false,
			indicators: types.IndicatorSeries{MA: nil, RSI: nil},
		}
		d.live[key] = l
	}

	return l
}

// priceOf returns the last known price of key. Callers hold mu.
func (d *Desk) priceOf(key string) optional.Option[float64] {
	if l, ok := d.live[key]; ok {
		return l.price
	}

	return optional.None[float64]()
}

// cycleLock returns the lock serializing refresh cycles of key.
func (d *Desk) cycleLock(key string) *sync.Mutex {
	d.cyclesMu.Lock()
	defer d.cyclesMu.Unlock()

	lock, ok := d.cycles[key]
	if !ok {
		lock = &sync.Mutex{}
		d.cycles[key] = lock
	}

	return lock
}

// persistInstruments writes the instrument collection. Callers hold mu.
func (d *Desk) persistInstruments() error {
	return d.store.SaveInstruments(d.instruments)
}

// computeIndicators derives the indicator series of a history. Histories shorter
// than MinIndicatorSamples get all-None series of the same length.
func (d *Desk) computeIndicators(history types.PriceHistory) types.IndicatorSeries {
	if history.Len() < MinIndicatorSamples {
		none := func() []optional.Option[float64] {
			out := make([]optional.Option[float64], history.Len())
			for i := range out {
				out[i] = optional.None[float64]()
			}

			return out
		}

		return types.IndicatorSeries{MA: none(), RSI: none()}
	}

	return d.engine.Compute(history)
}

// Status reports the connectivity observed by the last refresh.
func (d *Desk) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.status
}

func (d *Desk) setStatus(status Status) {
	d.mu.Lock()
	d.status = status
	d.mu.Unlock()
}

// Search resolves free text into instrument candidates.
func (d *Desk) Search(ctx context.Context, query string) ([]marketdata.Candidate, error) {
	return d.market.Search(ctx, query)
}
