package marketdata

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMinHistoryInterval is how long a fetched history stays fresh.
const DefaultMinHistoryInterval = 60 * time.Second

// Default lookback windows per instrument kind.
const (
	DefaultCryptoLookback = 90 * 24 * time.Hour
	DefaultFxLookback     = 120 * 24 * time.Hour
)

// ServiceOptions configures a Service. Zero values fall back to the defaults.
type ServiceOptions struct {
	Clock              clock.Clock
	Logger             *logger.Logger
	MinHistoryInterval time.Duration
	Lookback           map[types.InstrumentKind]time.Duration
}

type historyEntry struct {
	base    string
	history types.PriceHistory
}

// Service routes price and history requests to the feed registered for the
// instrument kind and caches the last history per instrument.
type Service struct {
	clock              clock.Clock
	logger             *logger.Logger
	minHistoryInterval time.Duration
	lookback           map[types.InstrumentKind]time.Duration

	mu       sync.RWMutex
	feeds    map[types.InstrumentKind]Feed
	searcher Searcher
	history  map[string]historyEntry
}

// NewService creates a service without feeds.
func NewService(opts ServiceOptions) *Service {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	minInterval := opts.MinHistoryInterval
	if minInterval <= 0 {
		minInterval = DefaultMinHistoryInterval
	}

	lookback := map[types.InstrumentKind]time.Duration{
		types.InstrumentKindCrypto: DefaultCryptoLookback,
		types.InstrumentKindFxPair: DefaultFxLookback,
	}
	for kind, d := range opts.Lookback {
		if d > 0 {
			lookback[kind] = d
		}
	}

	return &Service{
		clock:              clk,
		logger:             log,
		minHistoryInterval: minInterval,
		lookback:           lookback,
		mu:                 sync.RWMutex{},
		feeds:              make(map[types.InstrumentKind]Feed),
		searcher:           nil,
		history:            make(map[string]historyEntry),
	}
}

// RegisterFeed installs the feed serving kind.
func (s *Service) RegisterFeed(kind types.InstrumentKind, feed Feed) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.feeds[kind]; exists {
		return errors.Newf(errors.ErrCodeInvalidProvider, "a feed for %s is already registered", kind)
	}

	s.feeds[kind] = feed

	return nil
}

// SetSearcher installs the crypto searcher used by Search.
func (s *Service) SetSearcher(searcher Searcher) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.searcher = searcher
}

func (s *Service) feed(kind types.InstrumentKind) (Feed, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	feed, ok := s.feeds[kind]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnsupportedKind, "no feed registered for %s", kind)
	}

	return feed, nil
}

// CurrentPrice fetches the latest quote for inst in base.
func (s *Service) CurrentPrice(ctx context.Context, inst *types.Instrument, base string) (types.Quote, error) {
	feed, err := s.feed(inst.Kind())
	if err != nil {
		return types.Quote{}, err
	}

	quote, err := feed.CurrentPrice(ctx, inst.Identity, base)
	if err != nil {
		s.logger.Warn("Failed to fetch price",
			zap.String("instrument", inst.Key),
			zap.String("base", base),
			zap.Error(err),
		)

		return types.Quote{}, FetchError(err, "failed to fetch price of %s", inst.Key)
	}

	if !usablePrice(quote.Price) {
		s.logger.Warn("Discarding unusable quote",
			zap.String("instrument", inst.Key),
			zap.String("base", base),
			zap.Float64("price", quote.Price),
		)

		return types.Quote{}, errors.Newf(errors.ErrCodeMarketDataParseFailed, "unusable price %v for %s", quote.Price, inst.Key)
	}

	if change, err := quote.Change.Take(); err == nil && (math.IsNaN(change) || math.IsInf(change, 0)) {
		quote.Change = optional.None[float64]()
	}

	if quote.At.IsZero() {
		quote.At = s.clock.Now()
	}

	return quote, nil
}

// usablePrice reports whether p can stand as a reference price: finite and positive.
func usablePrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// History returns the price history of inst in base. A cached history younger than
// the minimum interval is returned as is unless force is set. The boolean reports
// whether a new history was fetched. On failure the cached history, if any, is
// returned together with the error.
func (s *Service) History(ctx context.Context, inst *types.Instrument, base string, force bool) (types.PriceHistory, bool, error) {
	cached, hasCached := s.CachedHistory(inst.Key, base)
	if hasCached && !force && s.clock.Now().Sub(cached.RefreshedAt) < s.minHistoryInterval {
		return cached, false, nil
	}

	feed, err := s.feed(inst.Kind())
	if err != nil {
		return cached, false, err
	}

	samples, err := feed.History(ctx, inst.Identity, base, s.lookback[inst.Kind()])
	if err != nil {
		s.logger.Warn("Failed to fetch history",
			zap.String("instrument", inst.Key),
			zap.String("base", base),
			zap.Error(err),
		)

		return cached, false, FetchError(err, "failed to fetch history of %s", inst.Key)
	}

	sorted := make([]types.PriceSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	history := types.PriceHistory{
		Samples:     sorted,
		RefreshedAt: s.clock.Now(),
	}

	s.mu.Lock()
	s.history[inst.Key] = historyEntry{base: base, history: history}
	s.mu.Unlock()

	s.logger.Debug("History refreshed",
		zap.String("instrument", inst.Key),
		zap.Int("samples", history.Len()),
	)

	return history, true, nil
}

// CachedHistory returns the cached history of key if it was fetched in base.
func (s *Service) CachedHistory(key, base string) (types.PriceHistory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.history[key]
	if !ok || entry.base != base {
		return types.PriceHistory{}, false
	}

	return entry.history, true
}

// Forget drops the cached history of key.
func (s *Service) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, key)
}

// Search resolves free text into instrument candidates. Input that parses as a
// currency pair yields a single pair candidate; anything else is a crypto search.
func (s *Service) Search(ctx context.Context, query string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Candidate{}, nil
	}

	if pair, ok := types.ParsePair(query); ok {
		return []Candidate{{
			Key:      types.InstrumentKeyFor(pair),
			Symbol:   pair.Base + pair.Quote,
			Name:     pair.Base + "/" + pair.Quote,
			Identity: pair,
			Kind:     types.InstrumentKindFxPair,
			Score:    0,
		}}, nil
	}

	s.mu.RLock()
	searcher := s.searcher
	s.mu.RUnlock()

	if searcher == nil {
		return nil, errors.New(errors.ErrCodeInvalidProvider, "no crypto searcher configured")
	}

	candidates, err := searcher.Search(ctx, query)
	if err != nil {
		return nil, FetchError(err, "failed to search for %q", query)
	}

	return candidates, nil
}
