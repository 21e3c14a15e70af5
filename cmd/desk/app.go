package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/config"
	"github.com/rxtech-lab/trading-desk/internal/desk"
	"github.com/rxtech-lab/trading-desk/internal/indicator"
	"github.com/rxtech-lab/trading-desk/internal/logger"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/scheduler"
	"github.com/rxtech-lab/trading-desk/internal/store"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/marketdata/provider"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// app holds everything a command needs. Commands build it with newApp and release
// it with close.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	clock  clock.Clock
	store  *store.Store
	market *marketdata.Service
	desk   *desk.Desk
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}

	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	clk := clock.New()

	st, err := store.Open(store.Driver(cfg.Store.Driver), cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	market, err := newMarket(cfg, clk, log)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engine, err := indicator.NewEngine(cfg.Indicators.MAPeriod, cfg.Indicators.RSIPeriod)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	d, err := desk.New(desk.Options{
		Clock:       clk,
		Logger:      log,
		Store:       st,
		Market:      market,
		Engine:      engine,
		DefaultBase: cfg.BaseCurrency,
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		clock:  clk,
		store:  st,
		market: market,
		desk:   d,
	}, nil
}

// newMarket registers one feed per instrument kind. Crypto search always goes to
// CoinGecko since Binance has no coin directory.
func newMarket(cfg *config.Config, clk clock.Clock, log *logger.Logger) (*marketdata.Service, error) {
	md := cfg.MarketData
	gates := marketdata.NewGates(clk, md.GateInterval.Duration)

	market := marketdata.NewService(marketdata.ServiceOptions{
		Clock:              clk,
		Logger:             log,
		MinHistoryInterval: md.HistoryMinInterval.Duration,
		Lookback: map[types.InstrumentKind]time.Duration{
			types.InstrumentKindCrypto: md.CryptoLookback.Duration,
			types.InstrumentKindFxPair: md.FxLookback.Duration,
		},
	})

	crypto := provider.Options{
		Gates:    gates,
		Clock:    clk,
		BaseURL:  md.CoinGecko.BaseURL,
		APIKey:   md.CoinGecko.APIKey,
		RatesTTL: 0,
		Assets:   nil,
		Timeout:  md.Timeout.Duration,
	}
	if md.CryptoProvider == string(provider.ProviderBinance) {
		crypto.BaseURL = md.Binance.BaseURL
		crypto.Assets = md.Binance.Assets
	}

	fx := provider.Options{
		Gates:    gates,
		Clock:    clk,
		BaseURL:  md.ExchangeRate.BaseURL,
		APIKey:   md.ExchangeRate.APIKey,
		RatesTTL: md.RatesTTL.Duration,
		Assets:   nil,
		Timeout:  md.Timeout.Duration,
	}
	if md.FxProvider == string(provider.ProviderPolygon) {
		fx.BaseURL = md.Polygon.BaseURL
		fx.APIKey = md.Polygon.APIKey
	}

	var searcher marketdata.Searcher

	for _, p := range []struct {
		name provider.ProviderType
		opts provider.Options
	}{
		{provider.ProviderType(md.CryptoProvider), crypto},
		{provider.ProviderType(md.FxProvider), fx},
	} {
		feed, kind, err := provider.NewFeed(p.name, p.opts)
		if err != nil {
			return nil, err
		}

		if err := market.RegisterFeed(kind, feed); err != nil {
			return nil, err
		}

		if s, ok := feed.(marketdata.Searcher); ok {
			searcher = s
		}

		log.Debug("Market data feed registered", zap.String("provider", string(p.name)), zap.String("kind", string(kind)))
	}

	if searcher == nil {
		searcher = provider.NewCoinGeckoClient(md.CoinGecko.BaseURL, gates.Get(string(provider.ProviderCoinGecko)), md.Timeout.Duration)
	}

	market.SetSearcher(searcher)

	return market, nil
}

// newScheduler registers the two periodic refreshes: every price, and the history
// of the active instrument. Both run once at start.
func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	s := scheduler.New(a.clock, a.log)

	err := s.Add(scheduler.Task{
		Name:      "prices",
		Interval:  a.cfg.Schedule.PriceInterval.Duration,
		Immediate: true,
		Run: func(ctx context.Context) error {
			return a.desk.RefreshAll(ctx).Err()
		},
	})
	if err != nil {
		return nil, err
	}

	err = s.Add(scheduler.Task{
		Name:      "history",
		Interval:  a.cfg.Schedule.HistoryInterval.Duration,
		Immediate: true,
		Run: func(ctx context.Context) error {
			result, ok := a.desk.RefreshActive(ctx, false)
			if !ok {
				return nil
			}

			return result.Err
		},
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close store", zap.Error(err))
	}

	_ = a.log.Sync()
}
