package provider

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/moznion/go-optional"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// binanceKlineLimit is the maximum number of klines Binance returns per request.
const binanceKlineLimit = 1000

// BinanceAPI is the subset of the Binance REST API used by the feed.
type BinanceAPI interface {
	PriceChangeStats(ctx context.Context, symbol string) (*binance.PriceChangeStats, error)
	Klines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]*binance.Kline, error)
}

type binanceSDK struct {
	client *binance.Client
}

// NewBinanceAPI wraps the go-binance client. An empty baseURL keeps the SDK default.
func NewBinanceAPI(baseURL string) BinanceAPI {
	client := binance.NewClient("", "")
	if baseURL != "" {
		client.BaseURL = baseURL
	}

	return &binanceSDK{client: client}
}

func (b *binanceSDK) PriceChangeStats(ctx context.Context, symbol string) (*binance.PriceChangeStats, error) {
	stats, err := b.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, err
	}

	if len(stats) == 0 {
		return nil, fmt.Errorf("no ticker for %s", symbol)
	}

	return stats[0], nil
}

func (b *binanceSDK) Klines(ctx context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]*binance.Kline, error) {
	return b.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startTime).
		EndTime(endTime).
		Limit(limit).
		Do(ctx)
}

// BinanceClient serves crypto prices from Binance spot tickers. The instrument's
// provider id is mapped to a Binance asset code and paired with the base currency,
// e.g. bitcoin in EUR trades as BTCEUR.
type BinanceClient struct {
	api      BinanceAPI
	gate     *marketdata.Gate
	clock    clock.Clock
	assets   map[string]string
	interval string
}

// NewBinanceClient creates a feed over api. assets maps provider ids to asset codes;
// unmapped ids are upper-cased.
func NewBinanceClient(api BinanceAPI, gate *marketdata.Gate, clk clock.Clock, assets map[string]string) (*BinanceClient, error) {
	interval, err := convertTimespanToBinanceInterval(models.Hour, 1)
	if err != nil {
		return nil, err
	}

	if clk == nil {
		clk = clock.New()
	}

	mapped := make(map[string]string, len(assets))
	for id, asset := range assets {
		mapped[id] = strings.ToUpper(asset)
	}

	return &BinanceClient{
		api:      api,
		gate:     gate,
		clock:    clk,
		assets:   mapped,
		interval: interval,
	}, nil
}

// Symbol returns the Binance trading symbol for a provider id in base.
func (c *BinanceClient) Symbol(providerID, base string) string {
	asset, ok := c.assets[providerID]
	if !ok {
		asset = strings.ToUpper(providerID)
	}

	return asset + strings.ToUpper(base)
}

// CurrentPrice returns the last traded price with the 24h change percentage.
func (c *BinanceClient) CurrentPrice(ctx context.Context, id types.Identity, base string) (types.Quote, error) {
	crypto, err := cryptoIdentity(id)
	if err != nil {
		return types.Quote{}, err
	}

	symbol := c.Symbol(crypto.ProviderID, base)

	stats, err := marketdata.Call(ctx, c.gate, func(ctx context.Context) (*binance.PriceChangeStats, error) {
		return c.api.PriceChangeStats(ctx, symbol)
	})
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "binance ticker %s", symbol)
	}

	price, err := strconv.ParseFloat(stats.LastPrice, 64)
	if err != nil {
		return types.Quote{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "binance last price %q", stats.LastPrice)
	}

	change := optional.None[float64]()
	if pct, err := strconv.ParseFloat(stats.PriceChangePercent, 64); err == nil {
		change = optional.Some(pct)
	}

	return types.Quote{
		Price:  price,
		Change: change,
		At:     time.Time{},
	}, nil
}

// History returns hourly closes covering lookback, paging through the kline endpoint.
func (c *BinanceClient) History(ctx context.Context, id types.Identity, base string, lookback time.Duration) ([]types.PriceSample, error) {
	crypto, err := cryptoIdentity(id)
	if err != nil {
		return nil, err
	}

	symbol := c.Symbol(crypto.ProviderID, base)
	end := c.clock.Now()
	endMillis := end.UnixMilli()
	currentStart := end.Add(-lookback).UnixMilli()

	samples := make([]types.PriceSample, 0)

	for {
		start := currentStart

		klines, err := marketdata.Call(ctx, c.gate, func(ctx context.Context) ([]*binance.Kline, error) {
			return c.api.Klines(ctx, symbol, c.interval, start, endMillis, binanceKlineLimit)
		})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "binance klines %s", symbol)
		}

		page, err := klinesToSamples(klines)
		if err != nil {
			return nil, err
		}

		samples = append(samples, page...)

		// A short page is the last one
		if len(klines) < binanceKlineLimit {
			break
		}

		// Use the close time of the last kline + 1ms to avoid duplicates
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	return samples, nil
}

// klinesToSamples keeps the close of each kline, stamped at its open time.
func klinesToSamples(klines []*binance.Kline) ([]types.PriceSample, error) {
	samples := make([]types.PriceSample, 0, len(klines))

	for _, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "binance kline close %q", k.Close)
		}

		samples = append(samples, types.PriceSample{
			Time:  time.UnixMilli(k.OpenTime).UTC(),
			Price: closePrice,
		})
	}

	return samples, nil
}

// convertTimespanToBinanceInterval converts the polygon timespan and multiplier to a Binance interval string.
// Binance intervals: 1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 8h, 12h, 1d, 3d, 1w, 1M
// Ref: https://binance-docs.github.io/apidocs/spot/en/#kline-candlestick-data
func convertTimespanToBinanceInterval(timespan models.Timespan, multiplier int) (string, error) {
	switch timespan {
	case models.Minute:
		return fmt.Sprintf("%dm", multiplier), nil
	case models.Hour:
		return fmt.Sprintf("%dh", multiplier), nil
	case models.Day:
		return fmt.Sprintf("%dd", multiplier), nil
	case models.Week:
		if multiplier == 1 {
			return "1w", nil
		}

		return "", fmt.Errorf("unsupported weekly multiplier for Binance: %d", multiplier)
	case models.Month:
		if multiplier == 1 {
			return "1M", nil
		}

		return "", fmt.Errorf("unsupported monthly multiplier for Binance: %d", multiplier)
	default:
		return "", fmt.Errorf("unsupported timespan for Binance: %s", timespan)
	}
}
