package provider

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// DefaultExchangeRateURL is the public exchangerate.host API.
const DefaultExchangeRateURL = "https://api.exchangerate.host"

// DefaultRatesTTL is how long a latest-rates table is reused.
const DefaultRatesTTL = 60 * time.Second

const dateLayout = "2006-01-02"

// RatesTable maps currency codes to the amount of that currency one unit of Base buys.
type RatesTable struct {
	Base  string             `json:"base"`
	Date  string             `json:"date"`
	Rates map[string]float64 `json:"rates"`
}

type ratesEntry struct {
	table RatesTable
	at    time.Time
}

// ExchangeRateClient serves currency pair prices from exchangerate.host. Latest rates
// are fetched per base currency and reused for the TTL.
type ExchangeRateClient struct {
	client *resty.Client
	gate   *marketdata.Gate
	clock  clock.Clock
	ttl    time.Duration
	apiKey string

	mu     sync.Mutex
	latest map[string]ratesEntry
}

// ExchangeRateOptions configures an ExchangeRateClient.
type ExchangeRateOptions struct {
	BaseURL string
	APIKey  string
	Gate    *marketdata.Gate
	Clock   clock.Clock
	TTL     time.Duration
	Timeout time.Duration
}

// NewExchangeRateClient creates a client with the given options.
func NewExchangeRateClient(opts ExchangeRateOptions) *ExchangeRateClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultExchangeRateURL
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultRatesTTL
	}

	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	return &ExchangeRateClient{
		client: client,
		gate:   opts.Gate,
		clock:  clk,
		ttl:    ttl,
		apiKey: opts.APIKey,
		mu:     sync.Mutex{},
		latest: make(map[string]ratesEntry),
	}
}

func pairIdentity(id types.Identity) (types.FxPairIdentity, error) {
	pair, ok := id.(types.FxPairIdentity)
	if !ok {
		return types.FxPairIdentity{}, errors.Newf(errors.ErrCodeInvalidInstrument, "expected a currency pair, got %s", id.Kind())
	}

	return pair, nil
}

func (c *ExchangeRateClient) get(ctx context.Context, path string, params map[string]string, result any) error {
	if c.apiKey != "" {
		params["access_key"] = c.apiKey
	}

	resp, err := marketdata.Call(ctx, c.gate, func(ctx context.Context) (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(result).
			Get(path)
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "exchangerate %s", path)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeMarketDataFetchFailed, "exchangerate %s returned %s", path, resp.Status())
	}

	return nil
}

// Latest returns the rates table for base, reusing a table younger than the TTL
// unless force is set.
func (c *ExchangeRateClient) Latest(ctx context.Context, base string, force bool) (RatesTable, error) {
	base = strings.ToUpper(base)

	c.mu.Lock()
	entry, ok := c.latest[base]
	c.mu.Unlock()

	if ok && !force && c.clock.Now().Sub(entry.at) < c.ttl {
		return entry.table, nil
	}

	var table RatesTable
	if err := c.get(ctx, "/latest", map[string]string{"base": base}, &table); err != nil {
		return RatesTable{}, err
	}

	if len(table.Rates) == 0 {
		return RatesTable{}, errors.Newf(errors.ErrCodeMarketDataParseFailed, "exchangerate returned no rates for %s", base)
	}

	c.mu.Lock()
	c.latest[base] = ratesEntry{table: table, at: c.clock.Now()}
	c.mu.Unlock()

	return table, nil
}

// PairPrice returns the price of one unit of pair.Base in pair.Quote from a table of
// rates quoted against base. The base currency itself has rate 1.
func PairPrice(rates map[string]float64, base string, pair types.FxPairIdentity) (float64, bool) {
	rate := func(code string) float64 {
		if code == base {
			return 1
		}

		return rates[code]
	}

	rBase := rate(pair.Base)
	rQuote := rate(pair.Quote)

	if rBase <= 0 || rQuote <= 0 {
		return 0, false
	}

	return rQuote / rBase, true
}

// CurrentPrice derives the pair price from the latest rates of base. No trailing
// change is reported.
func (c *ExchangeRateClient) CurrentPrice(ctx context.Context, id types.Identity, base string) (types.Quote, error) {
	pair, err := pairIdentity(id)
	if err != nil {
		return types.Quote{}, err
	}

	table, err := c.Latest(ctx, base, false)
	if err != nil {
		return types.Quote{}, err
	}

	price, ok := PairPrice(table.Rates, strings.ToUpper(base), pair)
	if !ok {
		return types.Quote{}, errors.Newf(errors.ErrCodeMarketDataParseFailed, "no rate for %s", pair)
	}

	return types.Quote{
		Price:  price,
		Change: optional.None[float64](),
		At:     time.Time{},
	}, nil
}

type timeseries struct {
	Base  string                        `json:"base"`
	Rates map[string]map[string]float64 `json:"rates"`
}

// History returns one sample per day covering lookback. Days missing either leg are
// skipped.
func (c *ExchangeRateClient) History(ctx context.Context, id types.Identity, base string, lookback time.Duration) ([]types.PriceSample, error) {
	pair, err := pairIdentity(id)
	if err != nil {
		return nil, err
	}

	base = strings.ToUpper(base)
	end := c.clock.Now().UTC()
	start := end.Add(-lookback)

	var series timeseries

	err = c.get(ctx, "/timeseries", map[string]string{
		"base":       base,
		"symbols":    pair.Base + "," + pair.Quote,
		"start_date": start.Format(dateLayout),
		"end_date":   end.Format(dateLayout),
	}, &series)
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(series.Rates))
	for d := range series.Rates {
		dates = append(dates, d)
	}

	sort.Strings(dates)

	samples := make([]types.PriceSample, 0, len(dates))

	for _, d := range dates {
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "bad date %q in timeseries", d)
		}

		price, ok := PairPrice(series.Rates[d], base, pair)
		if !ok {
			continue
		}

		samples = append(samples, types.PriceSample{Time: t, Price: price})
	}

	return samples, nil
}
