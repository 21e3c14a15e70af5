package provider

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// DefaultCoinGeckoURL is the public CoinGecko v3 API.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

const maxSearchResults = 10

// Coin is an entry of the CoinGecko coin list.
type Coin struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// ScoredCoin is a coin ranked against a search query.
type ScoredCoin struct {
	Coin
	Score int
}

// CoinGeckoClient serves crypto prices, hourly history and coin search from CoinGecko.
type CoinGeckoClient struct {
	client   *resty.Client
	gate     *marketdata.Gate
	interval string

	mu    sync.Mutex
	coins []Coin
}

// NewCoinGeckoClient creates a client talking to baseURL through gate.
func NewCoinGeckoClient(baseURL string, gate *marketdata.Gate, timeout time.Duration) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = DefaultCoinGeckoURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &CoinGeckoClient{
		client:   client,
		gate:     gate,
		interval: "hourly",
		mu:       sync.Mutex{},
		coins:    nil,
	}
}

func cryptoIdentity(id types.Identity) (types.CryptoIdentity, error) {
	crypto, ok := id.(types.CryptoIdentity)
	if !ok {
		return types.CryptoIdentity{}, errors.Newf(errors.ErrCodeInvalidInstrument, "expected a crypto instrument, got %s", id.Kind())
	}

	return crypto, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, params map[string]string, result any) error {
	resp, err := marketdata.Call(ctx, c.gate, func(ctx context.Context) (*resty.Response, error) {
		return c.client.R().
			SetContext(ctx).
			SetQueryParams(params).
			SetResult(result).
			Get(path)
	})
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "coingecko %s", path)
	}

	if resp.IsError() {
		return errors.Newf(errors.ErrCodeMarketDataFetchFailed, "coingecko %s returned %s", path, resp.Status())
	}

	return nil
}

// CurrentPrice returns the simple price of the coin in base with its 24h change.
func (c *CoinGeckoClient) CurrentPrice(ctx context.Context, id types.Identity, base string) (types.Quote, error) {
	crypto, err := cryptoIdentity(id)
	if err != nil {
		return types.Quote{}, err
	}

	vs := strings.ToLower(base)

	var out map[string]map[string]*float64

	err = c.get(ctx, "/simple/price", map[string]string{
		"ids":                 crypto.ProviderID,
		"vs_currencies":       vs,
		"include_24hr_change": "true",
	}, &out)
	if err != nil {
		return types.Quote{}, err
	}

	fields, ok := out[crypto.ProviderID]
	if !ok || fields[vs] == nil {
		return types.Quote{}, errors.Newf(errors.ErrCodeMarketDataParseFailed, "no %s price for %s", vs, crypto.ProviderID)
	}

	change := optional.None[float64]()
	if v := fields[vs+"_24h_change"]; v != nil {
		change = optional.Some(*v)
	}

	return types.Quote{
		Price:  *fields[vs],
		Change: change,
		At:     time.Time{},
	}, nil
}

type marketChart struct {
	Prices [][]float64 `json:"prices"`
}

// History returns the market chart of the coin covering lookback.
func (c *CoinGeckoClient) History(ctx context.Context, id types.Identity, base string, lookback time.Duration) ([]types.PriceSample, error) {
	crypto, err := cryptoIdentity(id)
	if err != nil {
		return nil, err
	}

	days := int(math.Ceil(lookback.Hours() / 24))
	if days < 1 {
		days = 1
	}

	params := map[string]string{
		"vs_currency": strings.ToLower(base),
		"days":        fmt.Sprintf("%d", days),
	}
	if c.interval != "" {
		params["interval"] = c.interval
	}

	var chart marketChart
	if err := c.get(ctx, "/coins/"+crypto.ProviderID+"/market_chart", params, &chart); err != nil {
		return nil, err
	}

	samples := make([]types.PriceSample, 0, len(chart.Prices))
	for _, point := range chart.Prices {
		if len(point) < 2 {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "malformed chart point for %s", crypto.ProviderID)
		}

		samples = append(samples, types.PriceSample{
			Time:  time.UnixMilli(int64(point[0])).UTC(),
			Price: point[1],
		})
	}

	return samples, nil
}

// Coins returns the full coin list. It is fetched once and kept for the life of the client.
func (c *CoinGeckoClient) Coins(ctx context.Context) ([]Coin, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.coins != nil {
		return c.coins, nil
	}

	var coins []Coin
	if err := c.get(ctx, "/coins/list", map[string]string{"include_platform": "false"}, &coins); err != nil {
		return nil, err
	}

	if coins == nil {
		coins = []Coin{}
	}

	c.coins = coins

	return coins, nil
}

// Search ranks the coin list against query and returns the best matches.
func (c *CoinGeckoClient) Search(ctx context.Context, query string) ([]marketdata.Candidate, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []marketdata.Candidate{}, nil
	}

	coins, err := c.Coins(ctx)
	if err != nil {
		return nil, err
	}

	scored := ScoreCoins(coins, query)
	out := make([]marketdata.Candidate, 0, len(scored))

	for _, s := range scored {
		id := types.CryptoIdentity{ProviderID: s.ID}
		out = append(out, marketdata.Candidate{
			Key:      types.InstrumentKeyFor(id),
			Symbol:   strings.ToUpper(s.Symbol),
			Name:     s.Name,
			Identity: id,
			Kind:     types.InstrumentKindCrypto,
			Score:    s.Score,
		})
	}

	return out, nil
}

// ScoreCoins scores every coin against a lower-case query and returns the ten best,
// highest score first. Exact id, symbol and name matches weigh 100, 90 and 80;
// prefixes 40, 35 and 30; a name containing the query adds 10.
func ScoreCoins(coins []Coin, query string) []ScoredCoin {
	scored := make([]ScoredCoin, 0)

	for _, coin := range coins {
		id := strings.ToLower(coin.ID)
		sym := strings.ToLower(coin.Symbol)
		name := strings.ToLower(coin.Name)

		score := 0
		if id == query {
			score += 100
		}

		if sym == query {
			score += 90
		}

		if name == query {
			score += 80
		}

		if strings.HasPrefix(id, query) {
			score += 40
		}

		if strings.HasPrefix(sym, query) {
			score += 35
		}

		if strings.HasPrefix(name, query) {
			score += 30
		}

		if strings.Contains(name, query) {
			score += 10
		}

		if score > 0 {
			scored = append(scored, ScoredCoin{Coin: coin, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > maxSearchResults {
		scored = scored[:maxSearchResults]
	}

	return scored
}
