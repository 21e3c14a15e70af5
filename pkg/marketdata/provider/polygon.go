package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// quoteLookback is the window scanned for the most recent aggregate.
const quoteLookback = 72 * time.Hour

// PolygonAggsIterator iterates over aggregate bars.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the Polygon REST client used by the feed.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonSDK struct {
	client *polygon.Client
}

func (p *polygonSDK) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return p.client.ListAggs(ctx, params, options...)
}

// PolygonClient serves currency pair prices from Polygon forex aggregates.
type PolygonClient struct {
	apiClient PolygonAPIClient
	gate      *marketdata.Gate
	clock     clock.Clock
}

// NewPolygonClient creates a feed authenticated with apiKey.
func NewPolygonClient(apiKey string, gate *marketdata.Gate, clk clock.Clock) (*PolygonClient, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "apiKey is required")
	}

	return NewPolygonClientWithAPI(&polygonSDK{client: polygon.New(apiKey)}, gate, clk), nil
}

// NewPolygonClientWithAPI creates a feed over an existing API client.
func NewPolygonClientWithAPI(api PolygonAPIClient, gate *marketdata.Gate, clk clock.Clock) *PolygonClient {
	if clk == nil {
		clk = clock.New()
	}

	return &PolygonClient{
		apiClient: api,
		gate:      gate,
		clock:     clk,
	}
}

// PolygonTicker returns the Polygon forex ticker of a pair, e.g. C:EURUSD.
func PolygonTicker(pair types.FxPairIdentity) string {
	return fmt.Sprintf("C:%s%s", pair.Base, pair.Quote)
}

func (c *PolygonClient) aggregates(ctx context.Context, pair types.FxPairIdentity, timespan models.Timespan, from, to time.Time) ([]types.PriceSample, error) {
	ticker := PolygonTicker(pair)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     ticker,
		Multiplier: 1,
		Timespan:   timespan,
		From:       models.Millis(from),
		To:         models.Millis(to),
	}.WithLimit(50000)

	return marketdata.Call(ctx, c.gate, func(ctx context.Context) ([]types.PriceSample, error) {
		iter := c.apiClient.ListAggs(ctx, params)

		samples := make([]types.PriceSample, 0)
		for iter.Next() {
			agg := iter.Item()
			samples = append(samples, types.PriceSample{
				Time:  time.Time(agg.Timestamp).UTC(),
				Price: agg.Close,
			})
		}

		if iter.Err() != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, iter.Err(), "error iterating polygon aggregates for %s", ticker)
		}

		return samples, nil
	})
}

// CurrentPrice returns the close of the most recent hourly aggregate. The pair is
// priced directly, so base does not affect the result.
func (c *PolygonClient) CurrentPrice(ctx context.Context, id types.Identity, _ string) (types.Quote, error) {
	pair, err := pairIdentity(id)
	if err != nil {
		return types.Quote{}, err
	}

	now := c.clock.Now()

	samples, err := c.aggregates(ctx, pair, models.Hour, now.Add(-quoteLookback), now)
	if err != nil {
		return types.Quote{}, err
	}

	if len(samples) == 0 {
		return types.Quote{}, errors.Newf(errors.ErrCodeMarketDataParseFailed, "no recent aggregates for %s", PolygonTicker(pair))
	}

	last := samples[len(samples)-1]

	return types.Quote{
		Price:  last.Price,
		Change: optional.None[float64](),
		At:     last.Time,
	}, nil
}

// History returns daily closes covering lookback.
func (c *PolygonClient) History(ctx context.Context, id types.Identity, _ string, lookback time.Duration) ([]types.PriceSample, error) {
	pair, err := pairIdentity(id)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()

	return c.aggregates(ctx, pair, models.Day, now.Add(-lookback), now)
}
