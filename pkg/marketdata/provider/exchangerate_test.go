package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ExchangeRateTestSuite struct {
	suite.Suite
	server      *httptest.Server
	clock       *clock.Fake
	client      *ExchangeRateClient
	latestCalls atomic.Int32
}

func TestExchangeRateSuite(t *testing.T) {
	suite.Run(t, new(ExchangeRateTestSuite))
}

func (suite *ExchangeRateTestSuite) SetupTest() {
	suite.latestCalls.Store(0)

	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		suite.latestCalls.Add(1)

		switch r.URL.Query().Get("base") {
		case "EUR":
			writeJSON(w, RatesTable{
				Base:  "EUR",
				Date:  "2024-05-01",
				Rates: map[string]float64{"USD": 1.08, "JPY": 162.0, "GBP": 0.86},
			})
		default:
			writeJSON(w, RatesTable{Base: r.URL.Query().Get("base"), Date: "2024-05-01", Rates: map[string]float64{}})
		}
	})
	mux.HandleFunc("/timeseries", func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("EUR", r.URL.Query().Get("base"))
		suite.Equal("USD,JPY", r.URL.Query().Get("symbols"))
		suite.Equal("2024-01-02", r.URL.Query().Get("start_date"))
		suite.Equal("2024-05-01", r.URL.Query().Get("end_date"))

		writeJSON(w, map[string]any{
			"base": "EUR",
			"rates": map[string]map[string]float64{
				"2024-04-30": {"USD": 1.07, "JPY": 160.5},
				"2024-04-29": {"USD": 1.05, "JPY": 157.5},
				"2024-05-01": {"USD": 1.08},
			},
		})
	})

	suite.server = httptest.NewServer(mux)
	suite.clock = clock.NewFake(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	//nolint:exhaustruct // defaults for the rest
	suite.client = NewExchangeRateClient(ExchangeRateOptions{
		BaseURL: suite.server.URL,
		Gate:    marketdata.NewGate("exchangerate", suite.clock, marketdata.DefaultGateInterval),
		Clock:   suite.clock,
		Timeout: 5 * time.Second,
	})
}

func (suite *ExchangeRateTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ExchangeRateTestSuite) TestPairPrice() {
	rates := map[string]float64{"USD": 1.08, "JPY": 162.0}

	price, ok := PairPrice(rates, "EUR", types.FxPairIdentity{Base: "EUR", Quote: "USD"})
	suite.True(ok)
	suite.InDelta(1.08, price, 1e-12)

	price, ok = PairPrice(rates, "EUR", types.FxPairIdentity{Base: "USD", Quote: "EUR"})
	suite.True(ok)
	suite.InDelta(1/1.08, price, 1e-12)

	price, ok = PairPrice(rates, "EUR", types.FxPairIdentity{Base: "USD", Quote: "JPY"})
	suite.True(ok)
	suite.InDelta(150.0, price, 1e-9)

	_, ok = PairPrice(rates, "EUR", types.FxPairIdentity{Base: "USD", Quote: "CHF"})
	suite.False(ok)
}

func (suite *ExchangeRateTestSuite) TestCurrentPrice() {
	quote, err := suite.client.CurrentPrice(context.Background(), types.FxPairIdentity{Base: "EUR", Quote: "USD"}, "EUR")
	suite.NoError(err)
	suite.InDelta(1.08, quote.Price, 1e-12)
	suite.True(quote.Change.IsNone())
}

func (suite *ExchangeRateTestSuite) TestLatestIsCachedForTTL() {
	pair := types.FxPairIdentity{Base: "USD", Quote: "JPY"}

	_, err := suite.client.CurrentPrice(context.Background(), pair, "EUR")
	suite.NoError(err)
	suite.clock.Advance(30 * time.Second)
	_, err = suite.client.CurrentPrice(context.Background(), pair, "EUR")
	suite.NoError(err)
	suite.Equal(int32(1), suite.latestCalls.Load())

	suite.clock.Advance(31 * time.Second)
	_, err = suite.client.CurrentPrice(context.Background(), pair, "EUR")
	suite.NoError(err)
	suite.Equal(int32(2), suite.latestCalls.Load())

	_, err = suite.client.Latest(context.Background(), "EUR", true)
	suite.NoError(err)
	suite.Equal(int32(3), suite.latestCalls.Load())
}

func (suite *ExchangeRateTestSuite) TestMissingRateIsParseError() {
	_, err := suite.client.CurrentPrice(context.Background(), types.FxPairIdentity{Base: "USD", Quote: "CHF"}, "EUR")
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
	suite.True(errors.IsFetchError(err))

	_, err = suite.client.CurrentPrice(context.Background(), types.FxPairIdentity{Base: "USD", Quote: "CHF"}, "XXX")
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *ExchangeRateTestSuite) TestHistorySortsAndSkipsIncompleteDays() {
	samples, err := suite.client.History(context.Background(), types.FxPairIdentity{Base: "USD", Quote: "JPY"}, "EUR", 120*24*time.Hour)
	suite.NoError(err)
	suite.Require().Len(samples, 2)

	suite.Equal(time.Date(2024, 4, 29, 0, 0, 0, 0, time.UTC), samples[0].Time)
	suite.InDelta(150.0, samples[0].Price, 1e-9)
	suite.Equal(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC), samples[1].Time)
	suite.InDelta(150.0, samples[1].Price, 1e-9)
}

func (suite *ExchangeRateTestSuite) TestRejectsCrypto() {
	_, err := suite.client.CurrentPrice(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInstrument))
}

func (suite *ExchangeRateTestSuite) TestUnreachableUpstream() {
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()

	//nolint:exhaustruct // defaults for the rest
	client := NewExchangeRateClient(ExchangeRateOptions{
		BaseURL: closed.URL,
		Gate:    marketdata.NewGate("exchangerate", suite.clock, marketdata.DefaultGateInterval),
		Clock:   suite.clock,
		Timeout: time.Second,
	})

	_, err := client.CurrentPrice(context.Background(), types.FxPairIdentity{Base: "EUR", Quote: "USD"}, "EUR")
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataFetchFailed))
}
