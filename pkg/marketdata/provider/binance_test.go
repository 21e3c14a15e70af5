package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	deskerrors "github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type klinesCall struct {
	symbol   string
	interval string
	start    int64
	end      int64
	limit    int
}

// mockBinanceAPI implements BinanceAPI for testing.
type mockBinanceAPI struct {
	stats    *binance.PriceChangeStats
	statsErr error
	symbols  []string

	// klinesPerCall returns different pages on subsequent calls
	klinesPerCall [][]*binance.Kline
	klinesErr     error
	calls         []klinesCall
}

func (m *mockBinanceAPI) PriceChangeStats(_ context.Context, symbol string) (*binance.PriceChangeStats, error) {
	m.symbols = append(m.symbols, symbol)

	return m.stats, m.statsErr
}

func (m *mockBinanceAPI) Klines(_ context.Context, symbol, interval string, startTime, endTime int64, limit int) ([]*binance.Kline, error) {
	idx := len(m.calls)
	m.calls = append(m.calls, klinesCall{symbol: symbol, interval: interval, start: startTime, end: endTime, limit: limit})

	if m.klinesErr != nil {
		return nil, m.klinesErr
	}

	if idx < len(m.klinesPerCall) {
		return m.klinesPerCall[idx], nil
	}

	return nil, nil
}

func makeKlines(start time.Time, n int, firstClose float64) []*binance.Kline {
	klines := make([]*binance.Kline, n)
	for i := 0; i < n; i++ {
		open := start.Add(time.Duration(i) * time.Hour)
		//nolint:exhaustruct // only the fields the feed reads
		klines[i] = &binance.Kline{
			OpenTime:  open.UnixMilli(),
			Close:     fmt.Sprintf("%.2f", firstClose+float64(i)),
			CloseTime: open.Add(time.Hour).UnixMilli() - 1,
		}
	}

	return klines
}

type BinanceClientTestSuite struct {
	suite.Suite
	clock *clock.Fake
	api   *mockBinanceAPI
	feed  *BinanceClient
}

func TestBinanceClientSuite(t *testing.T) {
	suite.Run(t, new(BinanceClientTestSuite))
}

func (suite *BinanceClientTestSuite) SetupTest() {
	suite.clock = clock.NewFake(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	suite.api = &mockBinanceAPI{}

	feed, err := NewBinanceClient(
		suite.api,
		marketdata.NewGate("binance", suite.clock, marketdata.DefaultGateInterval),
		suite.clock,
		map[string]string{"bitcoin": "btc"},
	)
	suite.Require().NoError(err)
	suite.feed = feed
}

func (suite *BinanceClientTestSuite) TestSymbol() {
	suite.Equal("BTCEUR", suite.feed.Symbol("bitcoin", "eur"))
	suite.Equal("SOLANAUSDT", suite.feed.Symbol("solana", "USDT"))
}

func (suite *BinanceClientTestSuite) TestCurrentPrice() {
	//nolint:exhaustruct // only the fields the feed reads
	suite.api.stats = &binance.PriceChangeStats{
		Symbol:             "BTCEUR",
		LastPrice:          "61000.50",
		PriceChangePercent: "-2.10",
	}

	quote, err := suite.feed.CurrentPrice(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR")
	suite.NoError(err)
	suite.Equal(61000.5, quote.Price)
	suite.Equal(-2.1, quote.Change.Unwrap())
	suite.Equal([]string{"BTCEUR"}, suite.api.symbols)
}

func (suite *BinanceClientTestSuite) TestCurrentPriceErrors() {
	suite.api.statsErr = errors.New("API rate limit exceeded")

	_, err := suite.feed.CurrentPrice(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR")
	suite.True(deskerrors.HasCode(err, deskerrors.ErrCodeMarketDataFetchFailed))

	suite.api.statsErr = nil
	//nolint:exhaustruct // only the fields the feed reads
	suite.api.stats = &binance.PriceChangeStats{LastPrice: "n/a"}

	_, err = suite.feed.CurrentPrice(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR")
	suite.True(deskerrors.HasCode(err, deskerrors.ErrCodeMarketDataParseFailed))

	_, err = suite.feed.CurrentPrice(context.Background(), types.FxPairIdentity{Base: "EUR", Quote: "USD"}, "EUR")
	suite.True(deskerrors.HasCode(err, deskerrors.ErrCodeInvalidInstrument))
}

func (suite *BinanceClientTestSuite) TestHistorySinglePage() {
	start := suite.clock.Now().Add(-48 * time.Hour)
	suite.api.klinesPerCall = [][]*binance.Kline{makeKlines(start, 48, 100)}

	samples, err := suite.feed.History(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR", 48*time.Hour)
	suite.NoError(err)
	suite.Len(samples, 48)
	suite.Equal(start, samples[0].Time)
	suite.Equal(100.0, samples[0].Price)
	suite.Equal(147.0, samples[47].Price)

	suite.Require().Len(suite.api.calls, 1)
	suite.Equal(klinesCall{
		symbol:   "BTCEUR",
		interval: "1h",
		start:    start.UnixMilli(),
		end:      suite.clock.Now().UnixMilli(),
		limit:    binanceKlineLimit,
	}, suite.api.calls[0])
}

func (suite *BinanceClientTestSuite) TestHistoryPaginates() {
	start := suite.clock.Now().Add(-90 * 24 * time.Hour)
	first := makeKlines(start, binanceKlineLimit, 1)
	second := makeKlines(start.Add(binanceKlineLimit*time.Hour), 5, 1001)
	suite.api.klinesPerCall = [][]*binance.Kline{first, second}

	samples, err := suite.feed.History(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR", 90*24*time.Hour)
	suite.NoError(err)
	suite.Len(samples, binanceKlineLimit+5)

	suite.Require().Len(suite.api.calls, 2)
	suite.Equal(first[len(first)-1].CloseTime+1, suite.api.calls[1].start)
}

func (suite *BinanceClientTestSuite) TestHistoryError() {
	suite.api.klinesErr = errors.New("API error")

	_, err := suite.feed.History(context.Background(), types.CryptoIdentity{ProviderID: "bitcoin"}, "EUR", time.Hour)
	suite.True(deskerrors.IsFetchError(err))
}

func (suite *BinanceClientTestSuite) TestConvertTimespanToBinanceInterval() {
	tests := []struct {
		name       string
		timespan   models.Timespan
		multiplier int
		want       string
		wantErr    bool
	}{
		{name: "minute", timespan: models.Minute, multiplier: 15, want: "15m"},
		{name: "hour", timespan: models.Hour, multiplier: 1, want: "1h"},
		{name: "day", timespan: models.Day, multiplier: 3, want: "3d"},
		{name: "week", timespan: models.Week, multiplier: 1, want: "1w"},
		{name: "two weeks", timespan: models.Week, multiplier: 2, wantErr: true},
		{name: "month", timespan: models.Month, multiplier: 1, want: "1M"},
		{name: "quarter", timespan: models.Quarter, multiplier: 1, wantErr: true},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			got, err := convertTimespanToBinanceInterval(tt.timespan, tt.multiplier)
			if tt.wantErr {
				suite.Error(err)

				return
			}

			suite.NoError(err)
			suite.Equal(tt.want, got)
		})
	}
}
