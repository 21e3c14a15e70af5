package provider

import (
	"testing"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type ProviderTestSuite struct {
	suite.Suite
	gates *marketdata.Gates
}

func TestProviderSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

func (suite *ProviderTestSuite) SetupTest() {
	suite.gates = marketdata.NewGates(clock.NewFake(time.Now()), marketdata.DefaultGateInterval)
}

func (suite *ProviderTestSuite) TestSupportedProviders() {
	suite.Equal([]string{"binance", "coingecko", "exchangerate", "polygon"}, GetSupportedProviders())

	info, err := GetProviderInfo("polygon")
	suite.NoError(err)
	suite.True(info.RequiresAuth)
	suite.Equal(types.InstrumentKindFxPair, info.Kind)

	_, err = GetProviderInfo("yahoo")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))
}

func (suite *ProviderTestSuite) TestNewFeed() {
	tests := []struct {
		provider ProviderType
		apiKey   string
		kind     types.InstrumentKind
	}{
		{provider: ProviderCoinGecko, kind: types.InstrumentKindCrypto},
		{provider: ProviderExchangeRate, kind: types.InstrumentKindFxPair},
		{provider: ProviderBinance, kind: types.InstrumentKindCrypto},
		{provider: ProviderPolygon, apiKey: "key", kind: types.InstrumentKindFxPair},
	}

	for _, tt := range tests {
		suite.Run(string(tt.provider), func() {
			//nolint:exhaustruct // defaults for the rest
			feed, kind, err := NewFeed(tt.provider, Options{Gates: suite.gates, APIKey: tt.apiKey})
			suite.NoError(err)
			suite.NotNil(feed)
			suite.Equal(tt.kind, kind)
		})
	}
}

func (suite *ProviderTestSuite) TestNewFeedErrors() {
	//nolint:exhaustruct // defaults for the rest
	_, _, err := NewFeed("yahoo", Options{Gates: suite.gates})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidProvider))

	//nolint:exhaustruct // defaults for the rest
	_, _, err = NewFeed(ProviderPolygon, Options{Gates: suite.gates})
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	//nolint:exhaustruct // defaults for the rest
	_, _, err = NewFeed(ProviderCoinGecko, Options{})
	suite.Error(err)
}

func (suite *ProviderTestSuite) TestFeedsShareGatePerUpstream() {
	suite.Same(suite.gates.Get(string(ProviderCoinGecko)), suite.gates.Get("coingecko"))
}
