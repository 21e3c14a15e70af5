package provider

import (
	"fmt"
	"sort"
	"time"

	"github.com/rxtech-lab/trading-desk/internal/clock"
	"github.com/rxtech-lab/trading-desk/internal/marketdata"
	"github.com/rxtech-lab/trading-desk/internal/types"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderCoinGecko    ProviderType = "coingecko"
	ProviderExchangeRate ProviderType = "exchangerate"
	ProviderBinance      ProviderType = "binance"
	ProviderPolygon      ProviderType = "polygon"
)

// DefaultTimeout bounds a single upstream request.
const DefaultTimeout = 15 * time.Second

// ProviderInfo contains metadata about a market data provider.
type ProviderInfo struct {
	Name         string               `json:"name"`
	DisplayName  string               `json:"displayName"`
	Description  string               `json:"description"`
	Kind         types.InstrumentKind `json:"kind"`
	RequiresAuth bool                 `json:"requiresAuth"`
}

// providerRegistry holds metadata about all supported providers.
var providerRegistry = map[ProviderType]ProviderInfo{
	ProviderCoinGecko: {
		Name:         string(ProviderCoinGecko),
		DisplayName:  "CoinGecko",
		Description:  "Crypto spot prices, 24h change and hourly market charts",
		Kind:         types.InstrumentKindCrypto,
		RequiresAuth: false,
	},
	ProviderExchangeRate: {
		Name:         string(ProviderExchangeRate),
		DisplayName:  "exchangerate.host",
		Description:  "Daily foreign exchange reference rates",
		Kind:         types.InstrumentKindFxPair,
		RequiresAuth: false,
	},
	ProviderBinance: {
		Name:         string(ProviderBinance),
		DisplayName:  "Binance",
		Description:  "Cryptocurrency exchange tickers and hourly klines",
		Kind:         types.InstrumentKindCrypto,
		RequiresAuth: false,
	},
	ProviderPolygon: {
		Name:         string(ProviderPolygon),
		DisplayName:  "Polygon.io",
		Description:  "Forex aggregates for currency pairs",
		Kind:         types.InstrumentKindFxPair,
		RequiresAuth: true,
	},
}

// GetSupportedProviders returns the names of all supported providers in lexical order.
func GetSupportedProviders() []string {
	providers := make([]string, 0, len(providerRegistry))
	for providerType := range providerRegistry {
		providers = append(providers, string(providerType))
	}

	sort.Strings(providers)

	return providers
}

// GetProviderInfo returns metadata for a specific provider.
func GetProviderInfo(providerName string) (ProviderInfo, error) {
	info, exists := providerRegistry[ProviderType(providerName)]
	if !exists {
		return ProviderInfo{}, errors.Newf(errors.ErrCodeInvalidProvider, "unsupported provider: %s", providerName)
	}

	return info, nil
}

// Options carries what the feeds need to reach their upstream.
type Options struct {
	// Gates hands out the per-upstream rate gate; each provider uses its own name.
	Gates *marketdata.Gates
	Clock clock.Clock
	// BaseURL overrides the upstream endpoint.
	BaseURL string
	APIKey  string
	// RatesTTL is how long exchangerate.host latest rates are reused.
	RatesTTL time.Duration
	// Assets maps crypto provider ids to Binance asset codes.
	Assets  map[string]string
	Timeout time.Duration
}

// NewFeed creates a market data feed based on the provider type. The returned kind
// is the instrument kind the feed serves.
func NewFeed(providerType ProviderType, opts Options) (marketdata.Feed, types.InstrumentKind, error) {
	info, err := GetProviderInfo(string(providerType))
	if err != nil {
		return nil, "", err
	}

	if opts.Gates == nil {
		return nil, "", fmt.Errorf("provider %s requires a gate set", providerType)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	gate := opts.Gates.Get(string(providerType))

	switch providerType {
	case ProviderCoinGecko:
		return NewCoinGeckoClient(opts.BaseURL, gate, timeout), info.Kind, nil
	case ProviderExchangeRate:
		return NewExchangeRateClient(ExchangeRateOptions{
			BaseURL: opts.BaseURL,
			APIKey:  opts.APIKey,
			Gate:    gate,
			Clock:   opts.Clock,
			TTL:     opts.RatesTTL,
			Timeout: timeout,
		}), info.Kind, nil
	case ProviderBinance:
		client, err := NewBinanceClient(NewBinanceAPI(opts.BaseURL), gate, opts.Clock, opts.Assets)
		if err != nil {
			return nil, "", err
		}

		return client, info.Kind, nil
	case ProviderPolygon:
		client, err := NewPolygonClient(opts.APIKey, gate, opts.Clock)
		if err != nil {
			return nil, "", err
		}

		return client, info.Kind, nil
	default:
		return nil, "", errors.Newf(errors.ErrCodeInvalidProvider, "unsupported market data provider: %s", providerType)
	}
}
