// Package config loads the desk configuration from a YAML or TOML file, a .env file
// and DESK_* environment variables.
package config

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so it decodes from strings like "30s" or "1200ms"
// in YAML, TOML and JSON.
type Duration struct {
	time.Duration
}

// D is shorthand for building a Duration.
func D(d time.Duration) Duration {
	return Duration{Duration: d}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))

	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

type Config struct {
	LogLevel     string           `yaml:"log_level" toml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"title=Log Level,enum=debug,enum=info,enum=warn,enum=error,default=info"`
	BaseCurrency string           `yaml:"base_currency" toml:"base_currency" json:"base_currency" validate:"len=3,alpha" jsonschema:"title=Base Currency,description=Currency used when no base was persisted yet,default=EUR"`
	Store        StoreConfig      `yaml:"store" toml:"store" json:"store"`
	Server       ServerConfig     `yaml:"server" toml:"server" json:"server"`
	Schedule     ScheduleConfig   `yaml:"schedule" toml:"schedule" json:"schedule"`
	MarketData   MarketDataConfig `yaml:"market_data" toml:"market_data" json:"market_data"`
	Indicators   IndicatorConfig  `yaml:"indicators" toml:"indicators" json:"indicators"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" toml:"driver" json:"driver" validate:"oneof=file duckdb memory" jsonschema:"title=Store Driver,enum=file,enum=duckdb,enum=memory,default=file"`
	// Path is a directory for the file driver and a database file for duckdb.
	Path string `yaml:"path" toml:"path" json:"path" validate:"required_unless=Driver memory" jsonschema:"title=Store Path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr" validate:"required,hostname_port" jsonschema:"title=Listen Address,default=127.0.0.1:8080"`
}

type ScheduleConfig struct {
	// PriceInterval paces the current price refresh of every instrument.
	PriceInterval Duration `yaml:"price_interval" toml:"price_interval" json:"price_interval" validate:"gt=0" jsonschema:"title=Price Refresh Interval"`
	// HistoryInterval paces the history refresh of the active instrument.
	HistoryInterval Duration `yaml:"history_interval" toml:"history_interval" json:"history_interval" validate:"gt=0" jsonschema:"title=Active History Refresh Interval"`
}

type MarketDataConfig struct {
	CryptoProvider     string         `yaml:"crypto_provider" toml:"crypto_provider" json:"crypto_provider" validate:"oneof=coingecko binance" jsonschema:"title=Crypto Provider,enum=coingecko,enum=binance,default=coingecko"`
	FxProvider         string         `yaml:"fx_provider" toml:"fx_provider" json:"fx_provider" validate:"oneof=exchangerate polygon" jsonschema:"title=FX Provider,enum=exchangerate,enum=polygon,default=exchangerate"`
	GateInterval       Duration       `yaml:"gate_interval" toml:"gate_interval" json:"gate_interval" validate:"gte=0" jsonschema:"title=Gate Spacing,description=Minimum spacing between two calls to the same upstream"`
	HistoryMinInterval Duration       `yaml:"history_min_interval" toml:"history_min_interval" json:"history_min_interval" validate:"gte=0" jsonschema:"title=History Minimum Interval"`
	RatesTTL           Duration       `yaml:"rates_ttl" toml:"rates_ttl" json:"rates_ttl" validate:"gte=0" jsonschema:"title=FX Rates TTL"`
	CryptoLookback     Duration       `yaml:"crypto_lookback" toml:"crypto_lookback" json:"crypto_lookback" validate:"gt=0" jsonschema:"title=Crypto History Lookback"`
	FxLookback         Duration       `yaml:"fx_lookback" toml:"fx_lookback" json:"fx_lookback" validate:"gt=0" jsonschema:"title=FX History Lookback"`
	Timeout            Duration       `yaml:"timeout" toml:"timeout" json:"timeout" validate:"gt=0" jsonschema:"title=Request Timeout"`
	CoinGecko          EndpointConfig `yaml:"coingecko" toml:"coingecko" json:"coingecko"`
	ExchangeRate       EndpointConfig `yaml:"exchangerate" toml:"exchangerate" json:"exchangerate"`
	Binance            BinanceConfig  `yaml:"binance" toml:"binance" json:"binance"`
	Polygon            EndpointConfig `yaml:"polygon" toml:"polygon" json:"polygon"`
}

type EndpointConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url" json:"base_url" validate:"omitempty,url" jsonschema:"title=Base URL"`
	APIKey  string `yaml:"api_key" toml:"api_key" json:"api_key" jsonschema:"title=API Key"`
}

type BinanceConfig struct {
	BaseURL string `yaml:"base_url" toml:"base_url" json:"base_url" validate:"omitempty,url" jsonschema:"title=Base URL"`
	// Assets maps provider ids such as "bitcoin" to Binance asset codes such as "BTC".
	Assets map[string]string `yaml:"assets" toml:"assets" json:"assets" jsonschema:"title=Asset Codes"`
}

type IndicatorConfig struct {
	MAPeriod  int `yaml:"ma_period" toml:"ma_period" json:"ma_period" validate:"gt=0" jsonschema:"title=SMA Period,minimum=1,default=14"`
	RSIPeriod int `yaml:"rsi_period" toml:"rsi_period" json:"rsi_period" validate:"gt=0" jsonschema:"title=RSI Period,minimum=1,default=14"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		LogLevel:     "info",
		BaseCurrency: "EUR",
		Store: StoreConfig{
			Driver: "file",
			Path:   ".desk",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
		Schedule: ScheduleConfig{
			PriceInterval:   D(30 * time.Second),
			HistoryInterval: D(40 * time.Second),
		},
		MarketData: MarketDataConfig{
			CryptoProvider:     "coingecko",
			FxProvider:         "exchangerate",
			GateInterval:       D(1200 * time.Millisecond),
			HistoryMinInterval: D(60 * time.Second),
			RatesTTL:           D(60 * time.Second),
			CryptoLookback:     D(90 * 24 * time.Hour),
			FxLookback:         D(120 * 24 * time.Hour),
			Timeout:            D(15 * time.Second),
			CoinGecko:          EndpointConfig{BaseURL: "", APIKey: ""},
			ExchangeRate:       EndpointConfig{BaseURL: "", APIKey: ""},
			Binance: BinanceConfig{
				BaseURL: "",
				Assets: map[string]string{
					"bitcoin":  "BTC",
					"ethereum": "ETH",
					"solana":   "SOL",
					"ripple":   "XRP",
					"cardano":  "ADA",
					"dogecoin": "DOGE",
				},
			},
			Polygon: EndpointConfig{BaseURL: "", APIKey: ""},
		},
		Indicators: IndicatorConfig{
			MAPeriod:  14,
			RSIPeriod: 14,
		},
	}
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(Duration{}) {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
					Description: "Go duration such as 30s or 1200ms",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "trading-desk-config"
	schema.Description = "Configuration schema for the trading desk"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
