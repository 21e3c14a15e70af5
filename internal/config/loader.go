package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rxtech-lab/trading-desk/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DESK_"

// Load reads the configuration file at path (YAML or TOML, by extension) on top of
// the defaults, applies DESK_* environment overrides and validates the result.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse YAML config %s", path)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse TOML config %s", path)
		}
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported config file extension %q (use .yaml, .yml or .toml)", filepath.Ext(path))
	}

	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(Duration); ok {
			return int64(d.Duration)
		}

		return nil
	}, Duration{})

	return v
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if c.MarketData.FxProvider == "polygon" && c.MarketData.Polygon.APIKey == "" {
		return errors.New(errors.ErrCodeInvalidConfiguration, "market_data.polygon.api_key is required when fx_provider is polygon")
	}

	return nil
}

// applyEnvOverrides reads well-known DESK_* environment variables and overwrites the
// corresponding Config fields when a variable is set and not empty.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.LogLevel, "LOG_LEVEL")
	setStr(&cfg.BaseCurrency, "BASE_CURRENCY")

	setStr(&cfg.Store.Driver, "STORE_DRIVER")
	setStr(&cfg.Store.Path, "STORE_PATH")

	setStr(&cfg.Server.Addr, "SERVER_ADDR")

	setDuration(&cfg.Schedule.PriceInterval, "PRICE_INTERVAL")
	setDuration(&cfg.Schedule.HistoryInterval, "HISTORY_INTERVAL")

	md := &cfg.MarketData
	setStr(&md.CryptoProvider, "CRYPTO_PROVIDER")
	setStr(&md.FxProvider, "FX_PROVIDER")
	setDuration(&md.GateInterval, "GATE_INTERVAL")
	setDuration(&md.HistoryMinInterval, "HISTORY_MIN_INTERVAL")
	setDuration(&md.RatesTTL, "RATES_TTL")
	setDuration(&md.CryptoLookback, "CRYPTO_LOOKBACK")
	setDuration(&md.FxLookback, "FX_LOOKBACK")
	setDuration(&md.Timeout, "TIMEOUT")
	setStr(&md.CoinGecko.BaseURL, "COINGECKO_URL")
	setStr(&md.ExchangeRate.BaseURL, "EXCHANGERATE_URL")
	setStr(&md.ExchangeRate.APIKey, "EXCHANGERATE_API_KEY")
	setStr(&md.Binance.BaseURL, "BINANCE_URL")
	setStr(&md.Polygon.APIKey, "POLYGON_API_KEY")

	setInt(&cfg.Indicators.MAPeriod, "MA_PERIOD")
	setInt(&cfg.Indicators.RSIPeriod, "RSI_PERIOD")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
