// Package config loads runtime configuration from an optional YAML file
// with environment-variable overrides. Every knob has a default, so the
// monitor runs with no config file at all.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration.
type Config struct {
	Monitor MonitorConfig `mapstructure:"monitor"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Sources SourcesConfig `mapstructure:"sources"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Sink    SinkConfig    `mapstructure:"sink"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Trade   TradeConfig   `mapstructure:"trade"`
}

// MonitorConfig controls the check cycle and divergence detection.
type MonitorConfig struct {
	CheckInterval    time.Duration `mapstructure:"check_interval"`
	MinCheckInterval time.Duration `mapstructure:"min_check_interval"`
	InterSourceDelay time.Duration `mapstructure:"inter_source_delay"`
	MinDivergencePct float64       `mapstructure:"min_divergence_pct"`
	MaxErrors        int           `mapstructure:"max_errors"`
	RestartCooldown  time.Duration `mapstructure:"restart_cooldown"`
	PostTradeDelay   time.Duration `mapstructure:"post_trade_delay"`
	ReferenceSymbol  string        `mapstructure:"reference_symbol"`
}

// FetchConfig controls the shared HTTP client.
type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	RateLimit  float64       `mapstructure:"rate_limit"`
	RateBurst  int           `mapstructure:"rate_burst"`
}

// SourcesConfig holds the price API endpoints. Empty values fall back to
// the public endpoints.
type SourcesConfig struct {
	DexScreenerEndpoint string `mapstructure:"dexscreener_endpoint"`
	JupiterEndpoint     string `mapstructure:"jupiter_endpoint"`
}

// CatalogConfig points at the token catalog file.
type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

// SinkConfig controls the opportunity log.
type SinkConfig struct {
	Path string `mapstructure:"path"`
}

// LogConfig controls zap output and rotation.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // console or json
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// TradeConfig controls the placeholder trade initiator. Disabled by
// default; enabling it requires a keypair and both destinations.
type TradeConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPCEndpoint     string        `mapstructure:"rpc_endpoint"`
	WSEndpoint      string        `mapstructure:"ws_endpoint"`
	SecretKey       string        `mapstructure:"secret_key"`
	BuyDestination  string        `mapstructure:"buy_destination"`
	SellDestination string        `mapstructure:"sell_destination"`
	Lamports        uint64        `mapstructure:"lamports"`
	ConfirmTimeout  time.Duration `mapstructure:"confirm_timeout"`
	Confirm         bool          `mapstructure:"confirm"`
}

// Load reads configuration from the given file, or from config.yaml in
// the working directory and ./configs when path is empty. A missing file
// is not an error; defaults and environment variables still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v)

	v.SetEnvPrefix("ARBMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("monitor.check_interval", time.Minute)
	v.SetDefault("monitor.min_check_interval", time.Duration(0))
	v.SetDefault("monitor.inter_source_delay", 100*time.Millisecond)
	v.SetDefault("monitor.min_divergence_pct", 1.0)
	v.SetDefault("monitor.max_errors", 5)
	v.SetDefault("monitor.restart_cooldown", 10*time.Second)
	v.SetDefault("monitor.post_trade_delay", 2*time.Second)
	v.SetDefault("monitor.reference_symbol", "SOL")
	v.SetDefault("fetch.timeout", 5*time.Second)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.rate_limit", 5.0)
	v.SetDefault("fetch.rate_burst", 5)
	v.SetDefault("sources.dexscreener_endpoint", "")
	v.SetDefault("sources.jupiter_endpoint", "")
	v.SetDefault("catalog.path", "sol_pairs.json")
	v.SetDefault("sink.path", "arbitrage_opportunities.csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.compress", false)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("trade.enabled", false)
	v.SetDefault("trade.rpc_endpoint", "https://api.mainnet-beta.solana.com")
	v.SetDefault("trade.ws_endpoint", "wss://api.mainnet-beta.solana.com")
	v.SetDefault("trade.lamports", 5000)
	v.SetDefault("trade.confirm_timeout", 30*time.Second)
	v.SetDefault("trade.confirm", false)
}
