package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Logger   Logger   `mapstructure:"logger"`
	Journal  Journal  `mapstructure:"journal"`
	Search   Search   `mapstructure:"search"`
	Market   Market   `mapstructure:"market"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Journal holds journal-level defaults seeded into the store on first run.
type Journal struct {
	DefaultTags  []string `mapstructure:"default_tags"`
	DefaultTheme string   `mapstructure:"default_theme"`
}

// Search holds the configuration for cross-entity search.
type Search struct {
	DebounceMs int `mapstructure:"debounce_ms"`
}

// Market holds the configuration for the ticker price client.
type Market struct {
	Enabled         bool    `mapstructure:"enabled"`
	BaseURL         string  `mapstructure:"base_url"`
	RateLimit       float64 `mapstructure:"rate_limit"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
	RefreshInterval int     `mapstructure:"refresh_interval"`
	QuoteAsset      string  `mapstructure:"quote_asset"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "journal.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("journal.default_theme", "dark")
	viper.SetDefault("search.debounce_ms", 300)
	viper.SetDefault("market.base_url", "https://api.binance.com/api/v3")
	viper.SetDefault("market.rate_limit", 20)      // requests per second
	viper.SetDefault("market.rate_limit_burst", 5) // burst size
	viper.SetDefault("market.refresh_interval", 60)
	viper.SetDefault("market.quote_asset", "USDT")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
