package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Data      DataConfig
	Report    ReportConfig
	Logger    LoggerConfig
	Cache     CacheConfig
	Reconcile ReconcileConfig
}

type ServerConfig struct {
	Address string
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit float64
}

type DataConfig struct {
	Transfers string
	Ranks     string
}

type ReportConfig struct {
	Dir string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type CacheConfig struct {
	// TTL of per-period aggregates; 0 keeps them until shutdown.
	TTL time.Duration
}

type ReconcileConfig struct {
	Tolerance float64
}

// Load reads config.yaml from the working directory (or path, when given)
// and lets ARMSDASH_* environment variables override it.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("data.transfers", "data/trade_register_processed.parquet")
	v.SetDefault("data.ranks", "data/ukraine_importer_rank_by_period.parquet")
	v.SetDefault("report.dir", "report")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("cache.ttl", "0s")
	v.SetDefault("reconcile.tolerance", 0.5)

	// Env
	v.SetEnvPrefix("ARMSDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Address:   v.GetString("server.address"),
			RateLimit: v.GetFloat64("server.rate_limit"),
		},
		Data: DataConfig{
			Transfers: v.GetString("data.transfers"),
			Ranks:     v.GetString("data.ranks"),
		},
		Report: ReportConfig{
			Dir: v.GetString("report.dir"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Cache: CacheConfig{
			TTL: v.GetDuration("cache.ttl"),
		},
		Reconcile: ReconcileConfig{
			Tolerance: v.GetFloat64("reconcile.tolerance"),
		},
	}

	if cfg.Reconcile.Tolerance < 0 {
		return nil, fmt.Errorf("reconcile.tolerance must not be negative, got %v", cfg.Reconcile.Tolerance)
	}
	return cfg, nil
}
