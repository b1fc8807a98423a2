// Package config loads application configuration from environment
// variables, with optional .env file support for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"trendlab-enginev1/internal/laguerre"
	"trendlab-enginev1/internal/model"
	"trendlab-enginev1/internal/signal"
	"trendlab-enginev1/internal/smooth"
	"trendlab-enginev1/internal/volstop"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Infrastructure
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SQLitePath    string
	MetricsAddr   string

	// Subscription (comma-separated symbols, e.g. "EURUSD,GBPUSD")
	Symbols string

	// Dynamic timeframes (comma-separated seconds, e.g. "300,900,3600")
	EnabledTFs string

	// Engine timeframes
	BaseTF   int // timeframe the engines run on (seconds)
	HigherTF int // filter resolution timeframe; <= BaseTF means "current"

	// Laguerre filter
	FilterLength       int
	FilterOrder        int
	FilterPrice        string
	Adaptive           bool
	AdaptiveSmooth     int
	AdaptiveSmoothMode string
	MinGamma           float64
	MaxGamma           float64

	// Triple power stop
	ATRLength      int
	BaseMultiplier float64
	Multiplier1    int
	Multiplier2    int
	Multiplier3    int
	SmoothPeriod   int

	// Checkpointing
	SnapshotInterval int // seconds between engine snapshots; 0 disables
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[config] loaded .env file")
	}

	return &Config{
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		Symbols: getEnv("SYMBOLS", "EURUSD"),

		EnabledTFs: getEnv("ENABLED_TFS", "300,900,3600"),

		BaseTF:   getEnvInt("BASE_TF", 300),
		HigherTF: getEnvInt("HIGHER_TF", 0),

		FilterLength:       getEnvInt("FILTER_LENGTH", 10),
		FilterOrder:        getEnvInt("FILTER_ORDER", 4),
		FilterPrice:        getEnv("FILTER_PRICE", "close"),
		Adaptive:           getEnvBool("ADAPTIVE", true),
		AdaptiveSmooth:     getEnvInt("ADAPTIVE_SMOOTH", 5),
		AdaptiveSmoothMode: getEnv("ADAPTIVE_SMOOTH_MODE", "median"),
		MinGamma:           getEnvFloat("MIN_GAMMA", 0.01),
		MaxGamma:           getEnvFloat("MAX_GAMMA", 0.99),

		ATRLength:      getEnvInt("ATR_LENGTH", 14),
		BaseMultiplier: getEnvFloat("BASE_ATR_MULTIPLIER", 2.0),
		Multiplier1:    getEnvInt("MULTIPLIER_1", 1),
		Multiplier2:    getEnvInt("MULTIPLIER_2", 2),
		Multiplier3:    getEnvInt("MULTIPLIER_3", 3),
		SmoothPeriod:   getEnvInt("SMOOTH_PERIOD", 10),

		SnapshotInterval: getEnvInt("SNAPSHOT_INTERVAL", 60),
	}
}

// FilterConfig builds the Laguerre filter configuration.
func (c *Config) FilterConfig() (laguerre.Config, error) {
	price, err := model.ParsePriceMode(c.FilterPrice)
	if err != nil {
		return laguerre.Config{}, err
	}
	mode, err := smooth.ParseMode(c.AdaptiveSmoothMode)
	if err != nil {
		return laguerre.Config{}, err
	}
	cfg := laguerre.Config{
		Length:             c.FilterLength,
		Order:              c.FilterOrder,
		Price:              price,
		Adaptive:           c.Adaptive,
		AdaptiveSmooth:     c.AdaptiveSmooth,
		AdaptiveSmoothMode: mode,
		MinGamma:           c.MinGamma,
		MaxGamma:           c.MaxGamma,
	}
	return cfg, cfg.Validate()
}

// StopConfig builds the triple-power-stop configuration.
func (c *Config) StopConfig() volstop.Config {
	return volstop.Config{
		ATRLength:      c.ATRLength,
		BaseMultiplier: c.BaseMultiplier,
		Multipliers:    [3]int{c.Multiplier1, c.Multiplier2, c.Multiplier3},
		SmoothPeriod:   c.SmoothPeriod,
		BaseTF:         c.BaseTF,
	}
}

// EngineConfig assembles the full signal engine configuration.
func (c *Config) EngineConfig() (signal.EngineConfig, error) {
	fcfg, err := c.FilterConfig()
	if err != nil {
		return signal.EngineConfig{}, err
	}
	return signal.EngineConfig{
		BaseTF:   c.BaseTF,
		Filter:   fcfg,
		HigherTF: c.HigherTF,
		Stop:     c.StopConfig(),
	}, nil
}

// ParseTFs parses the EnabledTFs string into a slice of timeframe durations in seconds.
func (c *Config) ParseTFs() []int {
	parts := strings.Split(c.EnabledTFs, ",")
	tfs := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 {
			log.Printf("[config] skipping invalid TF value: %q", p)
			continue
		}
		tfs = append(tfs, n)
	}
	return tfs
}

// ParseSymbols parses the Symbols string into a slice.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			symbols = append(symbols, p)
		}
	}
	return symbols
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %g", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("[config] invalid bool for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return b
}
