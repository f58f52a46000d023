// Package config loads the service configuration from environment
// variables with production-safe defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradege/stek-sub008/internal/games"
)

// Config holds all service configuration.
type Config struct {
	// HTTP server
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// Stores
	DatabaseURL string
	RedisAddr   string
	RedisDB     int

	// Game economics
	DefaultHouseEdge float64
	HouseEdges       map[string]float64 // per-game overrides
	MaxMultiplier    decimal.Decimal
	MinStake         decimal.Decimal
	MaxStake         decimal.Decimal
	Currencies       []string

	// Session orchestration
	SessionTTL time.Duration
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("CASINO_PORT", "8080"),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		DefaultHouseEdge: 0.04,
		HouseEdges:       make(map[string]float64),
		MaxMultiplier:    games.DefaultMaxMultiplier,
		MinStake:         decimal.RequireFromString("0.1"),
		MaxStake:         decimal.NewFromInt(10000),
		Currencies:       []string{"USDT"},

		SessionTTL: 24 * time.Hour,
	}

	if v := os.Getenv("CASINO_HOUSE_EDGE"); v != "" {
		edge, err := strconv.ParseFloat(v, 64)
		if err != nil || edge < 0 || edge >= 1 {
			return nil, fmt.Errorf("CASINO_HOUSE_EDGE must be a number in [0, 1), got %q", v)
		}
		cfg.DefaultHouseEdge = edge
	}

	// Per-game overrides: CASINO_HOUSE_EDGE_DICE=0.02 etc.
	for _, game := range games.List() {
		key := "CASINO_HOUSE_EDGE_" + strings.ToUpper(game)
		if v := os.Getenv(key); v != "" {
			edge, err := strconv.ParseFloat(v, 64)
			if err != nil || edge < 0 || edge >= 1 {
				return nil, fmt.Errorf("%s must be a number in [0, 1), got %q", key, v)
			}
			cfg.HouseEdges[game] = edge
		}
	}

	if v := os.Getenv("CASINO_MIN_STAKE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("CASINO_MIN_STAKE must be a positive decimal, got %q", v)
		}
		cfg.MinStake = d
	}
	if v := os.Getenv("CASINO_MAX_STAKE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || !d.IsPositive() {
			return nil, fmt.Errorf("CASINO_MAX_STAKE must be a positive decimal, got %q", v)
		}
		cfg.MaxStake = d
	}
	if v := os.Getenv("CASINO_CURRENCIES"); v != "" {
		cfg.Currencies = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer, got %q", v)
		}
		cfg.RedisDB = n
	}

	return cfg, nil
}

// HouseEdge returns the edge for a game, falling back to the default.
func (c *Config) HouseEdge(game string) float64 {
	if edge, ok := c.HouseEdges[game]; ok {
		return edge
	}
	return c.DefaultHouseEdge
}

// GameConfig assembles the evaluation config for a game.
func (c *Config) GameConfig(game string) games.Config {
	return games.Config{
		HouseEdge:     c.HouseEdge(game),
		MaxMultiplier: c.MaxMultiplier,
		Paytable:      games.DefaultPaytable(),
	}
}

// SupportsCurrency reports whether the currency is enabled.
func (c *Config) SupportsCurrency(currency string) bool {
	for _, cur := range c.Currencies {
		if cur == currency {
			return true
		}
	}
	return false
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
