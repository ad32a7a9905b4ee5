// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        // e.g. "8080"
	Env          string        // "development" | "production"
	ReadTimeout  time.Duration // default 10s
	WriteTimeout time.Duration // default 10s
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings for the auth/HTTP boundary scaffold.
// The CORE never inspects tokens (§1 Non-goals); this only configures the
// middleware that extracts a pre-validated caller identity.
type JWTConfig struct {
	AccessSecret string        // must be set
	AccessTTL    time.Duration // default 15m
}

// OddsConfig holds the volatility thresholds used by the odds actor's
// auto-suspension logic (§4.3, §9 Open Question: thresholds are a design
// choice exposed as configuration).
type OddsConfig struct {
	VolatilityWindow time.Duration // rolling window for the score, default 5m
	MediumThreshold  float64       // default 10
	HighThreshold    float64       // default 25
	ExtremeThreshold float64       // default 50
	MinDecimalOdds   float64       // default 1.01
}

// CashoutConfig holds the early-cashout discount curve parameters (§4.4,
// §9 Open Question).
type CashoutConfig struct {
	DiscountRate float64 // default 0.95
	FloorAmount  float64 // minimum payout, default 0.01
}

// RateLimitConfig holds the HTTP boundary's token-bucket settings (§6: 429
// with Retry-After).
type RateLimitConfig struct {
	BetRPS     int // requests/sec per IP for bet endpoints, default 30
	DefaultRPS int // requests/sec per IP for everything else, default 50
}

// EventBusConfig holds the Redis connection used for fire-and-forget domain
// event publication (§6 topic convention).
type EventBusConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	Odds      OddsConfig
	Cashout   CashoutConfig
	RateLimit RateLimitConfig
	EventBus  EventBusConfig
	Currency  string // default currency tag, default "USD"
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns every validation error encountered, combined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}

	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Odds.MediumThreshold <= 0 || c.Odds.HighThreshold <= c.Odds.MediumThreshold || c.Odds.ExtremeThreshold <= c.Odds.HighThreshold {
		errs = append(errs, fmt.Errorf(
			"ODDS volatility thresholds must be strictly increasing, got medium=%.2f high=%.2f extreme=%.2f",
			c.Odds.MediumThreshold, c.Odds.HighThreshold, c.Odds.ExtremeThreshold,
		))
	}
	if c.Odds.MinDecimalOdds < 1.0 {
		errs = append(errs, fmt.Errorf("ODDS_MIN_DECIMAL must be >= 1.0, got %.4f", c.Odds.MinDecimalOdds))
	}

	if c.Cashout.DiscountRate <= 0 || c.Cashout.DiscountRate >= 1 {
		errs = append(errs, fmt.Errorf("CASHOUT_DISCOUNT_RATE must be between 0 and 1 (exclusive), got %.4f", c.Cashout.DiscountRate))
	}
	if c.Cashout.FloorAmount < 0 {
		errs = append(errs, fmt.Errorf("CASHOUT_FLOOR_AMOUNT must be non-negative, got %.4f", c.Cashout.FloorAmount))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:         getEnv("SERVER_PORT", "8080"),
		Env:          getEnv("ENVIRONMENT", "development"),
		ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "sportsbook"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTTL:    getDuration("JWT_ACCESS_TTL", 15*time.Minute),
	}

	// ── Odds / volatility ─────────────────────────────────────────────────────
	medium, err := getFloat("ODDS_VOLATILITY_MEDIUM", 10)
	if err != nil {
		return nil, fmt.Errorf("ODDS_VOLATILITY_MEDIUM: %w", err)
	}
	high, err := getFloat("ODDS_VOLATILITY_HIGH", 25)
	if err != nil {
		return nil, fmt.Errorf("ODDS_VOLATILITY_HIGH: %w", err)
	}
	extreme, err := getFloat("ODDS_VOLATILITY_EXTREME", 50)
	if err != nil {
		return nil, fmt.Errorf("ODDS_VOLATILITY_EXTREME: %w", err)
	}
	minOdds, err := getFloat("ODDS_MIN_DECIMAL", 1.01)
	if err != nil {
		return nil, fmt.Errorf("ODDS_MIN_DECIMAL: %w", err)
	}
	cfg.Odds = OddsConfig{
		VolatilityWindow: getDuration("ODDS_VOLATILITY_WINDOW", 5*time.Minute),
		MediumThreshold:  medium,
		HighThreshold:    high,
		ExtremeThreshold: extreme,
		MinDecimalOdds:   minOdds,
	}

	// ── Cashout ───────────────────────────────────────────────────────────────
	discount, err := getFloat("CASHOUT_DISCOUNT_RATE", 0.95)
	if err != nil {
		return nil, fmt.Errorf("CASHOUT_DISCOUNT_RATE: %w", err)
	}
	floor, err := getFloat("CASHOUT_FLOOR_AMOUNT", 0.01)
	if err != nil {
		return nil, fmt.Errorf("CASHOUT_FLOOR_AMOUNT: %w", err)
	}
	cfg.Cashout = CashoutConfig{
		DiscountRate: discount,
		FloorAmount:  floor,
	}

	// ── Rate limiting ─────────────────────────────────────────────────────────
	betRPS, err := getInt("RATE_LIMIT_BET_RPS", 30)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BET_RPS: %w", err)
	}
	defaultRPS, err := getInt("RATE_LIMIT_DEFAULT_RPS", 50)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_DEFAULT_RPS: %w", err)
	}
	cfg.RateLimit = RateLimitConfig{
		BetRPS:     betRPS,
		DefaultRPS: defaultRPS,
	}

	// ── Event bus ─────────────────────────────────────────────────────────────
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	cfg.EventBus = EventBusConfig{
		RedisAddr:     getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,
	}

	cfg.Currency = getEnv("DEFAULT_CURRENCY", "USD")

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float %q", v)
	}
	return f, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
