package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (PRICE_SOURCE=postgres 일 때만 필요)
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	Naver NaverConfig

	// Backtest
	Backtest BacktestConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL  string
	ChartURL string
}

// BacktestConfig holds the defaults of a backtest run
type BacktestConfig struct {
	DataDir        string   // 2주 리밸런싱 CSV 루트
	Signal         string   // 외국인단독 | 기관포함
	PriceMethod    string   // open | close | vwap
	Schemes        []string // equal, score
	Benchmarks     []string // "KS11:KOSPI" 형식, 첫 번째가 기준 벤치마크
	RiskFreeAnnual float64  // 국고채 3년물 기준
	PeriodsPerYear int      // 0 이면 실제 기간 수로 연율화
	Workers        int
	RequestsPerSec float64
	CacheTTL       time.Duration
	PriceCacheTTL  time.Duration
	CalendarFile   string // 비어 있으면 기본 2025 캘린더
	PriceSource    string // naver | postgres
}

// SourceDir returns the CSV directory of the configured signal
func (b BacktestConfig) SourceDir() string {
	return filepath.Join(b.DataDir, b.Signal)
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Naver: NaverConfig{
			BaseURL:  getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL: getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
		},

		Backtest: BacktestConfig{
			DataDir:        getEnv("BACKTEST_DATA_DIR", "data/file/rebal_2w_csv"),
			Signal:         getEnv("BACKTEST_SIGNAL", "외국인단독"),
			PriceMethod:    getEnv("BACKTEST_PRICE_METHOD", "close"),
			Schemes:        getEnvAsList("BACKTEST_SCHEMES", "equal,score"),
			Benchmarks:     getEnvAsList("BACKTEST_BENCHMARKS", "KS11:KOSPI,KS200:KOSPI 200,441800:KoAct 배당성장"),
			RiskFreeAnnual: getEnvAsFloat("BACKTEST_RISK_FREE", 0.03),
			PeriodsPerYear: getEnvAsInt("BACKTEST_PERIODS_PER_YEAR", 0),
			Workers:        getEnvAsInt("BACKTEST_WORKERS", 4),
			RequestsPerSec: getEnvAsFloat("BACKTEST_RPS", 10),
			CacheTTL:       getEnvAsDuration("BACKTEST_CACHE_TTL", "1h"),
			PriceCacheTTL:  getEnvAsDuration("PRICE_CACHE_TTL", "24h"),
			CalendarFile:   getEnv("BACKTEST_CALENDAR_FILE", ""),
			PriceSource:    getEnv("PRICE_SOURCE", "naver"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	switch c.Backtest.PriceSource {
	case "naver":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PRICE_SOURCE=postgres")
		}
	default:
		return fmt.Errorf("PRICE_SOURCE must be one of: naver, postgres")
	}

	if c.Backtest.Workers <= 0 {
		return fmt.Errorf("BACKTEST_WORKERS must be > 0")
	}
	if c.Backtest.RequestsPerSec <= 0 {
		return fmt.Errorf("BACKTEST_RPS must be > 0")
	}
	if len(c.Backtest.Benchmarks) == 0 {
		return fmt.Errorf("BACKTEST_BENCHMARKS must not be empty")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue string) []string {
	valueStr := getEnv(key, defaultValue)

	var items []string
	for _, part := range strings.Split(valueStr, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			items = append(items, part)
		}
	}
	return items
}
