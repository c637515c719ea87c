package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	MySQL       MySQLConfig       `yaml:"mysql"`
	Redis       RedisConfig       `yaml:"redis"`
	BloomFilter BloomFilterConfig `yaml:"bloom_filter"`
	Snowflake   SnowflakeConfig   `yaml:"snowflake"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Quota       QuotaConfig       `yaml:"quota"`
	Cache       CacheConfig       `yaml:"cache"`
	Auth        AuthConfig        `yaml:"auth"`
	OpenGraph   OpenGraphConfig   `yaml:"opengraph"`
	Log         LogConfig         `yaml:"log"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port    int    `yaml:"port"`
	Mode    string `yaml:"mode"`
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig selects the gorm dialect. DSN wins over the mysql block.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // mysql | postgres | sqlite
	DSN    string `yaml:"dsn"`
	Debug  bool   `yaml:"debug"`
}

// MySQLConfig represents MySQL configuration
type MySQLConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// BloomFilterConfig represents Bloom filter configuration
type BloomFilterConfig struct {
	Capacity          uint    `yaml:"capacity"`
	FalsePositiveRate float64 `yaml:"false_positive_rate"`
}

// SnowflakeConfig represents Snowflake ID generator configuration
type SnowflakeConfig struct {
	DatacenterID int64 `yaml:"datacenter_id"`
	WorkerID     int64 `yaml:"worker_id"`
}

// RateLimitConfig configures the per-key burst limiter and the optional
// IP limiter in front of the redirect route
type RateLimitConfig struct {
	Backend string      `yaml:"backend"` // database | redis
	Burst   WindowLimit `yaml:"burst"`
	Edge    EdgeLimit   `yaml:"edge"`
}

type WindowLimit struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type EdgeLimit struct {
	Enabled bool          `yaml:"enabled"`
	Limit   int           `yaml:"limit"`
	Window  time.Duration `yaml:"window"`
}

// QuotaConfig is the default per-account link creation quota
type QuotaConfig struct {
	DefaultLimit int           `yaml:"default_limit"`
	Window       time.Duration `yaml:"window"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret   string   `yaml:"jwt_secret"`
	AdminEmails []string `yaml:"admin_emails"`
}

type OpenGraphConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	MaxBytes  int64         `yaml:"max_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DSN returns MySQL data source name
func (m *MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		m.Username, m.Password, m.Host, m.Port, m.Database)
}

// Addr returns Redis address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Default returns a configuration usable for local development
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:    8080,
			Mode:    "debug",
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{Driver: "mysql"},
		MySQL: MySQLConfig{
			Host:         "localhost",
			Port:         3306,
			Username:     "root",
			Database:     "shortlink",
			MaxIdleConns: 10,
			MaxOpenConns: 100,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     6379,
			PoolSize: 10,
		},
		BloomFilter: BloomFilterConfig{
			Capacity:          1_000_000,
			FalsePositiveRate: 0.001,
		},
		Snowflake: SnowflakeConfig{WorkerID: 1},
		RateLimit: RateLimitConfig{
			Backend: "database",
			Burst:   WindowLimit{Limit: 10, Window: 5 * time.Second},
			Edge:    EdgeLimit{Limit: 120, Window: time.Minute},
		},
		Quota: QuotaConfig{
			DefaultLimit: 25,
			Window:       5 * time.Hour,
		},
		Cache: CacheConfig{TTL: 10 * time.Minute},
		OpenGraph: OpenGraphConfig{
			Timeout:   3 * time.Second,
			UserAgent: "Mozilla/5.0 (compatible; shortlink-bot/1.0)",
			MaxBytes:  512 << 10,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load loads configuration from file. A missing file is not an error:
// defaults and the environment still apply.
func Load(configPath string) (*Config, error) {
	// .env never overrides variables already present in the environment
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Override with environment variables if present
func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("MYSQL_HOST"); v != "" {
		cfg.MySQL.Host = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		cfg.Redis.Host = v
	}
	if v := os.Getenv("BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	cfg.Server.BaseURL = strings.TrimRight(cfg.Server.BaseURL, "/")
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.Database.Driver != "mysql" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "database", "redis":
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Burst.Limit <= 0 || c.RateLimit.Burst.Window <= 0 {
		return errors.New("rate_limit.burst needs a positive limit and window")
	}
	if c.Quota.DefaultLimit <= 0 || c.Quota.Window <= 0 {
		return errors.New("quota needs a positive default_limit and window")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
	}
	return nil
}
