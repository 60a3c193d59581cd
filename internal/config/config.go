package config

import (
	"errors"
	"os"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	DB        DBConfig        `yaml:"db"`
	Redis     RedisConfig     `yaml:"redis"`
	Cache     CacheConfig     `yaml:"cache"`
	JWT       JWTConfig       `yaml:"jwt"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr" default:":3000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" default:"5s"`
}

type DBConfig struct {
	Driver       string        `yaml:"driver" default:"mysql"`
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port"`
	Name         string        `yaml:"name" default:"task_manager"`
	User         string        `yaml:"user" default:"root"`
	Password     string        `yaml:"pass" default:"root"`
	SSLMode      string        `yaml:"sslmode" default:"disable"`
	MaxOpenConns int           `yaml:"max_open" default:"10"`
	MaxIdleConns int           `yaml:"max_idle" default:"5"`
	MaxLifetime  time.Duration `yaml:"max_lifetime" default:"30m"`
}

type RedisConfig struct {
	Addr            string               `yaml:"addr" default:"localhost:6379"`
	Password        string               `yaml:"pass" default:""`
	DB              int                  `yaml:"db" default:"0"`
	MaxRetries      int                  `yaml:"max_retries" default:"3"`
	MinRetryBackoff time.Duration        `yaml:"min_retry_backoff" default:"8ms"`
	MaxRetryBackoff time.Duration        `yaml:"max_retry_backoff" default:"512ms"`
	DialTimeout     time.Duration        `yaml:"dial_timeout" default:"2s"`
	ReadTimeout     time.Duration        `yaml:"read_timeout" default:"1s"`
	WriteTimeout    time.Duration        `yaml:"write_timeout" default:"1s"`
	ScanBatch       int64                `yaml:"scan_batch" default:"100"`
	Breaker         CircuitBreakerConfig `yaml:"breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests" default:"1"`
	Interval         time.Duration `yaml:"interval" default:"60s"`
	Timeout          time.Duration `yaml:"timeout" default:"10s"`
	FailureThreshold uint32        `yaml:"failure_threshold" default:"5"`
}

type CacheConfig struct {
	Disabled            bool          `yaml:"disabled"`
	AsyncInvalidation   bool          `yaml:"async_invalidation" default:"false"`
	InvalidationTimeout time.Duration `yaml:"invalidation_timeout" default:"3s"`
}

type JWTConfig struct {
	AccessTTL time.Duration `yaml:"access_ttl" default:"24h"`
	Secret    string        `yaml:"secret" default:"change-me-please-change-me-please-32"`
	Issuer    string        `yaml:"issuer" default:"task-manager"`
	ClockSkew time.Duration `yaml:"clock_skew" default:"60s"`
}

type AuthConfig struct {
	BcryptCost int `yaml:"bcrypt_cost" default:"10"`
}

type RateLimitConfig struct {
	LoginPerMin int `yaml:"login_per_min" default:"5"`
	UserPerMin  int `yaml:"user_per_min" default:"300"`
}

type LogConfig struct {
	LevelStr string `yaml:"level" default:"info"`
}

func LoadFromEnv() (Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/local.yaml"
	}
	return Load(path)
}

func New() (*Config, error) {
	cfg, err := LoadFromEnv()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := defaults.Set(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// PortOrDefault falls back to the driver default when db.port is empty.
func (c DBConfig) PortOrDefault() int {
	if c.Port > 0 {
		return c.Port
	}
	if c.Driver == DriverPostgres {
		return 5432
	}
	return 3306
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case DriverMySQL, DriverPostgres:
	default:
		return errors.New("db.driver must be mysql or postgres")
	}
	if c.Redis.MaxRetries < 0 || c.Redis.MaxRetries > 10 {
		return errors.New("redis.max_retries must be between 0 and 10")
	}
	if c.Redis.ScanBatch <= 0 {
		return errors.New("redis.scan_batch must be positive")
	}
	return nil
}
