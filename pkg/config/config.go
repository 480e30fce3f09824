package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Debug       bool   `yaml:"debug"`
	Server      struct {
		Port                 int           `yaml:"port" default:"8000"`
		ReadTimeout          time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout         time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout      time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" default:"2s"`
		AllowOrigins         []string      `yaml:"allow_origins" default:"[\"*\"]"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Auth struct {
		JWTSecret            string        `yaml:"jwt_secret"`
		Issuer               string        `yaml:"issuer" default:"copilot"`
		AccessTokenTTL       time.Duration `yaml:"access_token_ttl" default:"5m"`
		RefreshTokenTTL      time.Duration `yaml:"refresh_token_ttl" default:"24h"`
		EmailVerificationTTL time.Duration `yaml:"email_verification_ttl" default:"72h"`
		PasswordResetTTL     time.Duration `yaml:"password_reset_ttl" default:"24h"`
		FrontendURL          string        `yaml:"frontend_url" default:"http://localhost:3000"`
		RateLimit            struct {
			Capacity     float64 `yaml:"capacity" default:"10"`
			RefillPerSec float64 `yaml:"refill_per_sec" default:"0.5"`
		} `yaml:"rate_limit"`
	} `yaml:"auth"`
	Database struct {
		Driver          string        `yaml:"driver" default:"postgres"`
		DSN             string        `yaml:"dsn"`
		MaxConns        int32         `yaml:"max_conns" default:"20"`
		MinConns        int32         `yaml:"min_conns" default:"2"`
		MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" default:"30s"`
		MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" default:"5m"`
	} `yaml:"database"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"copilot"`
	} `yaml:"redis"`
	Providers struct {
		Historical string `yaml:"historical" default:"yahoo"`
		Yahoo      struct {
			BaseURL   string        `yaml:"base_url" default:"https://query1.finance.yahoo.com/v8/finance/chart"`
			UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0"`
			Timeout   time.Duration `yaml:"timeout" default:"15s"`
		} `yaml:"yahoo"`
		Alpaca struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			Feed      string `yaml:"feed" default:"iex"`
		} `yaml:"alpaca"`
		AlphaVantage struct {
			BaseURL string        `yaml:"base_url" default:"https://www.alphavantage.co/query"`
			APIKey  string        `yaml:"api_key"`
			Horizon string        `yaml:"horizon" default:"12month"`
			Timeout time.Duration `yaml:"timeout" default:"10s"`
		} `yaml:"alpha_vantage"`
		SEC struct {
			TickersURL string        `yaml:"tickers_url" default:"https://www.sec.gov/files/company_tickers.json"`
			UserAgent  string        `yaml:"user_agent" default:"Copilot admin@example.com"`
			CacheTTL   time.Duration `yaml:"cache_ttl" default:"24h"`
			Timeout    time.Duration `yaml:"timeout" default:"15s"`
			MaxResults int           `yaml:"max_results"`
		} `yaml:"sec"`
	} `yaml:"providers"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"copilot"`
		Table            string        `yaml:"table" default:"daily_bars"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		// Archive writes bars fetched from an upstream provider into Table.
		Archive bool `yaml:"archive"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		MailTopic    string   `yaml:"mail_topic" default:"copilot.mail.outbox"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"10"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Mail struct {
		Backend string `yaml:"backend" default:"log"`
		From    string `yaml:"from" default:"no-reply@copilot.local"`
	} `yaml:"mail"`
	Indicators struct {
		Squeeze struct {
			BBLength  int     `yaml:"bb_length" default:"20"`
			BBStd     float64 `yaml:"bb_std" default:"2.0"`
			KCLength  int     `yaml:"kc_length" default:"20"`
			KCScalar  float64 `yaml:"kc_scalar" default:"1.5"`
			MomLength int     `yaml:"mom_length" default:"12"`
			MomSmooth int     `yaml:"mom_smooth" default:"6"`
		} `yaml:"squeeze"`
	} `yaml:"indicators"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, fills defaults and validates the result.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// A .env file in the working directory is loaded first when present.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	c.applyEnv(os.Getenv)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	if v := getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("DATABASE_URL"); v != "" {
		c.Database.DSN = v
	}
	if v := getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		c.Providers.AlphaVantage.APIKey = v
	}
	if v := getenv("APCA_API_KEY_ID"); v != "" {
		c.Providers.Alpaca.APIKey = v
	}
	if v := getenv("APCA_API_SECRET_KEY"); v != "" {
		c.Providers.Alpaca.APISecret = v
	}
	if v := getenv("HISTORICAL_PROVIDER"); v != "" {
		c.Providers.Historical = v
	}
	if v := getenv("SEC_USER_AGENT"); v != "" {
		c.Providers.SEC.UserAgent = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		host, port, ok := strings.Cut(v, ":")
		c.Redis.Enabled = true
		c.Redis.Host = host
		if ok {
			if p, err := strconv.Atoi(port); err == nil {
				c.Redis.Port = p
			}
		}
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.AccessTokenTTL <= 0 || c.Auth.RefreshTokenTTL <= 0 {
		return fmt.Errorf("auth token lifetimes must be positive")
	}
	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be 'postgres' or 'memory', got '%s'", c.Database.Driver)
	}
	switch c.Providers.Historical {
	case "yahoo", "clickhouse":
	case "alpaca":
		if c.Providers.Alpaca.APIKey == "" || c.Providers.Alpaca.APISecret == "" {
			return fmt.Errorf("providers.alpaca credentials are required for the alpaca provider")
		}
	default:
		return fmt.Errorf("providers.historical must be one of yahoo, alpaca, clickhouse, got '%s'", c.Providers.Historical)
	}
	switch c.Mail.Backend {
	case "log":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka.brokers cannot be empty for the kafka mail backend")
		}
	default:
		return fmt.Errorf("mail.backend must be 'log' or 'kafka', got '%s'", c.Mail.Backend)
	}
	return nil
}
