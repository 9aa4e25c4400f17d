package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	JWT       JWTConfig       `yaml:"jwt"`
	Log       LogConfig       `yaml:"log"`
	AI        AIConfig        `yaml:"ai"`
	Payments  PaymentsConfig  `yaml:"payments"`
	Plans     PlansConfig     `yaml:"plans"`
	Referral  ReferralConfig  `yaml:"referral"`
	Risk      RiskConfig      `yaml:"risk"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Tracing   TracingConfig   `yaml:"tracing"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type JWTConfig struct {
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type LogConfig struct {
	Dir        string `yaml:"dir"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// AIConfig configures the OpenAI-compatible chat provider
type AIConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	// Requests per minute allowed per user
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`
	RateLimitBurst     int `yaml:"rate_limit_burst"`
}

type PaymentsConfig struct {
	PaystackBaseURL      string `yaml:"paystack_base_url"`
	PaystackSecretKey    string `yaml:"paystack_secret_key"`
	NOWPaymentsBaseURL   string `yaml:"nowpayments_base_url"`
	NOWPaymentsAPIKey    string `yaml:"nowpayments_api_key"`
	NOWPaymentsIPNSecret string `yaml:"nowpayments_ipn_secret"`
	// Public URL of this service, used for IPN callbacks
	PublicBaseURL string `yaml:"public_base_url"`
}

// PlansConfig holds plan prices in major currency units
type PlansConfig struct {
	ProPrice    string `yaml:"pro_price"`
	ElitePrice  string `yaml:"elite_price"`
	Currency    string `yaml:"currency"`
	PeriodDays  int    `yaml:"period_days"`
	ExpiryCheck int    `yaml:"expiry_check_seconds"`
}

type ReferralConfig struct {
	CommissionRate  string `yaml:"commission_rate"`
	MinPayoutAmount string `yaml:"min_payout_amount"`
}

type RiskConfig struct {
	DefaultMaxDailyLossR float64 `yaml:"default_max_daily_loss_r"`
	DefaultMaxTrades     int     `yaml:"default_max_trades"`
}

type AnalyticsConfig struct {
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Load loads configuration from file and environment variables
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()
	cfg.applyDefaults()

	return cfg, nil
}

func (c *Config) loadFromEnv() {
	// Server
	if v := os.Getenv("SERVER_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("SERVER_MODE"); v != "" {
		c.Server.Mode = v
	}

	// Database
	if v := os.Getenv("DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		c.Database.DBName = v
	}

	// Redis
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}

	// JWT
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.JWT.Secret = v
	}
	if v := os.Getenv("JWT_EXPIRE_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil {
			c.JWT.ExpireHours = hours
		}
	}

	// Log
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_DIR"); v != "" {
		c.Log.Dir = v
	}

	// AI
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.AI.BaseURL = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		c.AI.Model = v
	}

	// Payments
	if v := os.Getenv("PAYSTACK_SECRET_KEY"); v != "" {
		c.Payments.PaystackSecretKey = v
	}
	if v := os.Getenv("NOWPAYMENTS_API_KEY"); v != "" {
		c.Payments.NOWPaymentsAPIKey = v
	}
	if v := os.Getenv("NOWPAYMENTS_IPN_SECRET"); v != "" {
		c.Payments.NOWPaymentsIPNSecret = v
	}
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		c.Payments.PublicBaseURL = v
	}

	// Tracing
	if v := os.Getenv("TRACING_ENABLED"); v != "" {
		c.Tracing.Enabled = v == "true"
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Mode == "" {
		c.Server.Mode = "debug"
	}
	if c.JWT.ExpireHours == 0 {
		c.JWT.ExpireHours = 24
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB == 0 {
		c.Log.MaxSizeMB = 10
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 30
	}
	if c.Log.MaxAgeDays == 0 {
		c.Log.MaxAgeDays = 30
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://api.openai.com/v1"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gpt-4o-mini"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 800
	}
	if c.AI.TimeoutSeconds == 0 {
		c.AI.TimeoutSeconds = 60
	}
	if c.AI.RateLimitPerMinute == 0 {
		c.AI.RateLimitPerMinute = 10
	}
	if c.AI.RateLimitBurst == 0 {
		c.AI.RateLimitBurst = 3
	}
	if c.Payments.PaystackBaseURL == "" {
		c.Payments.PaystackBaseURL = "https://api.paystack.co"
	}
	if c.Payments.NOWPaymentsBaseURL == "" {
		c.Payments.NOWPaymentsBaseURL = "https://api.nowpayments.io/v1"
	}
	if c.Plans.ProPrice == "" {
		c.Plans.ProPrice = "19"
	}
	if c.Plans.ElitePrice == "" {
		c.Plans.ElitePrice = "49"
	}
	if c.Plans.Currency == "" {
		c.Plans.Currency = "USD"
	}
	if c.Plans.PeriodDays == 0 {
		c.Plans.PeriodDays = 30
	}
	if c.Plans.ExpiryCheck == 0 {
		c.Plans.ExpiryCheck = 300
	}
	if c.Referral.CommissionRate == "" {
		c.Referral.CommissionRate = "0.20"
	}
	if c.Referral.MinPayoutAmount == "" {
		c.Referral.MinPayoutAmount = "50"
	}
	if c.Risk.DefaultMaxDailyLossR == 0 {
		c.Risk.DefaultMaxDailyLossR = 3
	}
	if c.Risk.DefaultMaxTrades == 0 {
		c.Risk.DefaultMaxTrades = 5
	}
	if c.Analytics.CacheTTLSeconds == 0 {
		c.Analytics.CacheTTLSeconds = 300
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "edgelog"
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// CacheTTL returns the analytics cache lifetime
func (c *AnalyticsConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// Timeout returns the AI provider request timeout
func (c *AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
