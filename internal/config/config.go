package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the API reads from the environment.
type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	GinMode string `env:"GIN_MODE" envDefault:"debug"`
	LogDir  string `env:"LOG_DIR"`

	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Paystack PaystackConfig
	Flutter  FlutterwaveConfig
	SMTP     SMTPConfig
	Rewards  RewardsConfig

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	FrontendURL string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST,required"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER,required"`
	Password string `env:"POSTGRES_PASSWORD,required"`
	DB       string `env:"POSTGRES_DB,required"`
	SSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`
}

// DSN renders the libpq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DB, p.SSLMode)
}

type RedisConfig struct {
	// Empty address disables caching, webhook replay guard and the activity feed.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
}

type AuthConfig struct {
	JWTSecret  string        `env:"JWT_SECRET,required"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
}

type PaystackConfig struct {
	BaseURL   string `env:"PAYSTACK_BASE_URL" envDefault:"https://api.paystack.co"`
	SecretKey string `env:"PAYSTACK_SECRET_KEY"`
}

type FlutterwaveConfig struct {
	BaseURL    string `env:"FLUTTERWAVE_BASE_URL" envDefault:"https://api.flutterwave.com"`
	SecretKey  string `env:"FLUTTERWAVE_SECRET_KEY"`
	SecretHash string `env:"FLUTTERWAVE_SECRET_HASH"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"465"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASS"`
	Sender   string `env:"SMTP_SENDER" envDefault:"no-reply@bpi.local"`
}

// RewardsConfig carries the percentages and rates used by the splitter.
type RewardsConfig struct {
	BPTPrice         float64 `env:"BPT_PRICE" envDefault:"10"`
	CompanyPercent   float64 `env:"POOL_COMPANY_PERCENT" envDefault:"50"`
	ExecutivePercent float64 `env:"POOL_EXECUTIVE_PERCENT" envDefault:"30"`
	StrategicPercent float64 `env:"POOL_STRATEGIC_PERCENT" envDefault:"20"`
	DistributionHour int     `env:"DISTRIBUTION_HOUR" envDefault:"1"`
	MinWithdrawal    float64 `env:"MIN_WITHDRAWAL" envDefault:"1000"`
	VerifyRatePerMin float64 `env:"CLAIM_VERIFY_RATE_PER_MIN" envDefault:"10"`
	VerifyBurst      int     `env:"CLAIM_VERIFY_BURST" envDefault:"5"`
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	r := c.Rewards
	if total := r.CompanyPercent + r.ExecutivePercent + r.StrategicPercent; total != 100 {
		return fmt.Errorf("pool percents must sum to 100, got %v", total)
	}
	if r.BPTPrice <= 0 {
		return fmt.Errorf("BPT_PRICE must be positive, got %v", r.BPTPrice)
	}
	if r.DistributionHour < 0 || r.DistributionHour > 23 {
		return fmt.Errorf("DISTRIBUTION_HOUR must be 0-23, got %d", r.DistributionHour)
	}
	return nil
}

// Load reads an optional .env file and parses the environment.
func Load() (*Config, error) {
	// A missing .env is fine, variables may come from the process environment.
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
