package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server and the admin tools read at startup.
type Config struct {
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogFile     string `mapstructure:"LOG_FILE"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTTTLHours int    `mapstructure:"JWT_TTL_HOURS"`
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	EtherscanAPIKey    string `mapstructure:"ETHERSCAN_API_KEY"`
	EtherscanBaseURL   string `mapstructure:"ETHERSCAN_BASE_URL"`
	AlchemyAPIKey      string `mapstructure:"ALCHEMY_API_KEY"`
	DefiLlamaBaseURL   string `mapstructure:"DEFILLAMA_BASE_URL"`
	DefiLlamaYieldsURL string `mapstructure:"DEFILLAMA_YIELDS_URL"`
	CoinGeckoBaseURL   string `mapstructure:"COINGECKO_BASE_URL"`
	CoinGeckoAPIKey    string `mapstructure:"COINGECKO_API_KEY"`

	AWSRegion  string `mapstructure:"AWS_REGION"`
	AWSBucket  string `mapstructure:"AWS_BUCKET"`
	CDNBaseURL string `mapstructure:"CDN_BASE_URL"`

	OTelEnabled      bool    `mapstructure:"OTEL_ENABLED"`
	OTelEndpoint     string  `mapstructure:"OTEL_ENDPOINT"`
	OTelSamplingRate float64 `mapstructure:"OTEL_SAMPLING_RATE"`

	HotScoreIntervalMinutes int    `mapstructure:"HOT_SCORE_INTERVAL_MINUTES"`
	RequiredServices        string `mapstructure:"REQUIRED_SERVICES"`
}

var defaults = map[string]any{
	"PORT":                       "8787",
	"ENVIRONMENT":                "development",
	"LOG_LEVEL":                  "info",
	"LOG_FILE":                   "mini-social.log",
	"DATABASE_URL":               "",
	"DB_HOST":                    "localhost",
	"DB_PORT":                    "5432",
	"DB_USER":                    "postgres",
	"DB_PASSWORD":                "",
	"DB_NAME":                    "mini_social",
	"DB_SSLMODE":                 "disable",
	"REDIS_HOST":                 "",
	"REDIS_PORT":                 "6379",
	"REDIS_PASSWORD":             "",
	"JWT_SECRET":                 "",
	"JWT_TTL_HOURS":              24 * 7,
	"CORS_ORIGINS":               "*",
	"ETHERSCAN_API_KEY":          "",
	"ETHERSCAN_BASE_URL":         "https://api.etherscan.io/v2/api",
	"ALCHEMY_API_KEY":            "",
	"DEFILLAMA_BASE_URL":         "https://api.llama.fi",
	"DEFILLAMA_YIELDS_URL":       "https://yields.llama.fi",
	"COINGECKO_BASE_URL":         "https://api.coingecko.com/api/v3",
	"COINGECKO_API_KEY":          "",
	"AWS_REGION":                 "",
	"AWS_BUCKET":                 "",
	"CDN_BASE_URL":               "",
	"OTEL_ENABLED":               false,
	"OTEL_ENDPOINT":              "localhost:4318",
	"OTEL_SAMPLING_RATE":         1.0,
	"HOT_SCORE_INTERVAL_MINUTES": 15,
	"REQUIRED_SERVICES":          "",
}

// Load reads an optional .env file, then the process environment, on top of
// the defaults above.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.JWTTTLHours <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive, got %d", c.JWTTTLHours)
	}
	if c.OTelSamplingRate < 0 || c.OTelSamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be within [0,1], got %v", c.OTelSamplingRate)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// DSN returns DATABASE_URL, or a key/value DSN assembled from the DB_* parts.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

func (c *Config) HotScoreInterval() time.Duration {
	if c.HotScoreIntervalMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.HotScoreIntervalMinutes) * time.Minute
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
