package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Kafka struct {
		Brokers          []string
		MarketGroupID    string
		DispatchGroupID  string
		DeadLetterTopic  string
		ConsumerWorkers  int
		AutoCreateTopics bool
	}
	DB struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	Email struct {
		SMTPServer   string
		SMTPPort     int
		Username     string
		Password     string
		FromName     string
		FromAddress  string
		Primary      string
		Fallback     []string
		ResendAPIKey string
		AWSRegion    string
		MaxAttempts  int
		BaseDelay    time.Duration
	}
	Telegram struct {
		BotToken  string
		RateLimit int
	}
	SMS struct {
		AccountSID string
		AuthToken  string
		FromNumber string
	}
	API struct {
		Port     string
		BasePath string
	}
	Logging struct {
		Dir   string
		Level string
	}
	Notification struct {
		Timezone string
	}
	Market struct {
		ProviderURL         string
		FallbackProviderURL string
		QuoteInterval       time.Duration
		RateInterval        time.Duration
		RiskInterval        time.Duration
		RetryAttempts       int
		RetryBaseDelay      time.Duration
		ChunkSize           int
		ChunkDelay          time.Duration
		CacheTTL            time.Duration
		Timezone            string
		OpenHour, CloseHour int
		RateTypes           []string
		HTTPTimeout         time.Duration
	}
}

// Load reads environment variables, applies defaults, and returns a Config.
func Load() (Config, error) {
	// Load .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config

	// Kafka settings
	cfg.Kafka.Brokers = splitList(os.Getenv("KAFKA_BROKERS"))
	cfg.Kafka.MarketGroupID = os.Getenv("KAFKA_MARKET_GROUP_ID")
	cfg.Kafka.DispatchGroupID = os.Getenv("KAFKA_DISPATCH_GROUP_ID")
	cfg.Kafka.DeadLetterTopic = os.Getenv("KAFKA_DEAD_LETTER_TOPIC")
	cfg.Kafka.ConsumerWorkers = intEnv("KAFKA_CONSUMER_WORKERS")
	cfg.Kafka.AutoCreateTopics = os.Getenv("KAFKA_AUTO_CREATE_TOPICS") == "true"

	// Database DSN
	cfg.DB.DSN = os.Getenv("DB_DSN")

	// Redis
	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	cfg.Redis.DB = intEnv("REDIS_DB")

	// Email settings
	cfg.Email.SMTPServer = os.Getenv("EMAIL_SMTP_SERVER")
	cfg.Email.SMTPPort = intEnv("EMAIL_SMTP_PORT")
	cfg.Email.Username = os.Getenv("EMAIL_USERNAME")
	cfg.Email.Password = os.Getenv("EMAIL_PASSWORD")
	cfg.Email.FromName = os.Getenv("EMAIL_FROM_NAME")
	cfg.Email.FromAddress = os.Getenv("EMAIL_FROM_ADDRESS")
	cfg.Email.Primary = os.Getenv("EMAIL_PRIMARY_PROVIDER")
	cfg.Email.Fallback = splitList(os.Getenv("EMAIL_FALLBACK_PROVIDERS"))
	cfg.Email.ResendAPIKey = os.Getenv("RESEND_API_KEY")
	cfg.Email.AWSRegion = os.Getenv("AWS_REGION")
	cfg.Email.MaxAttempts = intEnv("EMAIL_MAX_ATTEMPTS")
	cfg.Email.BaseDelay = durationEnv("EMAIL_BASE_DELAY")

	// Telegram / SMS
	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.RateLimit = intEnv("TELEGRAM_RATE_LIMIT")
	cfg.SMS.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	cfg.SMS.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	cfg.SMS.FromNumber = os.Getenv("TWILIO_FROM_NUMBER")

	// API settings
	cfg.API.Port = os.Getenv("API_PORT")
	cfg.API.BasePath = os.Getenv("API_BASE_PATH")

	// Logging
	cfg.Logging.Dir = os.Getenv("LOG_DIR")
	cfg.Logging.Level = os.Getenv("LOG_LEVEL")

	cfg.Notification.Timezone = os.Getenv("NOTIFICATION_TIMEZONE")

	// Market data
	cfg.Market.ProviderURL = os.Getenv("MARKET_PROVIDER_URL")
	cfg.Market.FallbackProviderURL = os.Getenv("MARKET_FALLBACK_PROVIDER_URL")
	cfg.Market.QuoteInterval = durationEnv("MARKET_QUOTE_INTERVAL")
	cfg.Market.RateInterval = durationEnv("MARKET_RATE_INTERVAL")
	cfg.Market.RiskInterval = durationEnv("MARKET_RISK_INTERVAL")
	cfg.Market.RetryAttempts = intEnv("MARKET_RETRY_ATTEMPTS")
	cfg.Market.RetryBaseDelay = durationEnv("MARKET_RETRY_BASE_DELAY")
	cfg.Market.ChunkSize = intEnv("MARKET_CHUNK_SIZE")
	cfg.Market.ChunkDelay = durationEnv("MARKET_CHUNK_DELAY")
	cfg.Market.CacheTTL = durationEnv("MARKET_CACHE_TTL")
	cfg.Market.Timezone = os.Getenv("MARKET_TIMEZONE")
	cfg.Market.OpenHour = intEnv("MARKET_OPEN_HOUR")
	cfg.Market.CloseHour = intEnv("MARKET_CLOSE_HOUR")
	cfg.Market.RateTypes = splitList(os.Getenv("MARKET_RATE_TYPES"))
	cfg.Market.HTTPTimeout = durationEnv("MARKET_HTTP_TIMEOUT")

	// Validate required settings
	missing := []string{}
	if len(cfg.Kafka.Brokers) == 0 {
		missing = append(missing, "KAFKA_BROKERS")
	}
	if cfg.DB.DSN == "" {
		missing = append(missing, "DB_DSN")
	}
	if cfg.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if cfg.Market.ProviderURL == "" {
		missing = append(missing, "MARKET_PROVIDER_URL")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required configurations: %v", missing)
	}

	applyDefaults(&cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Kafka.MarketGroupID == "" {
		cfg.Kafka.MarketGroupID = "notification-alert-evaluator"
	}
	if cfg.Kafka.DispatchGroupID == "" {
		cfg.Kafka.DispatchGroupID = "notification-dispatcher"
	}
	if cfg.Kafka.DeadLetterTopic == "" {
		cfg.Kafka.DeadLetterTopic = "notification.dead-letter"
	}
	if cfg.Kafka.ConsumerWorkers == 0 {
		cfg.Kafka.ConsumerWorkers = 10
	}
	if cfg.Email.Primary == "" {
		cfg.Email.Primary = "smtp"
	}
	if cfg.Email.MaxAttempts == 0 {
		cfg.Email.MaxAttempts = 3
	}
	if cfg.Email.BaseDelay == 0 {
		cfg.Email.BaseDelay = 500 * time.Millisecond
	}
	if cfg.Email.AWSRegion == "" {
		cfg.Email.AWSRegion = "us-east-1"
	}
	if cfg.Telegram.RateLimit == 0 {
		cfg.Telegram.RateLimit = 25
	}
	if cfg.API.Port == "" {
		cfg.API.Port = ":8080"
	}
	if cfg.API.BasePath == "" {
		cfg.API.BasePath = "/api/v0"
	}
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = "logs"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Notification.Timezone == "" {
		cfg.Notification.Timezone = "UTC"
	}
	if cfg.Market.QuoteInterval == 0 {
		cfg.Market.QuoteInterval = time.Minute
	}
	if cfg.Market.RateInterval == 0 {
		cfg.Market.RateInterval = 5 * time.Minute
	}
	if cfg.Market.RiskInterval == 0 {
		cfg.Market.RiskInterval = 15 * time.Minute
	}
	if cfg.Market.RetryAttempts == 0 {
		cfg.Market.RetryAttempts = 3
	}
	if cfg.Market.RetryBaseDelay == 0 {
		cfg.Market.RetryBaseDelay = time.Second
	}
	if cfg.Market.ChunkSize == 0 {
		cfg.Market.ChunkSize = 10
	}
	if cfg.Market.ChunkDelay == 0 {
		cfg.Market.ChunkDelay = 2 * time.Second
	}
	if cfg.Market.CacheTTL == 0 {
		cfg.Market.CacheTTL = 30 * time.Second
	}
	if cfg.Market.Timezone == "" {
		cfg.Market.Timezone = "America/Argentina/Buenos_Aires"
	}
	if cfg.Market.OpenHour == 0 && cfg.Market.CloseHour == 0 {
		cfg.Market.OpenHour, cfg.Market.CloseHour = 11, 17
	}
	if len(cfg.Market.RateTypes) == 0 {
		cfg.Market.RateTypes = []string{"oficial", "blue", "mep", "ccl"}
	}
	if cfg.Market.HTTPTimeout == 0 {
		cfg.Market.HTTPTimeout = 10 * time.Second
	}
}

func intEnv(key string) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return 0
}

func durationEnv(key string) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return 0
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
