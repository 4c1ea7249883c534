package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds configuration for the gateway.
type Config struct {
	HTTPPort      string
	JWTSecret     []byte
	JWTExpiry     time.Duration
	EncryptionKey []byte // 32 bytes, AES-256-GCM for provider secrets at rest
	Database      DatabaseConfig
	Redis         RedisConfig
	Cache         CacheConfig
	Provider      ProviderConfig
	Billing       BillingConfig
	RateLimit     RateLimitConfig
	UsageQueue    UsageQueueConfig
	ExchangeLog   ExchangeLogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig holds in-process cache settings
type CacheConfig struct {
	APIKeyCacheSize int
	APIKeyCacheTTL  time.Duration
}

// ProviderConfig holds settings for the upstream chat-completion provider.
type ProviderConfig struct {
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	RequestTimeout time.Duration
}

// BillingConfig holds pricing settings.
//
// UnitPricePer1K is the canonical price charged per 1000 tokens. The two
// legacy apps disagreed (0.5 vs 0.01); 0.5 is the documented value here.
type BillingConfig struct {
	UnitPricePer1K float64
}

// RateLimitConfig holds per-user request limiting settings.
type RateLimitConfig struct {
	Enabled       bool
	AsksPerMinute int
	WindowExpiry  time.Duration
}

// UsageQueueConfig holds settings for the async provider-key usage queue.
type UsageQueueConfig struct {
	UseRedis     bool
	BatchSize    int
	BatchTimeout time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// ExchangeLogConfig holds settings for the JSONL exchange log and the
// optional S3 archival sink.
type ExchangeLogConfig struct {
	FilePathTemplate string
	MaxSize          int64
	MaxFiles         int
	BufferSize       int
	FlushInterval    time.Duration

	S3Enabled       bool
	S3Bucket        string
	S3Region        string
	S3Prefix        string
	S3FlushSize     int
	S3FlushInterval time.Duration
	InstanceName    string
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvInt64(key string, defaultValue int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	intVal, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultValue
	}
	return intVal
}

func getEnvFloat(key string, defaultValue float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultValue
	}
	return floatVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val == "true" || val == "1"
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	encryptionKeyHex := getEnvString("ENCRYPTION_KEY", "")
	if encryptionKeyHex == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required (64 hex characters)")
	}
	if len(encryptionKeyHex) != 64 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be 64 hex characters (32 bytes)")
	}
	encryptionKey, err := hex.DecodeString(encryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be valid hex: %w", err)
	}

	cfg := &Config{
		HTTPPort:      getEnvString("HTTP_PORT", "8080"),
		JWTSecret:     []byte(getEnvString("JWT_SECRET", "supersecretkey")),
		JWTExpiry:     getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		EncryptionKey: encryptionKey,
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", "localhost:6379"),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			APIKeyCacheSize: getEnvInt("CACHE_API_KEY_SIZE", 100),
			APIKeyCacheTTL:  getEnvDuration("CACHE_API_KEY_TTL", 1*time.Minute),
		},
		Provider: ProviderConfig{
			BaseURL:        getEnvString("PROVIDER_BASE_URL", "https://api.doubao.com/v1"),
			Model:          getEnvString("PROVIDER_MODEL", "doubao-model"),
			Temperature:    getEnvFloat("PROVIDER_TEMPERATURE", 0.7),
			MaxTokens:      getEnvInt("PROVIDER_MAX_TOKENS", 2000),
			RequestTimeout: getEnvDuration("PROVIDER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Billing: BillingConfig{
			UnitPricePer1K: getEnvFloat("BILLING_UNIT_PRICE_PER_1K", 0.5),
		},
		RateLimit: RateLimitConfig{
			Enabled:       getEnvBool("RATE_LIMIT_ENABLED", true),
			AsksPerMinute: getEnvInt("RATE_LIMIT_ASKS_PER_MINUTE", 10),
			WindowExpiry:  getEnvDuration("RATE_LIMIT_WINDOW_EXPIRY", 2*time.Minute),
		},
		UsageQueue: UsageQueueConfig{
			UseRedis:     getEnvBool("USAGE_QUEUE_USE_REDIS", true),
			BatchSize:    getEnvInt("USAGE_QUEUE_BATCH_SIZE", 100),
			BatchTimeout: getEnvDuration("USAGE_QUEUE_BATCH_TIMEOUT", 5*time.Second),
			MaxRetries:   getEnvInt("USAGE_QUEUE_MAX_RETRIES", 3),
			RetryBackoff: getEnvDuration("USAGE_QUEUE_RETRY_BACKOFF", 1*time.Second),
		},
		ExchangeLog: ExchangeLogConfig{
			FilePathTemplate: getEnvString("EXCHANGE_LOG_FILE_PATH_TEMPLATE", "/var/log/englishqa/exchanges-%s.jsonl"),
			MaxSize:          getEnvInt64("EXCHANGE_LOG_MAX_SIZE", 10_485_760), // default 10 MB
			MaxFiles:         getEnvInt("EXCHANGE_LOG_MAX_FILES", 5),
			BufferSize:       getEnvInt("EXCHANGE_LOG_BUFFER_SIZE", 100),
			FlushInterval:    getEnvDuration("EXCHANGE_LOG_FLUSH_INTERVAL", 60*time.Second),
			S3Enabled:        getEnvBool("EXCHANGE_LOG_S3_ENABLED", false),
			S3Bucket:         getEnvString("EXCHANGE_LOG_S3_BUCKET", ""),
			S3Region:         getEnvString("EXCHANGE_LOG_S3_REGION", "us-east-1"),
			S3Prefix:         getEnvString("EXCHANGE_LOG_S3_PREFIX", "exchanges/"),
			S3FlushSize:      getEnvInt("EXCHANGE_LOG_S3_FLUSH_SIZE", 1000),
			S3FlushInterval:  getEnvDuration("EXCHANGE_LOG_S3_FLUSH_INTERVAL", 5*time.Minute),
			InstanceName:     getEnvString("INSTANCE_NAME", "gateway-0"),
		},
	}

	return cfg, nil
}
