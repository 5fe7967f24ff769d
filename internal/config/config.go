package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Security  SecurityConfig
	Watcher   WatcherConfig
	Reconcile ReconcileConfig
	Banks     BanksConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// URL returns the database connection URL
func (c DatabaseConfig) URL() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + strconv.Itoa(c.Port) + "/" + c.DBName + "?sslmode=" + c.SSLMode + "&prepare_threshold=0"
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL      string
	PASSWORD string
}

// JWTConfig holds the operator token settings
type JWTConfig struct {
	Secret       string
	Issuer       string
	AccessExpiry time.Duration
}

// SecurityConfig holds security encryption keys
type SecurityConfig struct {
	BaseHashEncryptionKey string
	IngestSecret          string
}

// Notification sources
const (
	SourceRedis = "redis"
	SourceSQL   = "sql"
	SourceNone  = "none"
)

// Cursor stores
const (
	CursorStoreDB   = "db"
	CursorStoreBolt = "bolt"
)

// WatcherConfig holds notification watcher settings
type WatcherConfig struct {
	Source           string
	StreamKey        string
	InboxTable       string
	InboxLookback    int
	CursorStore      string
	CursorFile       string
	BatchSize        int
	TransportTimeout time.Duration
	FetchRetries     int
	RetryBackoff     time.Duration
	AlarmThreshold   int
	LeaseEnabled     bool
	LeaseKey         string
	LeaseTTL         time.Duration
}

// ReconcileConfig holds the defaults operators may override in the settings table
type ReconcileConfig struct {
	Enabled         bool
	PollInterval    time.Duration
	AmountTolerance string
	MaxWait         time.Duration
	RequestTTL      time.Duration
	ExpiryInterval  time.Duration
}

// BanksConfig holds fallback payment URL templates keyed by bank
type BanksConfig struct {
	URLTemplates map[string]string
}

// Load loads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "autodeposit"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			PASSWORD: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret:       getEnv("JWT_SECRET", "change-this-in-production"),
			Issuer:       getEnv("JWT_ISSUER", "autodeposit"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", 12*time.Hour),
		},
		Security: SecurityConfig{
			BaseHashEncryptionKey: getEnv("BASE_HASH_ENCRYPTION_KEY", "0000000000000000000000000000000000000000000000000000000000000000"), // 32-bytes hex string
			IngestSecret:          getEnv("INGEST_SECRET", ""),
		},
		Watcher: WatcherConfig{
			Source:           strings.ToLower(getEnv("WATCHER_SOURCE", SourceRedis)),
			StreamKey:        getEnv("WATCHER_STREAM_KEY", "autodeposit:notifications"),
			InboxTable:       getEnv("WATCHER_INBOX_TABLE", "notification_inbox"),
			InboxLookback:    getEnvAsInt("WATCHER_INBOX_LOOKBACK", 200),
			CursorStore:      strings.ToLower(getEnv("WATCHER_CURSOR_STORE", CursorStoreDB)),
			CursorFile:       getEnv("WATCHER_CURSOR_FILE", "watcher-cursors.db"),
			BatchSize:        getEnvAsInt("WATCHER_BATCH_SIZE", 100),
			TransportTimeout: getEnvAsDuration("TRANSPORT_TIMEOUT", 10*time.Second),
			FetchRetries:     getEnvAsInt("WATCHER_FETCH_RETRIES", 3),
			RetryBackoff:     getEnvAsDuration("WATCHER_RETRY_BACKOFF", 500*time.Millisecond),
			AlarmThreshold:   getEnvAsInt("WATCHER_ALARM_THRESHOLD", 5),
			LeaseEnabled:     getEnvAsBool("WATCHER_LEASE_ENABLED", true),
			LeaseKey:         getEnv("WATCHER_LEASE_KEY", "autodeposit:watcher:lease"),
			LeaseTTL:         getEnvAsDuration("WATCHER_LEASE_TTL", time.Minute),
		},
		Reconcile: ReconcileConfig{
			Enabled:         getEnvAsBool("AUTODEPOSIT_ENABLED", true),
			PollInterval:    getEnvAsDuration("POLL_INTERVAL", 10*time.Second),
			AmountTolerance: getEnv("AMOUNT_TOLERANCE", "0.00"),
			MaxWait:         getEnvAsDuration("MAX_WAIT", 2*time.Hour),
			RequestTTL:      getEnvAsDuration("REQUEST_TTL", 24*time.Hour),
			ExpiryInterval:  getEnvAsDuration("EXPIRY_INTERVAL", time.Minute),
		},
		Banks: BanksConfig{
			URLTemplates: getEnvAsMap("BANK_URL_TEMPLATES"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsMap parses "a=x;b=y". Keys are lowercased.
func getEnvAsMap(key string) map[string]string {
	out := map[string]string{}
	for _, pair := range strings.Split(os.Getenv(key), ";") {
		k, v, ok := strings.Cut(pair, "=")
		k = strings.ToLower(strings.TrimSpace(k))
		if !ok || k == "" {
			continue
		}
		out[k] = strings.TrimSpace(v)
	}
	return out
}
