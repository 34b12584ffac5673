package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	MetricsAddr string
	LogLevel    string

	// DatabaseURL selects the Postgres stores when set; otherwise families
	// and sessions live in memory and are lost on restart.
	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig

	DefaultGroupSize int
	DraftTTL         time.Duration

	AuthEnabled   bool
	JWTSigningKey string
	JWTIssuer     string
	TokenTTL      time.Duration
}

// RedisConfig configures the draft store. An empty URL keeps drafts in memory.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the domain event publisher. No brokers means events
// are only logged.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// Enabled reports whether a broker list was provided.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:        getEnv("AROUND_ADDR", ":8080"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:    getEnv("KAFKA_TOPIC", "aroundtable.events"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "aroundtable"),
		},
		DefaultGroupSize: getEnvInt("DEFAULT_GROUP_SIZE", 3),
		DraftTTL:         getEnvDuration("DRAFT_TTL", 24*time.Hour),
		AuthEnabled:      os.Getenv("AUTH_ENABLED") == "true",
		JWTSigningKey:    jwtSigningKey,
		JWTIssuer:        getEnv("JWT_ISSUER", "aroundtable"),
		TokenTTL:         getEnvDuration("TOKEN_TTL", 30*24*time.Hour),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
