package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// App holds the runtime configuration loaded from environment variables.
// It is built once in main and passed by reference; business logic never
// reads the environment directly.
type App struct {
	Env             string
	HTTPPort        string
	MongoURI        string
	MongoDatabase   string
	RedisAddr       string
	RPCURL          string
	ContractAddress string
	ChainSkip       bool
	ChainRetries    int
	PinataBaseURL   string
	PinataAPIKey    string
	PinataSecretKey string
	TeacherUsername string
	TeacherPassword string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	AllowedOrigins  []string
	QueueBackend    string
	RateLimitPerMin int
	SweepInterval   time.Duration
}

// Load returns application config populated from environment variables with sensible defaults.
func Load() App {
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		HTTPPort:        getEnv("HTTP_PORT", "3001"),
		MongoURI:        getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "edchain"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RPCURL:          getEnv("RPC_URL", "http://localhost:8545"),
		ContractAddress: getEnv("CONTRACT_ADDRESS", ""),
		ChainSkip:       boolEnv("CHAIN_SKIP", true),
		ChainRetries:    intEnv("CHAIN_RETRIES", 3),
		PinataBaseURL:   getEnv("PINATA_BASE_URL", "https://api.pinata.cloud"),
		PinataAPIKey:    getEnv("PINATA_API_KEY", ""),
		PinataSecretKey: getEnv("PINATA_SECRET_KEY", ""),
		TeacherUsername: getEnv("TEACHER_USERNAME", "teacher"),
		TeacherPassword: getEnv("TEACHER_PASSWORD", "change-me"),
		JWTIssuer:       getEnv("JWT_ISSUER", "edchain"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 15*time.Minute),
		RefreshTTL:      durationEnv("REFRESH_TTL", 24*time.Hour),
		AllowedOrigins:  listEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		QueueBackend:    getEnv("QUEUE_BACKEND", "redis"),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
		SweepInterval:   durationEnv("SWEEP_INTERVAL", 10*time.Minute),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if val == "1" || val == "true" || val == "TRUE" {
			return true
		}
		if val == "0" || val == "false" || val == "FALSE" {
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func listEnv(key string, fallback []string) []string {
	if val := os.Getenv(key); val != "" {
		parts := strings.Split(val, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
