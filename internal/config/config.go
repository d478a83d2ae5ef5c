package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"txguardian/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	JWTSecret   string

	// Screening policy
	SuspiciousAmountCents int64
	VendorBlocklist       []string

	// Challenge oracle
	OracleURL     string
	OracleAPIKey  string
	OracleTimeout time.Duration

	// Verification
	MaxAnswerAttempts int

	// Rate limiting
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Email
	SMTPAddr     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
}

// Load reads configuration from the environment. Missing required variables
// abort startup.
func Load() *Config {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	oracleURL := os.Getenv("ORACLE_URL")
	if oracleURL == "" {
		logger.Warn("ORACLE_URL is not set, challenge verification will be unavailable")
	}

	return &Config{
		AppPort:     port,
		DatabaseURL: dbURL,
		JWTSecret:   jwtSecret,

		SuspiciousAmountCents: envInt64("SUSPICIOUS_AMOUNT_CENTS", 500000),
		VendorBlocklist:       envList("VENDOR_BLOCKLIST", []string{"unknown_vendor", "fraud_shop", "test_merchant"}),

		OracleURL:     oracleURL,
		OracleAPIKey:  os.Getenv("ORACLE_API_KEY"),
		OracleTimeout: time.Duration(envInt64("ORACLE_TIMEOUT_SECONDS", 20)) * time.Second,

		MaxAnswerAttempts: int(envInt64("MAX_ANSWER_ATTEMPTS", 3)),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       int(envInt64("REDIS_DB", 0)),

		SMTPAddr:     os.Getenv("SMTP_ADDR"),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		EmailFrom:    os.Getenv("EMAIL_FROM"),
	}
}

func envInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		logger.Warn("invalid integer in env, using default", "key", key, "value", v)
		return def
	}
	return n
}

func envList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
