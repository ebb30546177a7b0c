package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds process configuration read from the environment
type Config struct {
	HTTPPort string
	Storage  string // "mongo" or "memory"

	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string
	AuditDBPath   string

	AssessmentsFile string

	JWTSecret         string
	AdminUsername     string
	AdminPassword     string
	CandidateTokenTTL time.Duration
	SessionTTL        time.Duration

	OTP OTPConfig

	// AccessCode gates code requests when non-empty
	AccessCode string

	SMTP          SMTPConfig
	MailSubject   string
	NotifyTimeout time.Duration
	RenderTimeout time.Duration

	LockTTL          time.Duration
	LockWait         time.Duration
	DeliveryCacheTTL time.Duration
}

// OTPConfig controls one-time code issuance
type OTPConfig struct {
	TTL        time.Duration
	MaxSends   int
	SendWindow time.Duration
	Digits     int
}

// SMTPConfig is the outbound mail relay. An empty Host selects the console notifier.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Enabled returns true if an SMTP relay is configured
func (c SMTPConfig) Enabled() bool {
	return c.Host != ""
}

// Load reads configuration from the environment with defaults for local development
func Load() *Config {
	return &Config{
		HTTPPort: getEnvOrDefault("HTTP_PORT", "8080"),
		Storage:  strings.ToLower(getEnvOrDefault("STORAGE", "mongo")),

		MongoURI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:       getEnvOrDefault("MONGO_DB", "assessments"),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		AuditDBPath:   getEnvOrDefault("AUDIT_DB_PATH", "audit.sqlite3"),

		AssessmentsFile: getEnvOrDefault("ASSESSMENTS_FILE", "assessments.json"),

		JWTSecret:         getEnvOrDefault("JWT_SECRET", "super-secret-key-change-in-production"),
		AdminUsername:     getEnvOrDefault("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnvOrDefault("ADMIN_PASSWORD", "password123"),
		CandidateTokenTTL: getEnvDuration("CANDIDATE_TOKEN_TTL", 12*time.Hour),
		SessionTTL:        getEnvDuration("SESSION_TTL", 12*time.Hour),

		OTP: OTPConfig{
			TTL:        getEnvDuration("OTP_TTL", 10*time.Minute),
			MaxSends:   getEnvInt("OTP_MAX_SENDS", 10),
			SendWindow: getEnvDuration("OTP_SEND_WINDOW", time.Hour),
			Digits:     getEnvInt("OTP_DIGITS", 6),
		},

		AccessCode: os.Getenv("ACCESS_CODE"),

		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnvOrDefault("SMTP_FROM", "no-reply@localhost"),
		},
		MailSubject:   getEnvOrDefault("MAIL_SUBJECT", "Your assessment access code"),
		NotifyTimeout: getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
		RenderTimeout: getEnvDuration("RENDER_TIMEOUT", 30*time.Second),

		LockTTL:          getEnvDuration("LOCK_TTL", 15*time.Second),
		LockWait:         getEnvDuration("LOCK_WAIT", 5*time.Second),
		DeliveryCacheTTL: getEnvDuration("DELIVERY_CACHE_TTL", 6*time.Hour),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "10m")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
