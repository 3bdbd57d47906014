package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	Email    EmailConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// SecurityConfig holds the tunables of the authentication security core.
type SecurityConfig struct {
	TOTPIssuer            string
	TOTPEncryptionKey     []byte // 32 bytes, AES-256
	MaxLoginAttempts      int
	AttemptWindow         time.Duration
	LockoutDuration       time.Duration
	BackupCodeCount       int
	BreachAPIBaseURL      string
	BreachAPITimeout      time.Duration
	AuthProviderURL       string
	AuthProviderTimeout   time.Duration
	PasswordHistoryLimit  int
	AttemptRetention      time.Duration
	CleanupInterval       time.Duration
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	totpKey := getEnv("TOTP_ENCRYPTION_KEY", "")
	if totpKey == "" {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY is required")
	}
	if err := validateEncryptionKey(totpKey, env); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "authcore"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		Security: SecurityConfig{
			TOTPIssuer:           getEnv("TOTP_ISSUER", "Promenade"),
			TOTPEncryptionKey:    []byte(totpKey),
			MaxLoginAttempts:     getEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			AttemptWindow:        getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
			LockoutDuration:      getEnvAsDuration("LOGIN_LOCKOUT_DURATION", 15*time.Minute),
			BackupCodeCount:      getEnvAsInt("MFA_BACKUP_CODE_COUNT", 10),
			BreachAPIBaseURL:     getEnv("BREACH_API_BASE_URL", "https://api.pwnedpasswords.com/range"),
			BreachAPITimeout:     getEnvAsDuration("BREACH_API_TIMEOUT", 5*time.Second),
			AuthProviderURL:      getEnv("AUTH_PROVIDER_URL", "http://localhost:9090/internal/verify-password"),
			AuthProviderTimeout:  getEnvAsDuration("AUTH_PROVIDER_TIMEOUT", 5*time.Second),
			PasswordHistoryLimit: getEnvAsInt("PASSWORD_HISTORY_LIMIT", 5),
			AttemptRetention:     getEnvAsDuration("LOGIN_ATTEMPT_RETENTION", 24*time.Hour),
			CleanupInterval:      getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
		},
		Email: EmailConfig{
			Enabled:     getEnv("EMAIL_ENABLED", "false") == "true",
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ENABLED=true")
	}

	return cfg, nil
}

// validateEncryptionKey enforces minimum standards for the TOTP secret key
func validateEncryptionKey(key, env string) error {
	if len(key) != 32 {
		return fmt.Errorf("TOTP_ENCRYPTION_KEY must be exactly 32 bytes for AES-256 (got %d)", len(key))
	}

	weak := []string{
		"00000000000000000000000000000000",
		"changemechangemechangemechangeme",
		"secretsecretsecretsecretsecretse",
	}
	keyLower := strings.ToLower(key)
	for _, w := range weak {
		if keyLower == w {
			return fmt.Errorf("TOTP_ENCRYPTION_KEY cannot be a common weak value")
		}
	}

	if env == "production" && strings.Count(key, string(key[0])) == len(key) {
		return fmt.Errorf("TOTP_ENCRYPTION_KEY must not be a repeated character in production")
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
