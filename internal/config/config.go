package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB        DBConfig
	Storage   StorageConfig
	JWT       JWTConfig
	Server    ServerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type DBConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN prefers DATABASE_URL and falls back to the discrete connection fields.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Name,
		c.SSLMode,
	)
}

type StorageConfig struct {
	Endpoint  string
	Bucket    string
	PublicURL string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpirationHours) * time.Hour
}

type ServerConfig struct {
	Port        string
	FrontendURL string
	BodyLimitMB int
}

type RedisConfig struct {
	URL string
}

type RateLimitConfig struct {
	AuthMax    int
	AuthWindow time.Duration
}

type LogConfig struct {
	Level string
}

// Load reads an optional .env file and then the process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DB: DBConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "arcade"),
			Password: getEnv("DB_PASSWORD", "arcade_secret"),
			Name:     getEnv("DB_NAME", "arcade"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Endpoint:  getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			Bucket:    getEnv("STORAGE_BUCKET", "arcade"),
			PublicURL: strings.TrimRight(getEnv("STORAGE_PUBLIC_URL", ""), "/"),
			AccessKey: strings.TrimSpace(getEnv("STORAGE_ACCESS_KEY_ID", "")),
			SecretKey: strings.TrimSpace(getEnv("STORAGE_SECRET_ACCESS_KEY", "")),
			Region:    getEnv("STORAGE_REGION", "auto"),
			UseSSL:    getEnvAsBool("STORAGE_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", ""),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
		},
		Server: ServerConfig{
			Port:        getEnv("PORT", "3002"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
			BodyLimitMB: getEnvAsInt("BODY_LIMIT_MB", 20),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		RateLimit: RateLimitConfig{
			AuthMax:    getEnvAsInt("AUTH_RATE_LIMIT_MAX", 10),
			AuthWindow: getEnvAsDuration("AUTH_RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}
}

// Validate reports every setting the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.AccessKey == "" {
		errs = append(errs, errors.New("STORAGE_ACCESS_KEY_ID is required"))
	}
	if c.Storage.SecretKey == "" {
		errs = append(errs, errors.New("STORAGE_SECRET_ACCESS_KEY is required"))
	}
	if c.Storage.Bucket == "" {
		errs = append(errs, errors.New("STORAGE_BUCKET is required"))
	}
	if c.Storage.Endpoint == "" {
		errs = append(errs, errors.New("STORAGE_ENDPOINT is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.JWT.ExpirationHours <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_HOURS must be positive"))
	}
	if strings.TrimSpace(c.Server.FrontendURL) == "" {
		errs = append(errs, errors.New("FRONTEND_URL must not be empty"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
