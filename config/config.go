package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort  string
	AppMode  string
	LogMode  string
	Database DatabaseConfig
	JWT      JWTConfig
	S3       S3Config
	Redis    RedisConfig
	Events   bool
	// ScanPageSize bounds how many vote rows are fetched per round trip while tallying.
	ScanPageSize int
	CORSOrigins  []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int
}

type JWTConfig struct {
	Secret string
	// SecretFile, when set, wins over Secret. Meant for mounted secret volumes.
	SecretFile string
	// CloseTokenMaxSkewSec is how far in the future a close token's issue time may sit.
	CloseTokenMaxSkewSec int
}

type S3Config struct {
	Region     string
	Bucket     string
	AccessKey  string
	SecretKey  string
	Endpoint   string
	PublicBase string
	ObjectACL  string
	PartSizeMB int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		AppPort: getEnv("APP_PORT", "8080"),
		AppMode: getEnv("APP_MODE", "debug"),
		LogMode: getEnv("LOG_MODE", "development"),
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "pollbox"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 20),
		},
		JWT: JWTConfig{
			Secret:               getEnv("JWT_SECRET", ""),
			SecretFile:           getEnv("JWT_SECRET_FILE", ""),
			CloseTokenMaxSkewSec: getEnvAsInt("CLOSE_TOKEN_MAX_SKEW_SEC", 0),
		},
		S3: S3Config{
			Region:     getEnv("S3_REGION", "us-east-1"),
			Bucket:     getEnv("S3_BUCKET", ""),
			AccessKey:  getEnv("S3_ACCESS_KEY", ""),
			SecretKey:  getEnv("S3_SECRET_KEY", ""),
			Endpoint:   getEnv("S3_ENDPOINT", ""),
			PublicBase: getEnv("S3_PUBLIC_BASE", ""),
			ObjectACL:  getEnv("S3_OBJECT_ACL", ""),
			PartSizeMB: getEnvAsInt("S3_PART_SIZE_MB", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Events:       getEnvAsBool("EVENTS_ENABLED", false),
		ScanPageSize: getEnvAsInt("SCAN_PAGE_SIZE", 500),
		CORSOrigins:  getEnvAsList("CORS_ORIGINS", []string{"*"}),
	}

	return cfg
}

// DSN returns DATABASE_URL when set, otherwise a URL assembled from the DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
