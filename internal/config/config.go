package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPPort       string
	StorageBackend string // "sqlite" or "postgres"
	SQLitePath     string
	PostgresDSN    string

	GeminiAPIKey     string
	PollinationsURL  string
	PollinationsKey  string
	DefaultModel     string
	GenerateTimeout  time.Duration
	MaxConcurrentGen int64

	HostingURL string
	HostingKey string

	ShareSecret   string
	ShareTokenTTL time.Duration

	AutosaveQuiet time.Duration

	LogLevel  string
	LogFormat string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		StorageBackend: getEnv("STORAGE_BACKEND", "sqlite"),
		SQLitePath:     getEnv("SQLITE_PATH", "appforge.db"),
		PostgresDSN:    getEnv("POSTGRES_DSN", ""),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		PollinationsURL:  getEnv("POLLINATIONS_URL", "https://gen.pollinations.ai"),
		PollinationsKey:  getEnv("POLLINATIONS_API_KEY", ""),
		DefaultModel:     getEnv("DEFAULT_MODEL", ""),
		GenerateTimeout:  getEnvAsDuration("GENERATE_TIMEOUT", 60*time.Second),
		MaxConcurrentGen: int64(getEnvAsInt("MAX_CONCURRENT_GENERATIONS", 5)),

		HostingURL: getEnv("HOSTING_URL", ""),
		HostingKey: getEnv("HOSTING_API_KEY", ""),

		ShareSecret:   getEnv("SHARE_SECRET", ""),
		ShareTokenTTL: getEnvAsDuration("SHARE_TOKEN_TTL", 7*24*time.Hour),

		AutosaveQuiet: getEnvAsDuration("AUTOSAVE_QUIET", 4*time.Second),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	if AppConfig.StorageBackend == "postgres" && AppConfig.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
