package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	Debug   bool

	BotToken      string
	BotAPIBase    string
	AdminID       int64
	WebhookMode   bool
	WebhookURL    string
	WebhookSecret string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	NotifyQueueName string
	SessionBackend  string // "redis" or "memory"
	SessionTTL      time.Duration

	MaxScore        int
	LongPollTimeout time.Duration
}

var AppConfig *Config

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:         getEnv("API_PORT", "8080"),
		Debug:           getEnvAsBool("DEBUG", false),
		BotToken:        getEnv("BOT_TOKEN", ""),
		BotAPIBase:      getEnv("BOT_API_BASE", "https://api.telegram.org"),
		AdminID:         getEnvAsInt64("ADMIN_ID", 0),
		WebhookMode:     getEnvAsBool("WEBHOOK_MODE", false),
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		WebhookSecret:   getEnv("WEBHOOK_SECRET", ""),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "user"),
		DBPassword:      getEnv("DB_PASSWORD", "password"),
		DBName:          getEnv("DB_NAME", "xcourses_db"),
		DBSslMode:       getEnv("DB_SSLMODE", "disable"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		NotifyQueueName: getEnv("NOTIFY_QUEUE_NAME", "notify_queue"),
		SessionBackend:  getEnv("SESSION_BACKEND", "redis"),
		SessionTTL:      time.Duration(getEnvAsInt("SESSION_TTL_HOURS", 24)) * time.Hour,
		MaxScore:        getEnvAsInt("MAX_SCORE", 100),
		LongPollTimeout: time.Duration(getEnvAsInt("LONG_POLL_TIMEOUT_SECONDS", 30)) * time.Second,
	}

	AppConfig.DBConnStr = "host=" + AppConfig.DBHost +
		" port=" + AppConfig.DBPort +
		" user=" + AppConfig.DBUser +
		" password=" + AppConfig.DBPassword +
		" dbname=" + AppConfig.DBName +
		" sslmode=" + AppConfig.DBSslMode
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

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
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
