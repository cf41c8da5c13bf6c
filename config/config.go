package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

type Config struct {
	ServiceName string
	LoggerLevel string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisHost     string
	RedisPort     string
	RedisPassword string

	CustomerBotToken string
	AdminBotToken    string
	AdminID          int64
	AdminUsername    string

	BrevoAPIKey  string
	SenderName   string
	SenderEmail  string
	SupportPhone string

	ProfileCacheTTL time.Duration
}

func Load() Config {
	_ = godotenv.Load(".env")

	cfg := Config{}

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", "washbot"))
	cfg.LoggerLevel = cast.ToString(getOrReturnDefault("LOGGER_LEVEL", "debug"))

	cfg.PostgresHost = cast.ToString(getOrReturnDefault("POSTGRES_HOST", "localhost"))
	cfg.PostgresPort = cast.ToString(getOrReturnDefault("POSTGRES_PORT", "5432"))
	cfg.PostgresUser = cast.ToString(getOrReturnDefault("POSTGRES_USER", "postgres"))
	cfg.PostgresPassword = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", "1234"))
	cfg.PostgresDB = cast.ToString(getOrReturnDefault("POSTGRES_DB", "washbot"))

	cfg.RedisHost = cast.ToString(getOrReturnDefault("REDIS_HOST", "localhost"))
	cfg.RedisPort = cast.ToString(getOrReturnDefault("REDIS_PORT", "6379"))
	cfg.RedisPassword = cast.ToString(getOrReturnDefault("REDIS_PASSWORD", ""))

	cfg.CustomerBotToken = cast.ToString(getOrReturnDefault("CUSTOMER_BOT_TOKEN", ""))
	cfg.AdminBotToken = cast.ToString(getOrReturnDefault("ADMIN_BOT_TOKEN", ""))
	cfg.AdminID = cast.ToInt64(getOrReturnDefault("ADMIN_ID", 0))
	cfg.AdminUsername = cast.ToString(getOrReturnDefault("ADMIN_USERNAME", ""))

	cfg.BrevoAPIKey = cast.ToString(getOrReturnDefault("BREVO_API_KEY", ""))
	cfg.SenderName = cast.ToString(getOrReturnDefault("SENDER_NAME", "Advance Washing"))
	cfg.SenderEmail = cast.ToString(getOrReturnDefault("SENDER_EMAIL", "info@advancewashing.com"))
	cfg.SupportPhone = cast.ToString(getOrReturnDefault("SUPPORT_PHONE", "+91 8928478081"))

	cfg.ProfileCacheTTL = cast.ToDuration(getOrReturnDefault("PROFILE_CACHE_TTL", "5m"))

	return cfg
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
