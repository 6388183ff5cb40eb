package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var AppConfig Config

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	TelegramBotToken string `json:"-"`
	AdminChatID      int64  `json:"admin_chat_id"`

	AdminEmail        string `json:"admin_email"`
	AdminPasswordHash string `json:"-"`
	EncryptionKey     string `json:"-"`

	StripeSecretKey     string `json:"-"`
	StripeWebhookSecret string `json:"-"`

	SentryDSN string `json:"-"`

	Redis        RedisConfig `json:"redis"`
	RateLimitAPI int         `json:"rate_limit_api"`

	// Dispatch tuning
	TickIntervalSeconds     int `json:"tick_interval_seconds"`
	InterSendPauseMS        int `json:"inter_send_pause_ms"`
	AdvanceInterSendPauseMS int `json:"advance_inter_send_pause_ms"`
	DispatchBatchLimit      int `json:"dispatch_batch_limit"`

	LogRetentionDays      int `json:"log_retention_days"`
	ReactionWindowMinutes int `json:"reaction_window_minutes"`

	TrackingSourceParam string `json:"tracking_source_param"`
	TrackingIDParam     string `json:"tracking_id_param"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8080"),

		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "funnelbot"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		AdminChatID:      getEnvInt64("ADMIN_CHAT_ID", 0),

		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@localhost"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		EncryptionKey:     getEnv("ENCRYPTION_KEY", ""),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		SentryDSN: getEnv("SENTRY_DSN", ""),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimitAPI: getEnvInt("RATE_LIMIT_API", 60),

		TickIntervalSeconds:     getEnvInt("TICK_INTERVAL_SECONDS", 60),
		InterSendPauseMS:        getEnvInt("INTER_SEND_PAUSE_MS", 100),
		AdvanceInterSendPauseMS: getEnvInt("ADVANCE_INTER_SEND_PAUSE_MS", 1000),
		DispatchBatchLimit:      getEnvInt("DISPATCH_BATCH_LIMIT", 500),

		LogRetentionDays:      getEnvInt("LOG_RETENTION_DAYS", 90),
		ReactionWindowMinutes: getEnvInt("REACTION_WINDOW_MINUTES", 10),

		TrackingSourceParam: getEnv("TRACKING_SOURCE_PARAM", "source"),
		TrackingIDParam:     getEnv("TRACKING_ID_PARAM", "id"),
	}

	if AppConfig.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if AppConfig.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}

	return nil
}

// ConnectDB opens the Postgres connection and configures the pool.
func ConnectDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost, AppConfig.DBPort, AppConfig.DBUser,
		AppConfig.DBPassword, AppConfig.DBName, AppConfig.DBSSLMode,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

func (c *Config) InterSendPause() time.Duration {
	return time.Duration(c.InterSendPauseMS) * time.Millisecond
}

func (c *Config) AdvanceInterSendPause() time.Duration {
	return time.Duration(c.AdvanceInterSendPauseMS) * time.Millisecond
}

func (c *Config) ReactionWindow() time.Duration {
	return time.Duration(c.ReactionWindowMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
