package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Notification drivers understood by NotifyConfig.Driver.
const (
	NotifyDriverLog     = "log"
	NotifyDriverWebhook = "webhook"
	NotifyDriverMQTT    = "mqtt"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database       DatabaseConfig
	Redis          RedisConfig
	JWT            JWTConfig
	CORS           CORSConfig
	Log            LogConfig
	Storage        StorageConfig
	ControlNumbers ControlNumberConfig
	Notify         NotifyConfig
	Dashboard      DashboardConfig
	Exports        ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	// ConnMaxLifetime recycles pooled connections; zero keeps them forever.
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Issuer            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
	SingleSession     bool
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// StorageConfig controls where uploaded photos live and how they are served.
type StorageConfig struct {
	PhotoDir        string
	MaxUploadBytes  int64
	MaxPhotoDim     int
	AllowedMIMEs    []string
	SignedURLSecret string
	SignedURLTTL    time.Duration
}

// ControlNumberConfig bounds generation retries when a reference collides.
type ControlNumberConfig struct {
	MaxAttempts int
}

// NotifyConfig selects the external notification sink and the dispatch queue sizing.
type NotifyConfig struct {
	Driver         string
	WebhookURL     string
	WebhookTimeout time.Duration
	WebhookRetries int
	MQTTBroker     string
	MQTTClientID   string
	MQTTTopic      string
	MQTTUsername   string
	MQTTPassword   string
	Workers        int
	Retries        int
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ExportsConfig caps streamed exports.
type ExportsConfig struct {
	MaxRows int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),

		ConnMaxLifetime: parseDuration(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),
		ConnectTimeout:  parseDuration(v.GetString("DB_CONNECT_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Issuer:            v.GetString("JWT_ISSUER"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
		SingleSession:     v.GetBool("JWT_SINGLE_SESSION"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	maxUpload := v.GetInt64("PHOTO_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Storage = StorageConfig{
		PhotoDir:        v.GetString("PHOTO_STORAGE_DIR"),
		MaxUploadBytes:  maxUpload,
		MaxPhotoDim:     v.GetInt("PHOTO_MAX_DIMENSION"),
		AllowedMIMEs:    splitAndTrim(v.GetString("PHOTO_ALLOWED_MIME_TYPES")),
		SignedURLSecret: v.GetString("PHOTO_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("PHOTO_SIGNED_URL_TTL"), 30*time.Minute),
	}

	cfg.ControlNumbers = ControlNumberConfig{
		MaxAttempts: v.GetInt("CONTROL_NUMBER_MAX_ATTEMPTS"),
	}

	cfg.Notify = NotifyConfig{
		Driver:         strings.ToLower(v.GetString("NOTIFY_DRIVER")),
		WebhookURL:     v.GetString("NOTIFY_WEBHOOK_URL"),
		WebhookTimeout: parseDuration(v.GetString("NOTIFY_WEBHOOK_TIMEOUT"), 5*time.Second),
		WebhookRetries: v.GetInt("NOTIFY_WEBHOOK_RETRIES"),
		MQTTBroker:     v.GetString("NOTIFY_MQTT_BROKER"),
		MQTTClientID:   v.GetString("NOTIFY_MQTT_CLIENT_ID"),
		MQTTTopic:      v.GetString("NOTIFY_MQTT_TOPIC"),
		MQTTUsername:   v.GetString("NOTIFY_MQTT_USERNAME"),
		MQTTPassword:   v.GetString("NOTIFY_MQTT_PASSWORD"),
		Workers:        v.GetInt("NOTIFY_WORKERS"),
		Retries:        v.GetInt("NOTIFY_RETRIES"),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		MaxRows: v.GetInt("EXPORT_MAX_ROWS"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "barangay_records")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("DB_CONNECT_TIMEOUT", "5s")

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "brgy-records-api")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")
	v.SetDefault("JWT_SINGLE_SESSION", false)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PHOTO_STORAGE_DIR", "./uploads")
	v.SetDefault("PHOTO_MAX_UPLOAD_BYTES", 5*1024*1024)
	v.SetDefault("PHOTO_MAX_DIMENSION", 800)
	v.SetDefault("PHOTO_ALLOWED_MIME_TYPES", "image/jpeg,image/png")
	v.SetDefault("PHOTO_SIGNED_URL_SECRET", "dev_photos_secret")
	v.SetDefault("PHOTO_SIGNED_URL_TTL", "30m")

	v.SetDefault("CONTROL_NUMBER_MAX_ATTEMPTS", 5)

	v.SetDefault("NOTIFY_DRIVER", NotifyDriverLog)
	v.SetDefault("NOTIFY_WEBHOOK_URL", "")
	v.SetDefault("NOTIFY_WEBHOOK_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_WEBHOOK_RETRIES", 2)
	v.SetDefault("NOTIFY_MQTT_BROKER", "tcp://localhost:1883")
	v.SetDefault("NOTIFY_MQTT_CLIENT_ID", "brgy-records-api")
	v.SetDefault("NOTIFY_MQTT_TOPIC", "barangay/notifications")
	v.SetDefault("NOTIFY_MQTT_USERNAME", "")
	v.SetDefault("NOTIFY_MQTT_PASSWORD", "")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_RETRIES", 3)

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("EXPORT_MAX_ROWS", 10000)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
