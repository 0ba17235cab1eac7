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

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

const (
	UploadDriverLocal = "local"
	UploadDriverS3    = "s3"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Admin         AdminConfig
	Donations     DonationsConfig
	Uploads       UploadsConfig
	Receipts      ReceiptsConfig
	Inventory     InventoryConfig
	Analytics     AnalyticsConfig
	Notifications NotificationsConfig
}

type DatabaseConfig struct {
	Driver        string
	Path          string
	Host          string
	Port          int
	User          string
	Password      string
	Name          string
	SSLMode       string
	MaxOpenConns  int
	MaxIdleConns  int
	AutoMigrate   bool
	SeedInventory bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig holds the single shared staff credential.
type AdminConfig struct {
	Username string
	Password string
}

// DonationsConfig tunes cart and checkout arithmetic.
type DonationsConfig struct {
	TaxRate         float64
	MaxLineQuantity int
	ReceiptPrefix   string
	CartTTL         time.Duration
}

// UploadsConfig controls where payment slips are stored and what is accepted.
type UploadsConfig struct {
	Driver            string
	Dir               string
	MaxFileSize       int64
	AllowedExtensions []string
	S3Bucket          string
	S3Region          string
	S3Prefix          string
}

// ReceiptsConfig controls receipt PDF storage and signed download links.
type ReceiptsConfig struct {
	Dir             string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Retention       time.Duration
}

// InventoryConfig governs stock accounting rules.
type InventoryConfig struct {
	AllowNegative          bool
	CriticalStockThreshold int
}

// AnalyticsConfig governs feature flagging and cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// NotificationsConfig sizes the best-effort email/SMS dispatcher.
type NotificationsConfig struct {
	Enabled      bool
	Workers      int
	MaxRetries   int
	RetryDelay   time.Duration
	SupportPhone string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:        strings.ToLower(v.GetString("DB_DRIVER")),
		Path:          v.GetString("DB_PATH"),
		Host:          v.GetString("DB_HOST"),
		Port:          v.GetInt("DB_PORT"),
		User:          v.GetString("DB_USER"),
		Password:      v.GetString("DB_PASSWORD"),
		Name:          v.GetString("DB_NAME"),
		SSLMode:       v.GetString("DB_SSL_MODE"),
		MaxOpenConns:  v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:  v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:   v.GetBool("DB_AUTO_MIGRATE"),
		SeedInventory: v.GetBool("DB_SEED_INVENTORY"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.Donations = DonationsConfig{
		TaxRate:         v.GetFloat64("DONATION_TAX_RATE"),
		MaxLineQuantity: v.GetInt("CART_MAX_LINE_QUANTITY"),
		ReceiptPrefix:   v.GetString("RECEIPT_PREFIX"),
		CartTTL:         parseDuration(v.GetString("CART_TTL"), 24*time.Hour),
	}

	maxUpload := v.GetInt64("UPLOADS_MAX_FILE_SIZE")
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	cfg.Uploads = UploadsConfig{
		Driver:            strings.ToLower(v.GetString("UPLOADS_DRIVER")),
		Dir:               v.GetString("UPLOADS_DIR"),
		MaxFileSize:       maxUpload,
		AllowedExtensions: splitAndTrim(v.GetString("UPLOADS_ALLOWED_EXTENSIONS")),
		S3Bucket:          v.GetString("UPLOADS_S3_BUCKET"),
		S3Region:          v.GetString("AWS_REGION"),
		S3Prefix:          v.GetString("UPLOADS_S3_PREFIX"),
	}

	cfg.Receipts = ReceiptsConfig{
		Dir:             v.GetString("RECEIPTS_DIR"),
		SignedURLSecret: v.GetString("RECEIPTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("RECEIPTS_SIGNED_URL_TTL"), 30*time.Minute),
		Retention:       parseDuration(v.GetString("RECEIPTS_RETENTION"), 24*time.Hour),
	}

	cfg.Inventory = InventoryConfig{
		AllowNegative:          v.GetBool("INVENTORY_ALLOW_NEGATIVE"),
		CriticalStockThreshold: v.GetInt("CRITICAL_STOCK_THRESHOLD"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:  v.GetBool("ENABLE_ANALYTICS_CACHE"),
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled:      v.GetBool("ENABLE_NOTIFICATIONS"),
		Workers:      v.GetInt("NOTIFICATION_WORKERS"),
		MaxRetries:   v.GetInt("NOTIFICATION_MAX_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("NOTIFICATION_RETRY_DELAY"), 2*time.Second),
		SupportPhone: v.GetString("SUPPORT_PHONE"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverSQLite)
	v.SetDefault("DB_PATH", "husma_foundation.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "husma_foundation")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("DB_SEED_INVENTORY", true)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "husma-foundation-secret-key-2024")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "husma-donation-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("ADMIN_PASSWORD", "admin123")

	v.SetDefault("DONATION_TAX_RATE", 0.01)
	v.SetDefault("CART_MAX_LINE_QUANTITY", 20)
	v.SetDefault("RECEIPT_PREFIX", "HF")
	v.SetDefault("CART_TTL", "24h")

	v.SetDefault("UPLOADS_DRIVER", UploadDriverLocal)
	v.SetDefault("UPLOADS_DIR", "instance/uploads")
	v.SetDefault("UPLOADS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("UPLOADS_ALLOWED_EXTENSIONS", "png,jpg,jpeg,pdf")
	v.SetDefault("UPLOADS_S3_BUCKET", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("UPLOADS_S3_PREFIX", "payment-slips")

	v.SetDefault("RECEIPTS_DIR", "temp/receipts")
	v.SetDefault("RECEIPTS_SIGNED_URL_SECRET", "dev_receipts_secret")
	v.SetDefault("RECEIPTS_SIGNED_URL_TTL", "30m")
	v.SetDefault("RECEIPTS_RETENTION", "24h")

	v.SetDefault("INVENTORY_ALLOW_NEGATIVE", true)
	v.SetDefault("CRITICAL_STOCK_THRESHOLD", 10)

	v.SetDefault("ENABLE_ANALYTICS_CACHE", false)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("ENABLE_NOTIFICATIONS", true)
	v.SetDefault("NOTIFICATION_WORKERS", 2)
	v.SetDefault("NOTIFICATION_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATION_RETRY_DELAY", "2s")
	v.SetDefault("SUPPORT_PHONE", "0777348822")
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
