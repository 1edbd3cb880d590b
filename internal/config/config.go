package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Cache       CacheConfig
	Procurement ProcurementConfig
	Batch       BatchConfig
	Export      ExportConfig
	LogLevel    string
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// ProcurementConfig carries tenant-level defaults and thresholds for the
// recommendation engine. The batch passes these in explicitly per run.
type ProcurementConfig struct {
	DefaultLeadTimeDays    int
	DefaultSafetyStockDays int
	DefaultMinOrderQty     int
	HighValueThreshold     float64
	StockoutLookbackDays   int
}

type BatchConfig struct {
	Workers        int
	RetryAttempts  int
	RetryBackoffMS int
	HistoryDays    int
	HorizonDays    int
}

type ExportConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("LOG_LEVEL", "info")

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockpilot")
		viper.SetDefault("DB_SSLMODE", "disable")

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 60)

		viper.SetDefault("PROC_DEFAULT_LEAD_TIME_DAYS", 14)
		viper.SetDefault("PROC_DEFAULT_SAFETY_STOCK_DAYS", 3)
		viper.SetDefault("PROC_DEFAULT_MIN_ORDER_QTY", 1)
		viper.SetDefault("PROC_HIGH_VALUE_THRESHOLD", 10000.0)
		viper.SetDefault("PROC_STOCKOUT_LOOKBACK_DAYS", 30)

		viper.SetDefault("BATCH_WORKERS", 8)
		viper.SetDefault("BATCH_RETRY_ATTEMPTS", 3)
		viper.SetDefault("BATCH_RETRY_BACKOFF_MS", 200)
		viper.SetDefault("BATCH_HISTORY_DAYS", 60)
		viper.SetDefault("BATCH_HORIZON_DAYS", 14)

		viper.SetDefault("EXPORT_ENABLED", false)
		viper.SetDefault("EXPORT_ENDPOINT", "")
		viper.SetDefault("EXPORT_ACCESS_KEY", "")
		viper.SetDefault("EXPORT_SECRET_KEY", "")
		viper.SetDefault("EXPORT_BUCKET", "stockpilot-reports")
		viper.SetDefault("EXPORT_REGION", "us-east-1")
		viper.SetDefault("EXPORT_USE_SSL", true)

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Procurement: ProcurementConfig{
				DefaultLeadTimeDays:    viper.GetInt("PROC_DEFAULT_LEAD_TIME_DAYS"),
				DefaultSafetyStockDays: viper.GetInt("PROC_DEFAULT_SAFETY_STOCK_DAYS"),
				DefaultMinOrderQty:     viper.GetInt("PROC_DEFAULT_MIN_ORDER_QTY"),
				HighValueThreshold:     viper.GetFloat64("PROC_HIGH_VALUE_THRESHOLD"),
				StockoutLookbackDays:   viper.GetInt("PROC_STOCKOUT_LOOKBACK_DAYS"),
			},
			Batch: BatchConfig{
				Workers:        viper.GetInt("BATCH_WORKERS"),
				RetryAttempts:  viper.GetInt("BATCH_RETRY_ATTEMPTS"),
				RetryBackoffMS: viper.GetInt("BATCH_RETRY_BACKOFF_MS"),
				HistoryDays:    viper.GetInt("BATCH_HISTORY_DAYS"),
				HorizonDays:    viper.GetInt("BATCH_HORIZON_DAYS"),
			},
			Export: ExportConfig{
				Enabled:   viper.GetBool("EXPORT_ENABLED"),
				Endpoint:  viper.GetString("EXPORT_ENDPOINT"),
				AccessKey: viper.GetString("EXPORT_ACCESS_KEY"),
				SecretKey: viper.GetString("EXPORT_SECRET_KEY"),
				Bucket:    viper.GetString("EXPORT_BUCKET"),
				Region:    viper.GetString("EXPORT_REGION"),
				UseSSL:    viper.GetBool("EXPORT_USE_SSL"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}
