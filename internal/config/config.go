// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Port           string
	OpsPort        string
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
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

// EngineConfig holds the replenishment engine tunables.
type EngineConfig struct {
	TrendWindow         int
	RetentionWindow     int
	DefaultLeadTimeDays int
	ExpiryWarningDays   int
	SpreadMin           float64
	SpreadMax           float64
	WorkerCount         int
	EvalIntervalSeconds int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_OPS_PORT", "9090")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 15)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockpulse")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
		viper.SetDefault("ENGINE_TREND_WINDOW", 4)
		viper.SetDefault("ENGINE_RETENTION_WINDOW", 12)
		viper.SetDefault("ENGINE_DEFAULT_LEAD_TIME_DAYS", 7)
		viper.SetDefault("ENGINE_EXPIRY_WARNING_DAYS", 7)
		viper.SetDefault("ENGINE_SPREAD_MIN", 0.10)
		viper.SetDefault("ENGINE_SPREAD_MAX", 0.30)
		viper.SetDefault("ENGINE_WORKER_COUNT", 4)
		viper.SetDefault("ENGINE_EVAL_INTERVAL_SECONDS", 3600)

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				OpsPort:        viper.GetString("SERVER_OPS_PORT"),
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
				Enabled:           viper.GetBool("CACHE_ENABLED"),
				RedisURL:          viper.GetString("REDIS_URL"),
				RedisHost:         viper.GetString("REDIS_HOST"),
				RedisPort:         viper.GetString("REDIS_PORT"),
				RedisPassword:     viper.GetString("REDIS_PASSWORD"),
				RedisDB:           viper.GetInt("REDIS_DB"),
				SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				TrendWindow:         viper.GetInt("ENGINE_TREND_WINDOW"),
				RetentionWindow:     viper.GetInt("ENGINE_RETENTION_WINDOW"),
				DefaultLeadTimeDays: viper.GetInt("ENGINE_DEFAULT_LEAD_TIME_DAYS"),
				ExpiryWarningDays:   viper.GetInt("ENGINE_EXPIRY_WARNING_DAYS"),
				SpreadMin:           viper.GetFloat64("ENGINE_SPREAD_MIN"),
				SpreadMax:           viper.GetFloat64("ENGINE_SPREAD_MAX"),
				WorkerCount:         viper.GetInt("ENGINE_WORKER_COUNT"),
				EvalIntervalSeconds: viper.GetInt("ENGINE_EVAL_INTERVAL_SECONDS"),
			},
		}
	})

	return instance
}
