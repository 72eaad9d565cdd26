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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Attendance AttendanceConfig
	Cache      CacheConfig
	Backfill   BackfillConfig
	Kafka      KafkaConfig
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
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the verification settings for tokens issued by the identity provider.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AttendanceConfig tunes the calculation engine.
type AttendanceConfig struct {
	DefaultTargetPercentage float64
	// Holidays mixes recurring MM-DD entries with one-off YYYY-MM-DD entries.
	// Empty means the built-in table.
	Holidays []string
	// MaxWindowDays caps the calendar span any single request may iterate.
	MaxWindowDays int
}

// CacheConfig governs the Redis read-through cache for dashboard reads.
type CacheConfig struct {
	Enabled       bool
	ProjectionTTL time.Duration
	StatsTTL      time.Duration
}

// BackfillConfig configures the absent-backfill worker pool.
type BackfillConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// KafkaConfig enables the attendance event feed when Brokers is non-empty.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
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
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: v.GetString("JWT_AUDIENCE"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	target := v.GetFloat64("DEFAULT_TARGET_PERCENTAGE")
	if target <= 0 || target > 100 {
		target = 75
	}
	maxWindow := v.GetInt("MAX_WINDOW_DAYS")
	if maxWindow <= 0 {
		maxWindow = 731
	}
	cfg.Attendance = AttendanceConfig{
		DefaultTargetPercentage: target,
		Holidays:                splitAndTrim(v.GetString("HOLIDAYS")),
		MaxWindowDays:           maxWindow,
	}

	cfg.Cache = CacheConfig{
		Enabled:       v.GetBool("ENABLE_CACHE"),
		ProjectionTTL: parseDuration(v.GetString("PROJECTION_CACHE_TTL"), 10*time.Minute),
		StatsTTL:      parseDuration(v.GetString("STATS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Backfill = BackfillConfig{
		Workers:    v.GetInt("BACKFILL_WORKERS"),
		MaxRetries: v.GetInt("BACKFILL_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("BACKFILL_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Kafka = KafkaConfig{
		Brokers:      splitAndTrim(v.GetString("KAFKA_BROKERS")),
		Topic:        v.GetString("KAFKA_ATTENDANCE_TOPIC"),
		WriteTimeout: parseDuration(v.GetString("KAFKA_WRITE_TIMEOUT"), 5*time.Second),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "attendance_tracker")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("DEFAULT_TARGET_PERCENTAGE", 75)
	v.SetDefault("HOLIDAYS", "")
	v.SetDefault("MAX_WINDOW_DAYS", 731)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("PROJECTION_CACHE_TTL", "10m")
	v.SetDefault("STATS_CACHE_TTL", "5m")

	v.SetDefault("BACKFILL_WORKERS", 2)
	v.SetDefault("BACKFILL_MAX_RETRIES", 3)
	v.SetDefault("BACKFILL_RETRY_DELAY", "5s")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_ATTENDANCE_TOPIC", "attendance.marked")
	v.SetDefault("KAFKA_WRITE_TIMEOUT", "5s")
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
