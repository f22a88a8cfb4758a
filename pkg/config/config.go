package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Analytics AnalyticsConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
}

type JWTConfig struct {
	SecretKey string
}

// AnalyticsConfig gates and tunes the split-test pipeline. When Enabled is
// false the recurring scheduler is never registered at startup.
type AnalyticsConfig struct {
	Enabled        bool
	UpdateInterval time.Duration
	Workers        int
	FeatureBudget  time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, errors.New("invalid redis database")
	}

	analyticsEnabled, err := strconv.ParseBool(getEnv("ANALYTICS_ENABLED", "false"))
	if err != nil {
		return nil, errors.New("invalid analytics enabled flag")
	}

	updateInterval, err := time.ParseDuration(getEnv("ANALYTICS_UPDATE_INTERVAL", "15m"))
	if err != nil {
		return nil, errors.New("invalid analytics update interval")
	}

	featureBudget, err := time.ParseDuration(getEnv("ANALYTICS_FEATURE_BUDGET", "5m"))
	if err != nil {
		return nil, errors.New("invalid analytics feature budget")
	}

	workers, err := strconv.Atoi(getEnv("ANALYTICS_WORKERS", "4"))
	if err != nil || workers <= 0 {
		return nil, errors.New("invalid analytics worker count")
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "FlagSplit API"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "flagsplit"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			RedisHost:     getEnv("REDIS_HOST", "localhost"),
			RedisPort:     getEnv("REDIS_PORT", "6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET", ""),
		},
		Analytics: AnalyticsConfig{
			Enabled:        analyticsEnabled,
			UpdateInterval: updateInterval,
			Workers:        workers,
			FeatureBudget:  featureBudget,
		},
	}

	if cfg.JWT.SecretKey == "" {
		return nil, errors.New("missing jwt secret")
	}

	if cfg.Database.Password == "" {
		return nil, errors.New("missing database password")
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return defaultVal
}
