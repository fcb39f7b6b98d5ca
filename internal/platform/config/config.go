package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration. Values come from environment
// variables (INTAKE_ prefix) with an optional config.yaml next to the binary.
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Catalog     CatalogConfig
	Recognition RecognitionConfig
	Storage     StorageConfig
}

type AppConfig struct {
	Name    string
	Env     string
	Port    string
	LogMode string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Addr    string
	Channel string
}

type JWTConfig struct {
	Secret string
}

// CatalogConfig points at the external requirement-catalog provider.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// RecognitionConfig points at the external recognition (OCR) backend.
type RecognitionConfig struct {
	BaseURL           string
	APIKey            string
	PollTimeout       time.Duration
	SubmitConcurrency int
	RefreshPollDelay  time.Duration
	CheckingMinHold   time.Duration
	SessionIdleTTL    time.Duration
}

type StorageConfig struct {
	Bucket        string
	PublicBaseURL string
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("INTAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			LogMode: v.GetString("app.log_mode"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("database.host"),
			Port:     v.GetInt("database.port"),
			User:     v.GetString("database.user"),
			Password: v.GetString("database.password"),
			DBName:   v.GetString("database.dbname"),
			SSLMode:  v.GetString("database.sslmode"),
		},
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Catalog: CatalogConfig{
			BaseURL: v.GetString("catalog.base_url"),
			Timeout: v.GetDuration("catalog.timeout"),
		},
		Recognition: RecognitionConfig{
			BaseURL:           v.GetString("recognition.base_url"),
			APIKey:            v.GetString("recognition.api_key"),
			PollTimeout:       v.GetDuration("recognition.poll_timeout"),
			SubmitConcurrency: v.GetInt("recognition.submit_concurrency"),
			RefreshPollDelay:  v.GetDuration("recognition.refresh_poll_delay"),
			CheckingMinHold:   v.GetDuration("recognition.checking_min_hold"),
			SessionIdleTTL:    v.GetDuration("recognition.session_idle_ttl"),
		},
		Storage: StorageConfig{
			Bucket:        v.GetString("storage.bucket"),
			PublicBaseURL: v.GetString("storage.public_base_url"),
		},
	}

	if cfg.JWT.Secret == "" && cfg.App.Env != "development" {
		return nil, fmt.Errorf("jwt.secret is required outside development")
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "intake-backend")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.log_mode", "development")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "intake")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.channel", "recognition")

	v.SetDefault("catalog.timeout", 15*time.Second)

	v.SetDefault("recognition.poll_timeout", 3*time.Second)
	v.SetDefault("recognition.submit_concurrency", 3)
	v.SetDefault("recognition.refresh_poll_delay", 2*time.Second)
	v.SetDefault("recognition.checking_min_hold", 1500*time.Millisecond)
	v.SetDefault("recognition.session_idle_ttl", 30*time.Minute)
}
