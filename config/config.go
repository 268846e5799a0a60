package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	HTTPPort string `mapstructure:"HTTP_PORT"`
	GRPCPort string `mapstructure:"GRPC_PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	RedisAddr  string `mapstructure:"REDIS_ADDR"`

	AccessSecret string `mapstructure:"ACCESS_SECRET"`

	PaymentBaseURL       string        `mapstructure:"PAYMENT_BASE_URL"`
	PaymentSecretKey     string        `mapstructure:"PAYMENT_SECRET_KEY"`
	PaymentWebhookSecret string        `mapstructure:"PAYMENT_WEBHOOK_SECRET"`
	PaymentTimeout       time.Duration `mapstructure:"PAYMENT_TIMEOUT"`
	CheckoutSessionTTL   time.Duration `mapstructure:"CHECKOUT_SESSION_TTL"`
	Currency             string        `mapstructure:"CURRENCY"`

	FrontendURL    string   `mapstructure:"FRONTEND_URL"`
	AllowedOrigins []string `mapstructure:"ALLOWED_ORIGINS"`
	LogLevel       string   `mapstructure:"LOG_LEVEL"`
	StorageDriver  string   `mapstructure:"STORAGE_DRIVER"`
	SeedDemo       bool     `mapstructure:"SEED_DEMO"`
}

var keys = []string{
	"HTTP_PORT", "GRPC_PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "REDIS_ADDR",
	"ACCESS_SECRET",
	"PAYMENT_BASE_URL", "PAYMENT_SECRET_KEY", "PAYMENT_WEBHOOK_SECRET", "PAYMENT_TIMEOUT",
	"CHECKOUT_SESSION_TTL", "CURRENCY",
	"FRONTEND_URL", "ALLOWED_ORIGINS", "LOG_LEVEL", "STORAGE_DRIVER", "SEED_DEMO",
}

func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.SetDefault("HTTP_PORT", ":8080")
	v.SetDefault("GRPC_PORT", ":50051")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("PAYMENT_TIMEOUT", "10s")
	v.SetDefault("CHECKOUT_SESSION_TTL", "30m")
	v.SetDefault("CURRENCY", "USD")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)

	v.AutomaticEnv()
	// Bind explicitly so Unmarshal sees variables without a file
	for _, key := range keys {
		if err = v.BindEnv(key); err != nil {
			return
		}
	}

	// The file is optional, environment alone is enough
	if err = v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.validate()
	return
}

func (c Config) validate() error {
	switch c.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.AccessSecret == "" {
		return fmt.Errorf("config: ACCESS_SECRET is required")
	}
	if c.CheckoutSessionTTL <= 0 || c.PaymentTimeout <= 0 {
		return fmt.Errorf("config: PAYMENT_TIMEOUT and CHECKOUT_SESSION_TTL must be positive")
	}
	return nil
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}
