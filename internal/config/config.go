// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "your-secret-key-change-in-production"

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	Env  string `mapstructure:"APP_ENV"`
	Port string `mapstructure:"PORT"`

	JWTSecret   string `mapstructure:"JWT_SECRET"`
	JWTIssuer   string `mapstructure:"JWT_ISSUER"`
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	DBDriver                 string `mapstructure:"DB_DRIVER"`
	DBHost                   string `mapstructure:"DB_HOST"`
	DBPort                   string `mapstructure:"DB_PORT"`
	DBUser                   string `mapstructure:"DB_USER"`
	DBPassword               string `mapstructure:"DB_PASSWORD"`
	DBName                   string `mapstructure:"DB_NAME"`
	DBSSLMode                string `mapstructure:"DB_SSLMODE"`
	DBPath                   string `mapstructure:"DB_PATH"`
	DBMaxOpenConns           int    `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBMaxIdleConns           int    `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBConnMaxLifetimeMinutes int    `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSchemaMode             string `mapstructure:"DB_SCHEMA_MODE"`

	// DBAutoMigrateAllowDestructive permits DB_SCHEMA_MODE=auto in production-like envs.
	DBAutoMigrateAllowDestructive bool `mapstructure:"DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE"`
	DBLogLevel                    string `mapstructure:"DB_LOG_LEVEL"`
	LogLevel                      string `mapstructure:"LOG_LEVEL"`

	RedisURL       string `mapstructure:"REDIS_URL"`
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	FeatureFlags   string `mapstructure:"FEATURE_FLAGS"`

	// StaffOverride lets staff read and edit content regardless of privacy tier.
	StaffOverride bool `mapstructure:"VISIBILITY_STAFF_OVERRIDE"`

	UserPageSize    int `mapstructure:"PAGE_SIZE_USERS"`
	FollowPageSize  int `mapstructure:"PAGE_SIZE_FOLLOWS"`
	PostPageSize    int `mapstructure:"PAGE_SIZE_POSTS"`
	CommentPageSize int `mapstructure:"PAGE_SIZE_COMMENTS"`
	MaxPageSize     int `mapstructure:"MAX_PAGE_SIZE"`

	PaymentStoreID       string `mapstructure:"PAYMENT_STORE_ID"`
	PaymentStorePassword string `mapstructure:"PAYMENT_STORE_PASSWORD"`
	PaymentSandbox       bool   `mapstructure:"PAYMENT_SANDBOX"`
	PaymentBaseURL       string `mapstructure:"PAYMENT_BASE_URL"`
	BackendURL           string `mapstructure:"BACKEND_URL"`
	FrontendURL          string `mapstructure:"FRONTEND_URL"`

	TracingEnabled      bool    `mapstructure:"TRACING_ENABLED"`
	TracingExporter     string  `mapstructure:"TRACING_EXPORTER"`
	TracingEndpoint     string  `mapstructure:"TRACING_OTLP_ENDPOINT"`
	TracingSamplerRatio float64 `mapstructure:"TRACING_SAMPLER_RATIO"`

	DevBootstrapRoot bool   `mapstructure:"DEV_BOOTSTRAP_ROOT"`
	DevRootUsername  string `mapstructure:"DEV_ROOT_USERNAME"`
	DevRootEmail     string `mapstructure:"DEV_ROOT_EMAIL"`
	DevRootPassword  string `mapstructure:"DEV_ROOT_PASSWORD"`
	SeedScenario     string `mapstructure:"SEED_SCENARIO"`
}

// IsProduction reports whether the config targets a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// LoadConfig loads application configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.SetConfigName("config")
	viper.SetConfigType("yml")
	viper.AutomaticEnv()

	// The base config file is optional; env vars and defaults cover everything.
	_ = viper.ReadInConfig()

	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	if env != "development" && env != "test" {
		viper.SetConfigName("config." + env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("required profile-specific config 'config.%s.yml' not found: %w", env, err)
		}
		log.Printf("Loaded profile-specific configuration: config.%s.yml", env)
	}

	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("PORT", "8375")
	viper.SetDefault("JWT_SECRET", defaultJWTSecret)
	viper.SetDefault("JWT_ISSUER", "snapverse-api")
	viper.SetDefault("JWT_AUDIENCE", "snapverse-client")

	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "user")
	viper.SetDefault("DB_PASSWORD", "password")
	viper.SetDefault("DB_NAME", "snapverse")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "snapverse.db")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 5)
	viper.SetDefault("DB_SCHEMA_MODE", "")
	viper.SetDefault("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE", false)
	viper.SetDefault("DB_LOG_LEVEL", "warn")
	viper.SetDefault("LOG_LEVEL", "info")

	viper.SetDefault("REDIS_URL", "localhost:6379")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173")
	viper.SetDefault("FEATURE_FLAGS", "pro_subscriptions=on,user_search=on")
	viper.SetDefault("VISIBILITY_STAFF_OVERRIDE", true)

	viper.SetDefault("PAGE_SIZE_USERS", 10)
	viper.SetDefault("PAGE_SIZE_FOLLOWS", 20)
	viper.SetDefault("PAGE_SIZE_POSTS", 10)
	viper.SetDefault("PAGE_SIZE_COMMENTS", 10)
	viper.SetDefault("MAX_PAGE_SIZE", 100)

	viper.SetDefault("PAYMENT_STORE_ID", "")
	viper.SetDefault("PAYMENT_STORE_PASSWORD", "")
	viper.SetDefault("PAYMENT_SANDBOX", true)
	viper.SetDefault("PAYMENT_BASE_URL", "")
	viper.SetDefault("BACKEND_URL", "http://localhost:8375")
	viper.SetDefault("FRONTEND_URL", "http://localhost:5173")

	viper.SetDefault("TRACING_ENABLED", false)
	viper.SetDefault("TRACING_EXPORTER", "stdout")
	viper.SetDefault("TRACING_OTLP_ENDPOINT", "localhost:4318")
	viper.SetDefault("TRACING_SAMPLER_RATIO", 1.0)

	viper.SetDefault("DEV_BOOTSTRAP_ROOT", false)
	viper.SetDefault("DEV_ROOT_USERNAME", "snapverse_root")
	viper.SetDefault("DEV_ROOT_EMAIL", "root@snapverse.local")
	viper.SetDefault("DEV_ROOT_PASSWORD", "")
	viper.SetDefault("SEED_SCENARIO", "")
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.DBDriver = strings.ToLower(strings.TrimSpace(c.DBDriver))
	c.DBSSLMode = strings.ToLower(strings.TrimSpace(c.DBSSLMode))
	c.DBSchemaMode = strings.ToLower(strings.TrimSpace(c.DBSchemaMode))
	c.DBLogLevel = strings.ToLower(strings.TrimSpace(c.DBLogLevel))
	c.TracingExporter = strings.ToLower(strings.TrimSpace(c.TracingExporter))
	c.BackendURL = strings.TrimRight(strings.TrimSpace(c.BackendURL), "/")
	c.FrontendURL = strings.TrimRight(strings.TrimSpace(c.FrontendURL), "/")
}

// Validate ensures that required configuration values are present and meet security standards.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.DBDriver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DBDriver)
	}
	if c.MaxPageSize < 0 {
		return errors.New("MAX_PAGE_SIZE must not be negative")
	}
	for name, size := range map[string]int{
		"PAGE_SIZE_USERS":    c.UserPageSize,
		"PAGE_SIZE_FOLLOWS":  c.FollowPageSize,
		"PAGE_SIZE_POSTS":    c.PostPageSize,
		"PAGE_SIZE_COMMENTS": c.CommentPageSize,
	} {
		if c.MaxPageSize > 0 && size > c.MaxPageSize {
			return fmt.Errorf("%s (%d) exceeds MAX_PAGE_SIZE (%d)", name, size, c.MaxPageSize)
		}
	}

	// Strict checks for production
	if c.IsProduction() {
		if c.JWTSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.DBDriver == "sqlite" {
			return errors.New("DB_DRIVER=sqlite is not supported in production")
		}
		if c.DBPassword == "password" || c.DBPassword == "" {
			return errors.New("a strong DB_PASSWORD is required in production")
		}
		if c.DBSSLMode == "disable" || c.DBSSLMode == "" {
			return errors.New("DB_SSLMODE must enable SSL in production")
		}
		if !c.PaymentSandbox && (c.PaymentStoreID == "" || c.PaymentStorePassword == "") {
			return errors.New("PAYMENT_STORE_ID and PAYMENT_STORE_PASSWORD are required for live payments")
		}
		if c.AllowedOrigins == "*" {
			log.Println("WARNING: ALLOWED_ORIGINS is set to '*' in production. This is insecure.")
		}
	} else if len(c.JWTSecret) < 32 {
		log.Println("WARNING: JWT_SECRET is shorter than 32 characters. Consider using a stronger secret for production.")
	}

	return nil
}
