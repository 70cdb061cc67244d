package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL       string
	Port              string
	IsProduction      bool
	EnableDBCheck     bool
	JWTSecret         string
	JWTIssuer         string
	StorageDriver     string
	RedisURL          string   // empty disables Redis; rate limiting and websocket fan-out stay in-process
	RateLimit         string   // ulule/limiter formatted rate, e.g. "100-M"
	PostHogAPIKey     string   `mapstructure:"POSTHOG_API_KEY"`
	PostHogHost       string   `mapstructure:"POSTHOG_HOST"`
	CORSAllowOrigins  []string // CORS_ALLOWED_ORIGINS, comma separated
	Timezone          string   // IANA zone deciding where a due date's end of day falls
	Location          *time.Location
	EventQueueSize    int
	NotifyQueueSize   int
	ShutdownTimeout   time.Duration
	SeedDemoData      bool
	NotifySenderEmail string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "library-circulation-app")
	viper.SetDefault("STORAGE_DRIVER", StorageDriverPostgres)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("POSTHOG_API_KEY", "")
	viper.SetDefault("POSTHOG_HOST", "https://us.i.posthog.com")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("LIBRARY_TIMEZONE", "Local")
	viper.SetDefault("EVENT_QUEUE_SIZE", 256)
	viper.SetDefault("NOTIFY_QUEUE_SIZE", 64)
	viper.SetDefault("SHUTDOWN_TIMEOUT", "5s")
	viper.SetDefault("SEED_DEMO_DATA", false)
	viper.SetDefault("NOTIFY_SENDER_EMAIL", "library@localhost")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if cfg.StorageDriver != StorageDriverPostgres && cfg.StorageDriver != StorageDriverMemory {
		log.Printf("Warning: unknown STORAGE_DRIVER %q. Defaulting to %s.\n", cfg.StorageDriver, StorageDriverPostgres)
		cfg.StorageDriver = StorageDriverPostgres
	}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" && cfg.StorageDriver == StorageDriverPostgres {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	if cfg.Port == "" {
		cfg.Port = "8080" // Default port
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	cfg.JWTSecret = viper.GetString("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "a-very-secret-key-should-be-longer-and-random" // !! CHANGE IN PRODUCTION !!
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}

	cfg.JWTIssuer = viper.GetString("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "library-circulation-app"
		log.Printf("Warning: JWT_ISSUER not set. Defaulting to %s.\n", cfg.JWTIssuer)
	}

	cfg.Timezone = viper.GetString("LIBRARY_TIMEZONE")
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Printf("Warning: Invalid LIBRARY_TIMEZONE ('%s'). Defaulting to Local.\n", cfg.Timezone)
		loc = time.Local
	}
	cfg.Location = loc

	shutdownStr := viper.GetString("SHUTDOWN_TIMEOUT")
	cfg.ShutdownTimeout, err = time.ParseDuration(shutdownStr)
	if err != nil {
		cfg.ShutdownTimeout = 5 * time.Second
		log.Printf("Warning: Invalid value for SHUTDOWN_TIMEOUT ('%s'). Defaulting to %s.\n", shutdownStr, cfg.ShutdownTimeout)
	}

	cfg.EventQueueSize = viper.GetInt("EVENT_QUEUE_SIZE")
	if cfg.EventQueueSize <= 0 {
		cfg.EventQueueSize = 256
	}
	cfg.NotifyQueueSize = viper.GetInt("NOTIFY_QUEUE_SIZE")
	if cfg.NotifyQueueSize <= 0 {
		cfg.NotifyQueueSize = 64
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowOrigins = append(cfg.CORSAllowOrigins, origin)
		}
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.RedisURL = viper.GetString("REDIS_URL")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")
	cfg.PostHogAPIKey = viper.GetString("POSTHOG_API_KEY")
	cfg.PostHogHost = viper.GetString("POSTHOG_HOST")
	cfg.SeedDemoData = viper.GetBool("SEED_DEMO_DATA")
	cfg.NotifySenderEmail = viper.GetString("NOTIFY_SENDER_EMAIL")

	return cfg, nil
}

// Now returns the current time in the library's time zone.
func (c *Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}
