// Package config centralises configuration parsing for the tracker service.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreFile     = "file"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Config captures runtime configuration values for the tracker service.
type Config struct {
	HTTPAddress     string
	ShutdownTimeout time.Duration
	StaticDir       string
	CORSOrigin      string
	LogFile         string

	StoreDriver string
	DataFile    string
	SQLitePath  string
	PostgresURL string

	AI AIConfig

	KafkaBrokers    []string
	EventsTopic     string
	EventsGroupID   string
	EventsAuditFile string
	MetricsAddress  string

	JWTSecret string
	JWTIssuer string
}

// AIConfig holds the settings for the summarisation collaborator.
type AIConfig struct {
	Endpoint   string
	APIKey     string
	Model      string
	APIType    string
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
	CacheSize  int
	CacheTTL   time.Duration
}

// Enabled reports whether both endpoint and key are present.
func (c AIConfig) Enabled() bool {
	return c.Endpoint != "" && c.APIKey != ""
}

// Load reads environment variables, and the optional file named by
// CONFIG_FILE, into Config. Environment values win over the file.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path := v.GetString("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	cfg := Config{
		HTTPAddress:     v.GetString("HTTP_ADDRESS"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		StaticDir:       strings.TrimSpace(v.GetString("STATIC_DIR")),
		CORSOrigin:      v.GetString("CORS_ALLOWED_ORIGIN"),
		LogFile:         strings.TrimSpace(v.GetString("LOG_FILE")),
		StoreDriver:     strings.ToLower(strings.TrimSpace(v.GetString("STORE_DRIVER"))),
		DataFile:        v.GetString("DATA_FILE"),
		SQLitePath:      v.GetString("SQLITE_PATH"),
		PostgresURL:     v.GetString("POSTGRES_URL"),
		AI: AIConfig{
			Endpoint:   strings.TrimSpace(v.GetString("AZURE_AI_FOUNDRY_ENDPOINT")),
			APIKey:     strings.TrimSpace(v.GetString("AZURE_AI_FOUNDRY_KEY")),
			Model:      v.GetString("AZURE_AI_FOUNDRY_MODEL"),
			APIType:    strings.ToLower(v.GetString("AI_API_TYPE")),
			APIVersion: v.GetString("AI_API_VERSION"),
			Timeout:    v.GetDuration("AI_TIMEOUT"),
			MaxRetries: v.GetInt("AI_MAX_RETRIES"),
			CacheSize:  v.GetInt("AI_CACHE_SIZE"),
			CacheTTL:   v.GetDuration("AI_CACHE_TTL"),
		},
		KafkaBrokers:    splitAndTrim(v.GetString("KAFKA_BROKERS")),
		EventsTopic:     v.GetString("EVENTS_TOPIC"),
		EventsGroupID:   v.GetString("EVENTS_GROUP_ID"),
		EventsAuditFile: strings.TrimSpace(v.GetString("EVENTS_AUDIT_FILE")),
		MetricsAddress:  v.GetString("METRICS_ADDRESS"),
		JWTSecret:       v.GetString("JWT_SECRET"),
		JWTIssuer:       v.GetString("JWT_ISSUER"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDRESS", ":8080")
	v.SetDefault("SHUTDOWN_TIMEOUT", 15*time.Second)
	v.SetDefault("STATIC_DIR", "static")
	v.SetDefault("CORS_ALLOWED_ORIGIN", "*")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("STORE_DRIVER", StoreFile)
	v.SetDefault("DATA_FILE", "activities_data.json")
	v.SetDefault("SQLITE_PATH", "activities.db")
	v.SetDefault("POSTGRES_URL", "")
	v.SetDefault("AZURE_AI_FOUNDRY_ENDPOINT", "")
	v.SetDefault("AZURE_AI_FOUNDRY_KEY", "")
	v.SetDefault("AZURE_AI_FOUNDRY_MODEL", "gpt-5-chat")
	v.SetDefault("AI_API_TYPE", "azure")
	v.SetDefault("AI_API_VERSION", "")
	v.SetDefault("AI_TIMEOUT", 60*time.Second)
	v.SetDefault("AI_MAX_RETRIES", 2)
	v.SetDefault("AI_CACHE_SIZE", 256)
	v.SetDefault("AI_CACHE_TTL", time.Hour)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_TOPIC", "activity_events")
	v.SetDefault("EVENTS_GROUP_ID", "activity-tracker-audit")
	v.SetDefault("EVENTS_AUDIT_FILE", "")
	v.SetDefault("METRICS_ADDRESS", ":9102")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "activity-tracker")
}

// Validate rejects combinations the service cannot start with.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreFile:
		if c.DataFile == "" {
			return fmt.Errorf("config: DATA_FILE is required for the file store")
		}
	case StoreSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("config: POSTGRES_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q (must be file, sqlite or postgres)", c.StoreDriver)
	}
	if c.AI.APIType != "azure" && c.AI.APIType != "openai" {
		return fmt.Errorf("config: unknown AI_API_TYPE %q (must be azure or openai)", c.AI.APIType)
	}
	if c.AI.Timeout <= 0 {
		return fmt.Errorf("config: AI_TIMEOUT must be positive")
	}
	if c.AI.MaxRetries < 0 {
		return fmt.Errorf("config: AI_MAX_RETRIES must not be negative")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: SHUTDOWN_TIMEOUT must be positive")
	}
	if len(c.KafkaBrokers) > 0 && c.EventsTopic == "" {
		return fmt.Errorf("config: EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
