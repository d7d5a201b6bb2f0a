// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig              `mapstructure:"app"`
	SIEM       SIEMConfig             `mapstructure:"siem"`
	Schema     map[string]EventSchema `mapstructure:"schema"`
	TimeRanges map[string]string      `mapstructure:"time_ranges"`
	Limits     LimitsConfig           `mapstructure:"limits"`
	Database   DatabaseConfig         `mapstructure:"database"`
	Cache      CacheConfig            `mapstructure:"cache"`
	Logging    LoggingConfig          `mapstructure:"logging"`
	Metrics    MetricsConfig          `mapstructure:"metrics"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// SIEMConfig holds connection settings for the ELK-based search backend
// plus the index pattern overrides used by the query generator.
type SIEMConfig struct {
	Type        string            `mapstructure:"type"` // elastic or wazuh
	Host        string            `mapstructure:"host"`
	Port        int               `mapstructure:"port"`
	Scheme      string            `mapstructure:"scheme"`
	Username    string            `mapstructure:"username"`
	Password    string            `mapstructure:"password"`
	VerifyCerts bool              `mapstructure:"verify_certs"`
	Timeout     int               `mapstructure:"timeout"` // milliseconds
	Indices     map[string]string `mapstructure:"indices"`
}

// GetURL returns the backend address in URL form.
func (s SIEMConfig) GetURL() string {
	return fmt.Sprintf("%s://%s:%d", s.Scheme, s.Host, s.Port)
}

// EventSchema carries the per-category query metadata attached to parsed
// intents and consumed by the query generator.
type EventSchema struct {
	Description string                 `mapstructure:"description"`
	Conditions  map[string]interface{} `mapstructure:"conditions"`
}

// LimitsConfig holds the numeric bounds for generated queries.
type LimitsConfig struct {
	MaxResults      int `mapstructure:"max_results"`
	DefaultSize     int `mapstructure:"default_size"`
	AggregationSize int `mapstructure:"aggregation_size"`
	MaxHistory      int `mapstructure:"max_history"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the Redis read-through cache for backend responses.
type CacheConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLSeconds int  `mapstructure:"ttl_seconds"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
