// Package config provides configuration management using Viper
package config

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Environment types
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// LogLevel represents the logging level for the application
type LogLevel string

// Available log levels
const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Analytics backend kinds. Resolved once at startup; every engine request
// for the lifetime of the process runs against the same backend.
const (
	SQLiteBackend     = "sqlite"
	ClickHouseBackend = "clickhouse"
)

// Config holds all configuration parameters for the application
type Config struct {
	// Application settings
	AppName     string   `mapstructure:"appname"`
	AppPort     string   `mapstructure:"appport"`
	Environment string   `mapstructure:"environment"`
	LogLevel    LogLevel `mapstructure:"loglevel"`

	// File paths
	DatabasePath string `mapstructure:"storagepath"`
	DatabaseName string `mapstructure:"-"` // Derived from other settings

	// Logging settings
	LogsDirectory    string `mapstructure:"logsdir"`
	LogsMaxSizeInMb  int    `mapstructure:"logsmaxsizeinmb"`
	LogsMaxBackups   int    `mapstructure:"logsmaxbackups"`
	LogsMaxAgeInDays int    `mapstructure:"logsmaxageindays"`

	// Backend settings
	AnalyticsBackend     string `mapstructure:"backend"`
	ClickHouseDSN        string `mapstructure:"clickhousedsn"`
	DatabaseMaxOpenConns int    `mapstructure:"dbmaxopenconns"`
	DatabaseMaxIdleConns int    `mapstructure:"dbmaxidleconns"`

	// Response cache settings (empty address disables the cache)
	RedisAddr       string `mapstructure:"redisaddr"`
	CacheTTLSeconds int    `mapstructure:"cachettlseconds"`

	// Pivot settings. The secondary attribute set and the attribute counted
	// as "user" are deployment configuration, not engine constants.
	PivotAttributesRaw string `mapstructure:"pivotattributes"`
	PivotUserAttribute string `mapstructure:"pivotuserattribute"`
}

var (
	cfg  *Config
	once sync.Once
)

// GetConfig returns the application configuration
func GetConfig() *Config {
	once.Do(func() {
		v := viper.New()

		// Set defaults
		v.SetDefault("appname", "proplens")
		v.SetDefault("appport", "3000")
		v.SetDefault("environment", Development)
		v.SetDefault("loglevel", string(LogLevelDebug))
		v.SetDefault("storagepath", "storage")
		v.SetDefault("logsdir", "logs")
		v.SetDefault("logsmaxsizeinmb", 20)
		v.SetDefault("logsmaxbackups", 10)
		v.SetDefault("logsmaxageindays", 30)
		v.SetDefault("backend", SQLiteBackend)
		v.SetDefault("clickhousedsn", "clickhouse://localhost:9000/proplens")
		v.SetDefault("dbmaxopenconns", 0)
		v.SetDefault("dbmaxidleconns", 0)
		v.SetDefault("redisaddr", "")
		v.SetDefault("cachettlseconds", 60)
		v.SetDefault("pivotattributes", "org_name,click_type,topic_name,user_name")
		v.SetDefault("pivotuserattribute", "user_name")

		// Bind environment variables
		v.BindEnv("appname", "PROPLENS_APP_NAME")
		v.BindEnv("appport", "PROPLENS_APP_PORT")
		v.BindEnv("environment", "PROPLENS_ENV")
		v.BindEnv("loglevel", "PROPLENS_LOG_LEVEL")
		v.BindEnv("storagepath", "PROPLENS_STORAGE_PATH")
		v.BindEnv("logsdir", "PROPLENS_LOGS_DIR")
		v.BindEnv("logsmaxsizeinmb", "PROPLENS_LOGS_MAX_SIZE_IN_MB")
		v.BindEnv("logsmaxbackups", "PROPLENS_LOGS_MAX_BACKUPS")
		v.BindEnv("logsmaxageindays", "PROPLENS_LOGS_MAX_AGE_IN_DAYS")
		v.BindEnv("backend", "PROPLENS_BACKEND")
		v.BindEnv("clickhousedsn", "PROPLENS_CLICKHOUSE_DSN")
		v.BindEnv("dbmaxopenconns", "PROPLENS_DB_MAX_OPEN_CONNS")
		v.BindEnv("dbmaxidleconns", "PROPLENS_DB_MAX_IDLE_CONNS")
		v.BindEnv("redisaddr", "PROPLENS_REDIS_ADDR")
		v.BindEnv("cachettlseconds", "PROPLENS_CACHE_TTL_SECONDS")
		v.BindEnv("pivotattributes", "PROPLENS_PIVOT_ATTRIBUTES")
		v.BindEnv("pivotuserattribute", "PROPLENS_PIVOT_USER_ATTRIBUTE")

		cfg = &Config{}
		if err := v.Unmarshal(cfg); err != nil {
			log.Fatalf("config: failed to unmarshal configuration: %v", err)
		}

		// Validate
		if err := cfg.validate(); err != nil {
			log.Fatalf("config: invalid configuration: %v", err)
		}

		// Set derived values
		cfg.DatabaseName = cfg.GetDatabasePath()
	})
	return cfg
}

// validate checks the configuration for errors
func (c *Config) validate() error {
	validEnvs := map[string]bool{
		Development: true,
		Production:  true,
		Test:        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s", c.Environment)
	}

	validBackends := map[string]bool{
		SQLiteBackend:     true,
		ClickHouseBackend: true,
	}
	if !validBackends[c.AnalyticsBackend] {
		return fmt.Errorf("invalid analytics backend: %s", c.AnalyticsBackend)
	}

	if c.AnalyticsBackend == ClickHouseBackend && c.ClickHouseDSN == "" {
		return fmt.Errorf("clickhouse backend requires PROPLENS_CLICKHOUSE_DSN")
	}

	if len(c.PivotAttributes()) == 0 {
		return fmt.Errorf("pivot attribute list cannot be empty")
	}

	return nil
}

// GetDatabasePath returns the appropriate database path based on environment
func (c *Config) GetDatabasePath() string {
	if c.DatabaseName == "" {
		c.DatabaseName = filepath.Join(c.DatabasePath,
			fmt.Sprintf("%s-%s.db", c.AppName, c.Environment))
	}
	return c.DatabaseName
}

// PivotAttributes returns the configured secondary attribute names for the
// pivot engine, in declaration order with blanks removed.
func (c *Config) PivotAttributes() []string {
	parts := strings.Split(c.PivotAttributesRaw, ",")
	attrs := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			attrs = append(attrs, name)
		}
	}
	return attrs
}

// IsDevelopment returns true if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == Development
}

// IsProduction returns true if the environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// IsTest returns true if the environment is test
func (c *Config) IsTest() bool {
	return c.Environment == Test
}

// GetMaxOpenConns returns the appropriate MaxOpenConns value based on environment
// If explicitly set via env var, uses that value. Otherwise:
// - Test: 1 (required for stability with shared in-memory databases)
// - Development/Production: 10 (allows concurrent reads for parallel queries)
func (c *Config) GetMaxOpenConns() int {
	if c.DatabaseMaxOpenConns > 0 {
		return c.DatabaseMaxOpenConns
	}

	if c.Environment == Test {
		return 1
	}

	return 10
}

// GetMaxIdleConns returns the appropriate MaxIdleConns value based on environment
func (c *Config) GetMaxIdleConns() int {
	if c.DatabaseMaxIdleConns > 0 {
		return c.DatabaseMaxIdleConns
	}

	if c.Environment == Test {
		return 1
	}

	return 5
}

// Reset clears the cached configuration; intended for tests.
func Reset() {
	once = sync.Once{}
	cfg = nil
}
