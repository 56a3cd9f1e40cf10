package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SORTING_LOCAL_DB_HOST.
const EnvPrefix = "SORTING"

// DatabaseConfig describes the local report store.
type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Path     string // sqlite file path
	MaxConns int
	MaxIdle  int
}

// GetDSN returns the driver-specific connection string.
func (c *DatabaseConfig) GetDSN() string {
	if c.Driver == "sqlite" {
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", c.Path)
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// ReferenceConfig describes the read-only external reference store.
type ReferenceConfig struct {
	Enabled      bool
	Driver       string
	DSN          string
	Schema       string
	Placeholder  string // "question" or "dollar"
	QueryTimeout time.Duration
}

// RedisConfig backs the lookup cache.
type RedisConfig struct {
	Enabled   bool
	Addr      string
	Password  string
	DB        int
	LookupTTL time.Duration
}

// Config is the process configuration.
type Config struct {
	HTTP struct {
		Addr string
	}
	Log struct {
		Level  string
		Format string
	}
	LocalDB   DatabaseConfig
	Reference ReferenceConfig
	Redis     RedisConfig
	Query     struct {
		PageSize      int
		DefaultPreset string
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("local_db.driver", "postgres")
	v.SetDefault("local_db.host", "localhost")
	v.SetDefault("local_db.port", 5432)
	v.SetDefault("local_db.user", "postgres")
	v.SetDefault("local_db.password", "postgres")
	v.SetDefault("local_db.database", "scrap_data")
	v.SetDefault("local_db.sslmode", "disable")
	v.SetDefault("local_db.path", "scrap_data.db")
	v.SetDefault("local_db.max_conns", 10)
	v.SetDefault("local_db.max_idle", 5)

	v.SetDefault("reference.enabled", true)
	v.SetDefault("reference.driver", "odbc")
	v.SetDefault("reference.dsn", "DSN=STAAMP_DB;ArrayFetchOn=1;ArrayBufferSize=8;TransportHint=TCP;DecimalSymbol=,;readonly=True;")
	v.SetDefault("reference.schema", "STAAMPDB")
	v.SetDefault("reference.placeholder", "question")
	v.SetDefault("reference.query_timeout", 10*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lookup_ttl", 15*time.Minute)

	v.SetDefault("query.page_size", 50)
	v.SetDefault("query.default_preset", "last_30_days")
}

// Load reads defaults, then the optional config file, then SORTING_* env vars.
// An empty path searches ./config.yaml; a missing file is not an error unless
// the path was given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	cfg.HTTP.Addr = v.GetString("http.addr")
	cfg.Log.Level = v.GetString("log.level")
	cfg.Log.Format = v.GetString("log.format")

	cfg.LocalDB = DatabaseConfig{
		Driver:   v.GetString("local_db.driver"),
		Host:     v.GetString("local_db.host"),
		Port:     v.GetInt("local_db.port"),
		User:     v.GetString("local_db.user"),
		Password: v.GetString("local_db.password"),
		Database: v.GetString("local_db.database"),
		SSLMode:  v.GetString("local_db.sslmode"),
		Path:     v.GetString("local_db.path"),
		MaxConns: v.GetInt("local_db.max_conns"),
		MaxIdle:  v.GetInt("local_db.max_idle"),
	}

	cfg.Reference = ReferenceConfig{
		Enabled:      v.GetBool("reference.enabled"),
		Driver:       v.GetString("reference.driver"),
		DSN:          v.GetString("reference.dsn"),
		Schema:       v.GetString("reference.schema"),
		Placeholder:  v.GetString("reference.placeholder"),
		QueryTimeout: v.GetDuration("reference.query_timeout"),
	}

	cfg.Redis = RedisConfig{
		Enabled:   v.GetBool("redis.enabled"),
		Addr:      v.GetString("redis.addr"),
		Password:  v.GetString("redis.password"),
		DB:        v.GetInt("redis.db"),
		LookupTTL: v.GetDuration("redis.lookup_ttl"),
	}

	cfg.Query.PageSize = v.GetInt("query.page_size")
	cfg.Query.DefaultPreset = v.GetString("query.default_preset")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the process cannot work with.
func (c *Config) Validate() error {
	switch c.LocalDB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported local_db.driver %q", c.LocalDB.Driver)
	}
	switch c.Reference.Placeholder {
	case "question", "dollar":
	default:
		return fmt.Errorf("unsupported reference.placeholder %q", c.Reference.Placeholder)
	}
	if c.Query.PageSize <= 0 {
		return fmt.Errorf("query.page_size must be positive, got %d", c.Query.PageSize)
	}
	return nil
}
