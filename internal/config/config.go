// Package config provides configuration loading for orbit-setup.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "ORBIT_SETUP"

// Config holds all configuration for the application.
type Config struct {
	Storage     StorageConfig     `mapstructure:"storage"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	ParentChain ParentChainConfig `mapstructure:"parent_chain"`
	Signer      SignerConfig      `mapstructure:"signer"`
	Deploy      DeployConfig      `mapstructure:"deploy"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// StorageConfig selects where the deployment session is kept.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // leveldb, redis, postgres, memory
	Path    string `mapstructure:"path"`    // leveldb directory
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL returns the PostgreSQL URL form used by migrations.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ParentChainConfig holds parent chain connection settings.
type ParentChainConfig struct {
	// RPCURL is the endpoint transactions are sent through. It is written
	// into the node config only for parent chains without a known public
	// endpoint and without PublicRPCURL.
	RPCURL string `mapstructure:"rpc_url"`
	// PublicRPCURL is written into the node and L3 config in place of the
	// known public endpoint.
	PublicRPCURL string `mapstructure:"public_rpc_url"`
	// RollupCreator overrides the well-known RollupCreator address.
	RollupCreator       string        `mapstructure:"rollup_creator"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
}

// SignerConfig holds the deployer account's signing settings. Either a local
// private key or a remote signer endpoint is used.
type SignerConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	Address    string `mapstructure:"address"`
	ClientCert string `mapstructure:"client_cert"`
	ClientKey  string `mapstructure:"client_key"`
	CACert     string `mapstructure:"ca_cert"`
}

// Remote reports whether a remote signer is configured.
func (c SignerConfig) Remote() bool {
	return c.Endpoint != ""
}

// DeployConfig holds deployment behavior settings.
type DeployConfig struct {
	PersistAttempts uint          `mapstructure:"persist_attempts"`
	PersistDelay    time.Duration `mapstructure:"persist_delay"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

// SlogLevel parses the configured level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// MetricsConfig holds metrics export settings.
type MetricsConfig struct {
	// Textfile, when set, receives the metrics in Prometheus text format
	// after every command.
	Textfile string `mapstructure:"textfile"`
}

// Load reads configuration from an explicit file or the default search
// paths, then applies environment variable overrides.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home + "/.orbit-setup")
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Secrets are commonly provided only through the environment.
	_ = v.BindEnv("signer.private_key", EnvPrefix+"_SIGNER_PRIVATE_KEY")
	_ = v.BindEnv("signer.api_key", EnvPrefix+"_SIGNER_API_KEY")
	_ = v.BindEnv("database.password", EnvPrefix+"_DATABASE_PASSWORD")
	_ = v.BindEnv("redis.password", EnvPrefix+"_REDIS_PASSWORD")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	path, err := homedir.Expand(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("expand storage path: %w", err)
	}
	cfg.Storage.Path = path

	return &cfg, nil
}

// setDefaults configures default values for all settings.
func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.backend", "leveldb")
	v.SetDefault("storage.path", "~/.orbit-setup/state")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "orbit")
	v.SetDefault("database.password", "orbit")
	v.SetDefault("database.database", "orbit_setup")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("parent_chain.rpc_url", "")
	v.SetDefault("parent_chain.public_rpc_url", "")
	v.SetDefault("parent_chain.rollup_creator", "")
	v.SetDefault("parent_chain.confirmation_timeout", "5m")
	v.SetDefault("parent_chain.poll_interval", "2s")

	v.SetDefault("signer.private_key", "")
	v.SetDefault("signer.endpoint", "")
	v.SetDefault("signer.api_key", "")
	v.SetDefault("signer.address", "")

	v.SetDefault("deploy.persist_attempts", 3)
	v.SetDefault("deploy.persist_delay", "1s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("metrics.textfile", "")
}
