// Package config loads petchain-anchor configuration with Viper.
//
// Sources, lowest to highest precedence: built-in defaults, an optional
// anchor.toml config file, then PETCHAIN_-prefixed environment variables.
// Sensitive values (signing seed, encryption secret) are expected to arrive
// via environment in any real deployment.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/DogStark/petchain-anchor/errors"
)

// Config represents the anchoring service configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Server     ServerConfig     `mapstructure:"server"`
	Ledger     LedgerConfig     `mapstructure:"ledger"`
	Store      StoreConfig      `mapstructure:"store"`
	Encryption EncryptionConfig `mapstructure:"encryption"`
}

// DatabaseConfig configures the SQLite sync-state database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LedgerConfig configures the Stellar ledger client.
// An empty SigningSeed is valid: the client runs in read-only/degraded mode
// and anchoring calls fail with ErrLedgerNotConfigured.
type LedgerConfig struct {
	Network        string `mapstructure:"network"`     // "testnet" or "pubnet"
	HorizonURL     string `mapstructure:"horizon_url"` // empty = network default
	SigningSeed    string `mapstructure:"signing_seed"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// StoreConfig configures the content-addressable store client
type StoreConfig struct {
	APIURL         string `mapstructure:"api_url"` // IPFS HTTP API base, e.g. http://localhost:5001
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// EncryptionConfig configures payload encryption
type EncryptionConfig struct {
	Secret string `mapstructure:"secret"`
}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "anchor.db")

	v.SetDefault("server.addr", ":8730")

	v.SetDefault("ledger.network", "testnet")
	v.SetDefault("ledger.horizon_url", "")
	v.SetDefault("ledger.timeout_seconds", 30)

	v.SetDefault("store.api_url", "http://localhost:5001")
	v.SetDefault("store.timeout_seconds", 60)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("ledger.signing_seed", "PETCHAIN_LEDGER_SIGNING_SEED")
	v.BindEnv("encryption.secret", "PETCHAIN_ENCRYPTION_SECRET")
	v.BindEnv("database.path", "PETCHAIN_DATABASE_PATH")
}

// Load reads configuration from defaults, anchor.toml (working directory,
// if present), and PETCHAIN_* environment variables.
func Load() (*Config, error) {
	v := NewViper()

	v.SetConfigName("anchor")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults + env carry the service
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "failed to read config file")
		}
	}

	return LoadWithViper(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := NewViper()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}

	return LoadWithViper(v)
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// NewViper initializes a Viper instance with environment binding and defaults
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetEnvPrefix("PETCHAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	BindSensitiveEnvVars(v)
	SetDefaults(v)

	return v
}
