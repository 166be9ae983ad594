// Package config loads server settings from defaults, an optional config
// file, GOJSONDB_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every key when reading the environment,
// e.g. GOJSONDB_DATA_DIR.
const EnvPrefix = "GOJSONDB"

// Config holds every setting the server reads at startup.
type Config struct {
	Port               int           `mapstructure:"port"`
	DataDir            string        `mapstructure:"data_dir"`
	SyncWrites         bool          `mapstructure:"sync_writes"`
	CompactionInterval time.Duration `mapstructure:"compaction_interval"`
	BackupFile         string        `mapstructure:"backup_file"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	RateLimit          float64       `mapstructure:"rate_limit"`
	RateBurst          int           `mapstructure:"rate_burst"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Port:      7999,
		DataDir:   ".",
		LogLevel:  "info",
		LogFormat: "console",
		RateBurst: 50,
	}
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.CompactionInterval < 0 {
		errs = append(errs, fmt.Errorf("compaction_interval must not be negative"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative"))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_burst must be at least 1 when rate_limit is set"))
	}
	return errors.Join(errs...)
}

// Load resolves the configuration. configFile may be empty; flags may be
// nil. A flag's default only applies when no other layer sets the key.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	defaults := Defaults()
	v.SetDefault("port", defaults.Port)
	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("sync_writes", defaults.SyncWrites)
	v.SetDefault("compaction_interval", defaults.CompactionInterval)
	v.SetDefault("backup_file", defaults.BackupFile)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("log_format", defaults.LogFormat)
	v.SetDefault("rate_limit", defaults.RateLimit)
	v.SetDefault("rate_burst", defaults.RateBurst)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return Config{}, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// RegisterFlags adds one flag per key to fs, named with dashes.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.Int("port", d.Port, "HTTP listen port")
	fs.String("data-dir", d.DataDir, "directory relative collection log paths resolve against")
	fs.Bool("sync-writes", d.SyncWrites, "fsync the log after every append")
	fs.Duration("compaction-interval", d.CompactionInterval, "compact every persistent collection at this interval (0 disables)")
	fs.String("backup-file", d.BackupFile, "file POST /admin/backup writes to (empty disables)")
	fs.String("log-level", d.LogLevel, "debug, info, warn or error")
	fs.String("log-format", d.LogFormat, "console or json")
	fs.Float64("rate-limit", d.RateLimit, "requests per second per client (0 disables)")
	fs.Int("rate-burst", d.RateBurst, "burst size for the rate limiter")
}
