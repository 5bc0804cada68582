// Package config loads sitesync configuration from file, environment
// and flags via viper.
//
// Search order: an explicit --config path, then sitesync.yaml in the
// working directory, then $HOME/.config/sitesync/. Environment
// variables override the file (SITESYNC_ prefix, dots become
// underscores: SITESYNC_ARCHIVE_BUCKET).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved sitesync configuration.
type Config struct {
	// StorePath is the SQLite database location.
	StorePath string `mapstructure:"store_path"`

	// LogFile is the rotating log destination; empty logs to stderr.
	LogFile string `mapstructure:"log_file"`

	Archive ArchiveConfig `mapstructure:"archive"`
	Geocode GeocodeConfig `mapstructure:"geocode"`
}

// ArchiveConfig selects and configures the remote archive backend.
type ArchiveConfig struct {
	// Backend is "gcs" or "dir". Empty means no remote archive
	// (local-only, single-device mode).
	Backend string `mapstructure:"backend"`

	// Bucket is the GCS bucket name (gcs backend).
	Bucket string `mapstructure:"bucket"`

	// Prefix namespaces blobs within the bucket (gcs backend).
	Prefix string `mapstructure:"prefix"`

	// CredentialsFile is a service-account key path (gcs backend).
	CredentialsFile string `mapstructure:"credentials_file"`

	// Dir is the backing directory (dir backend).
	Dir string `mapstructure:"dir"`

	// CallTimeout bounds each archive call.
	CallTimeout time.Duration `mapstructure:"call_timeout"`
}

// GeocodeConfig configures the reverse-geocoding endpoint.
type GeocodeConfig struct {
	// Endpoint is a Nominatim-style /reverse URL; empty disables
	// geocoding (raw coordinates are used).
	Endpoint string `mapstructure:"endpoint"`

	// Timeout bounds each lookup.
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load reads the configuration. cfgFile may be empty to use the search
// path. Missing config files are fine; defaults apply.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	home, _ := os.UserHomeDir()
	v.SetDefault("store_path", filepath.Join(home, ".sitesync", "records.db"))
	v.SetDefault("log_file", "")
	v.SetDefault("archive.backend", "")
	v.SetDefault("archive.call_timeout", 30*time.Second)
	v.SetDefault("geocode.timeout", 5*time.Second)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sitesync")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home != "" {
			v.AddConfigPath(filepath.Join(home, ".config", "sitesync"))
		}
	}

	v.SetEnvPrefix("SITESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Archive.Backend {
	case "", "dir", "gcs":
	default:
		return fmt.Errorf("unknown archive backend %q (want gcs or dir)", c.Archive.Backend)
	}
	if c.Archive.Backend == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket is required for the gcs backend")
	}
	if c.Archive.Backend == "dir" && c.Archive.Dir == "" {
		return fmt.Errorf("archive.dir is required for the dir backend")
	}
	return nil
}
