// Package config loads settings from a config file, a .env file and
// SCHEMAGRAPH_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tordrt/schemagraph/internal/naming"
	"github.com/tordrt/schemagraph/internal/pipeline"
)

// EnvPrefix prefixes every environment override, e.g. SCHEMAGRAPH_DATABASE_URL
const EnvPrefix = "SCHEMAGRAPH"

// DatabaseConfig selects the database the "database" handler drafts from
type DatabaseConfig struct {
	URL     string   `mapstructure:"url"`
	Schema  string   `mapstructure:"schema"`
	Tables  []string `mapstructure:"tables"`
	Exclude []string `mapstructure:"exclude"`
}

// FilesConfig locates the definition files of the "files" handler
type FilesConfig struct {
	Dir string `mapstructure:"dir"`
}

// CacheConfig configures the buntdb store behind the "cache" handlers
type CacheConfig struct {
	// Path of the cache store, in memory when empty
	Path string        `mapstructure:"path"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// ArchiveConfig configures the "file" archive handlers
type ArchiveConfig struct {
	// Path of the archive file, its extension selects the format
	Path string `mapstructure:"path"`
}

// HandlersConfig names the handlers a session uses by default
type HandlersConfig struct {
	Draft   []string `mapstructure:"draft"`
	Archive []string `mapstructure:"archive"`
	Read    string   `mapstructure:"read"`
}

// AutomationConfig controls how Get obtains a missing schema
type AutomationConfig struct {
	AutoRead    bool `mapstructure:"auto_read"`
	AutoDraft   bool `mapstructure:"auto_draft"`
	AutoArchive bool `mapstructure:"auto_archive"`
	Silent      bool `mapstructure:"silent"`
}

// NamingConfig holds the naming convention used for relation inference
type NamingConfig struct {
	Separator        string `mapstructure:"separator"`
	ForeignKeySuffix string `mapstructure:"foreign_key_suffix"`
}

// Config is the complete runtime configuration
type Config struct {
	// Group identifies the connection group archives are keyed on
	Group      string           `mapstructure:"group"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Files      FilesConfig      `mapstructure:"files"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Archive    ArchiveConfig    `mapstructure:"archive"`
	Handlers   HandlersConfig   `mapstructure:"handlers"`
	Automation AutomationConfig `mapstructure:"automation"`
	Naming     NamingConfig     `mapstructure:"naming"`
}

// Options selects the files Load reads
type Options struct {
	// ConfigFile is a TOML, YAML or JSON file; optional
	ConfigFile string
	// EnvFile defaults to .env; a missing file is ignored
	EnvFile string
}

var defaults = map[string]any{
	"group":                     "default",
	"database.url":              "",
	"database.schema":           "",
	"database.tables":           []string{},
	"database.exclude":          []string{},
	"files.dir":                 "",
	"cache.path":                "",
	"cache.ttl":                 time.Duration(0),
	"archive.path":              "",
	"handlers.draft":            []string{"database"},
	"handlers.archive":          []string{"cache"},
	"handlers.read":             "cache",
	"automation.auto_read":      false,
	"automation.auto_draft":     true,
	"automation.auto_archive":   false,
	"automation.silent":         false,
	"naming.separator":          "_",
	"naming.foreign_key_suffix": "_id",
}

// Load reads the configuration. Precedence from highest: environment, the
// .env file, the config file, defaults.
func Load(opts Options) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "failed to load %s", envFile)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		if _, err := os.Stat(opts.ConfigFile); err != nil {
			return nil, errors.Wrapf(err, "config file %s", opts.ConfigFile)
		}
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", opts.ConfigFile)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable fallback
func (c *Config) Validate() error {
	if c.Group == "" {
		return errors.New("group must not be empty")
	}
	if c.Naming.Separator == "" {
		return errors.New("naming.separator must not be empty")
	}
	if c.Naming.ForeignKeySuffix == "" {
		return errors.New("naming.foreign_key_suffix must not be empty")
	}
	if c.Cache.TTL < 0 {
		return errors.New("cache.ttl must not be negative")
	}
	return nil
}

// Convention returns the naming convention the settings describe
func (c *Config) Convention() *naming.Convention {
	return naming.New(c.Naming.Separator, c.Naming.ForeignKeySuffix)
}

// PipelineAutomation converts the automation settings
func (c *Config) PipelineAutomation() pipeline.Automation {
	return pipeline.Automation{
		AutoRead:    c.Automation.AutoRead,
		AutoDraft:   c.Automation.AutoDraft,
		AutoArchive: c.Automation.AutoArchive,
		Silent:      c.Automation.Silent,
	}
}
