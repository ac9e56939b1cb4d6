// Package config resolves pwkeeper's settings from defaults, a JSON config
// file, environment variables and command-line flags, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/pflag"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
	StoreFile     = "file"
)

// Stores lists the accepted values of Options.Store.
var Stores = []string{StoreSQLite, StorePostgres, StoreBolt, StoreFile}

// Environment variables.
const (
	EnvConfig   = "PWKEEPER_CONFIG"
	EnvStore    = "PWKEEPER_STORE"
	EnvDSN      = "PWKEEPER_DSN"
	EnvPath     = "PWKEEPER_PATH"
	EnvLogLevel = "PWKEEPER_LOG_LEVEL"
)

// Options holds the configuration values for the application.
type Options struct {
	// Store selects the record store backend.
	Store string `json:"store"`

	// DSN is the PostgreSQL connection string, used with the postgres store.
	DSN string `json:"dsn"`

	// Path is the data directory holding file-based stores.
	Path string `json:"path"`

	// LogLevel is a zap level name.
	LogLevel string `json:"log_level"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`
}

// DefaultDir returns $XDG_DATA_HOME/pwkeeper, falling back to
// ~/.local/share/pwkeeper.
func DefaultDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "pwkeeper")
}

// Default returns the built-in settings.
func Default() *Options {
	dir := DefaultDir()
	return &Options{
		Store:    StoreSQLite,
		Path:     dir,
		LogLevel: "warn",
		Config:   filepath.Join(dir, "config.json"),
	}
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	def := Default()
	fs.StringP("config", "c", def.Config, "path to config file")
	fs.String("store", def.Store, "record store: sqlite, postgres, bolt or file")
	fs.String("dsn", "", "PostgreSQL connection string")
	fs.StringP("path", "p", def.Path, "data directory")
	fs.String("log-level", def.LogLevel, "log level: debug, info, warn, error")
	fs.BoolP("verbose", "v", false, "shorthand for --log-level=debug")
}

// Load resolves Options. Flags registered with RegisterFlags override the
// environment only when set explicitly. A missing config file is ignored
// unless its path was given explicitly.
func Load(fs *pflag.FlagSet) (*Options, error) {
	opts := Default()

	explicit := false
	if v := os.Getenv(EnvConfig); v != "" {
		opts.Config, explicit = v, true
	}
	if fs.Changed("config") {
		opts.Config, _ = fs.GetString("config")
		explicit = true
	}

	if err := opts.readFile(explicit); err != nil {
		return nil, err
	}

	for env, dst := range map[string]*string{
		EnvStore:    &opts.Store,
		EnvDSN:      &opts.DSN,
		EnvPath:     &opts.Path,
		EnvLogLevel: &opts.LogLevel,
	} {
		if v := os.Getenv(env); v != "" {
			*dst = v
		}
	}

	for flag, dst := range map[string]*string{
		"store":     &opts.Store,
		"dsn":       &opts.DSN,
		"path":      &opts.Path,
		"log-level": &opts.LogLevel,
	} {
		if fs.Changed(flag) {
			*dst, _ = fs.GetString(flag)
		}
	}
	if verbose, _ := fs.GetBool("verbose"); verbose {
		opts.LogLevel = "debug"
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

func (o *Options) readFile(required bool) error {
	if o.Config == "" {
		return nil
	}
	data, err := os.ReadFile(o.Config)
	if errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("error while reading config file: %w", err)
	}
	if err := json.Unmarshal(data, o); err != nil {
		return fmt.Errorf("error while parsing config file: %w", err)
	}
	return nil
}

// Validate checks that the selected store is usable.
func (o *Options) Validate() error {
	if !slices.Contains(Stores, o.Store) {
		return fmt.Errorf("unknown store %q, want one of %v", o.Store, Stores)
	}
	if o.Store == StorePostgres && o.DSN == "" {
		return fmt.Errorf("store %q requires a DSN (--dsn or %s)", o.Store, EnvDSN)
	}
	if o.Store != StorePostgres && o.Path == "" {
		return fmt.Errorf("store %q requires a data directory (--path or %s)", o.Store, EnvPath)
	}
	return nil
}
