package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)
	for _, env := range []string{EnvConfig, EnvStore, EnvDSN, EnvPath, EnvLogLevel} {
		t.Setenv(env, "")
	}
	return dir
}

func TestDefaultDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, filepath.Join("/data", "pwkeeper"), DefaultDir())
}

func TestLoad_Defaults(t *testing.T) {
	dir := isolate(t)

	opts, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, StoreSQLite, opts.Store)
	assert.Equal(t, filepath.Join(dir, "pwkeeper"), opts.Path)
	assert.Equal(t, "warn", opts.LogLevel)
}

func TestLoad_Precedence(t *testing.T) {
	dir := isolate(t)
	cfg := filepath.Join(dir, "cfg.json")
	require.NoError(t, os.WriteFile(cfg, []byte(`{"store":"bolt","path":"/from-file","log_level":"info"}`), 0o600))

	t.Setenv(EnvConfig, cfg)
	opts, err := Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, StoreBolt, opts.Store)
	assert.Equal(t, "/from-file", opts.Path)
	assert.Equal(t, "info", opts.LogLevel)

	t.Setenv(EnvPath, "/from-env")
	opts, err = Load(newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "/from-env", opts.Path)

	opts, err = Load(newFlags(t, "--path", "/from-flag", "--store", "file", "-v"))
	require.NoError(t, err)
	assert.Equal(t, "/from-flag", opts.Path)
	assert.Equal(t, StoreFile, opts.Store)
	assert.Equal(t, "debug", opts.LogLevel)
}

func TestLoad_ConfigFileErrors(t *testing.T) {
	dir := isolate(t)

	_, err := Load(newFlags(t, "--config", filepath.Join(dir, "missing.json")))
	assert.ErrorContains(t, err, "reading config file")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Load(newFlags(t, "--config", bad))
	assert.ErrorContains(t, err, "parsing config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"sqlite", Options{Store: StoreSQLite, Path: "/d"}, false},
		{"postgres with dsn", Options{Store: StorePostgres, DSN: "postgres://x"}, false},
		{"postgres without dsn", Options{Store: StorePostgres}, true},
		{"file without path", Options{Store: StoreFile}, true},
		{"unknown", Options{Store: "redis", Path: "/d"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
