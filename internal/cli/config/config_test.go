package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgdeps/pkg/core"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("snapshot", "", "")
	fs.Int("workers", 0, "")
	fs.StringP("output", "o", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.String("log-level", "", "")
	fs.Int("max-depth", -1, "")
	fs.StringSlice("exclude", nil, "")
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgdeps.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, used, err := Load("", testFlags())
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, 0, cfg.Workers)
	assert.Empty(t, cfg.Order.Exclude)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
snapshot: from-file.yaml
workers: 2
log_level: info
max_depth: 3
order:
  exclude: [function_call]
`)

	t.Run("file over defaults", func(t *testing.T) {
		cfg, used, err := Load(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, path, used)
		assert.Equal(t, "from-file.yaml", cfg.Snapshot)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, 3, cfg.MaxDepth)
		assert.Equal(t, []core.EdgeKind{core.EdgeFunctionCall}, cfg.Order.Exclude)
		assert.Equal(t, DefaultOutput, cfg.OutputFormat)
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("PGDEPS_SNAPSHOT", "from-env.yaml")
		t.Setenv("PGDEPS_WORKERS", "4")
		t.Setenv("PGDEPS_ORDER__EXCLUDE", "function_call,trigger_target")

		cfg, _, err := Load(path, testFlags())
		require.NoError(t, err)
		assert.Equal(t, "from-env.yaml", cfg.Snapshot)
		assert.Equal(t, 4, cfg.Workers)
		assert.Equal(t, []core.EdgeKind{core.EdgeFunctionCall, core.EdgeTriggerTarget}, cfg.Order.Exclude)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("flags over env", func(t *testing.T) {
		t.Setenv("PGDEPS_SNAPSHOT", "from-env.yaml")
		t.Setenv("PGDEPS_WORKERS", "4")

		fs := testFlags()
		require.NoError(t, fs.Parse([]string{"--snapshot", "from-flag.json", "-o", "json", "--exclude", "type_usage"}))

		cfg, _, err := Load(path, fs)
		require.NoError(t, err)
		assert.Equal(t, "from-flag.json", cfg.Snapshot)
		assert.Equal(t, "json", cfg.OutputFormat)
		assert.Equal(t, []core.EdgeKind{core.EdgeTypeUsage}, cfg.Order.Exclude)
		assert.Equal(t, 4, cfg.Workers, "unset flags must not override env")
	})
}

func TestLoad_ExcludeFromString(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		file    string
		want    []core.EdgeKind
		wantErr string
	}{
		{name: "env list", env: "function_call,trigger_target", want: []core.EdgeKind{core.EdgeFunctionCall, core.EdgeTriggerTarget}},
		{name: "env spaces and case", env: " Type_Usage , sequence_usage ", want: []core.EdgeKind{core.EdgeTypeUsage, core.EdgeSequenceUsage}},
		{name: "env bad kind", env: "function_call,bogus", wantErr: `unknown edge kind "bogus"`},
		{name: "file scalar", file: "order:\n  exclude: function_call\n", want: []core.EdgeKind{core.EdgeFunctionCall}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			if tt.file == "" {
				t.Setenv("PGDEPS_ORDER__EXCLUDE", tt.env)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}

			cfg, _, err := Load(path, testFlags())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, cfg.Order.Exclude)
		})
	}
}

func TestLoad_FindsConfigInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pgdeps.yml"), []byte("snapshot: cwd.yaml\n"), 0o600))
	t.Chdir(dir)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "pgdeps.yml", used)
	assert.Equal(t, "cwd.yaml", cfg.Snapshot)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		errSubstr string
	}{
		{name: "bad yaml", content: "workers: [", errSubstr: "error reading config file"},
		{name: "bad edge kind", content: "order:\n  exclude: [bogus]\n", errSubstr: "unable to decode config"},
		{name: "negative workers", content: "workers: -1\n", errSubstr: "workers must be >= 0"},
		{name: "bad log level", content: "log_level: loud\n", errSubstr: "invalid log level"},
		{name: "bad output", content: "output: xml\n", errSubstr: "unknown output format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}

	_, _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestRequireSnapshot(t *testing.T) {
	assert.Error(t, (&Config{}).RequireSnapshot())
	assert.NoError(t, (&Config{Snapshot: "s.yaml"}).RequireSnapshot())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(&buf, &Config{LogLevel: "info"})
	logger.Debug("hidden")
	logger.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = NewLogger(&buf, &Config{LogLevel: "error", Verbose: true})
	logger.Debug("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := slog.New(slog.DiscardHandler)
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}
