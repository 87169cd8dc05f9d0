package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.String("data-dir", ".codegraph", "")
	f.String("storage", "json", "")
	f.StringSlice("exclude", nil, "")
	f.Int("port", 8080, "")
	f.CountP("verbose", "v", "")
	return f
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, ".codegraph", cfg.DataDir)
	assert.Equal(t, "json", cfg.Storage)
	assert.Equal(t, "python", cfg.Language)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 1, cfg.Depth)
	assert.Empty(t, cfg.Exclude)
}

func TestLoadPriority(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegraph.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data-dir = "from-file"
storage = "sqlite"
port = 7000
exclude = ["tests/"]
`), 0o644))

	t.Setenv("CODEGRAPH_PORT", "9090")
	t.Setenv("CODEGRAPH_FORMAT", "json")

	f := newFlagSet()
	require.NoError(t, f.Parse([]string{"--data-dir", "from-flag", "-vv"}))

	cfg, err := Load(f, path)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.DataDir, "flags beat the file")
	assert.Equal(t, "sqlite", cfg.Storage, "file beats defaults")
	assert.Equal(t, 9090, cfg.Port, "env beats the file")
	assert.Equal(t, "json", cfg.Format)
	assert.Equal(t, []string{"tests/"}, cfg.Exclude)
	assert.Equal(t, 2, cfg.VerboseCnt)
}

func TestLoadEnvList(t *testing.T) {
	t.Setenv("CODEGRAPH_EXCLUDE", "build/, migrations ,")
	t.Setenv("CODEGRAPH_DATA_DIR", "/tmp/kb")

	cfg, err := Load(nil, filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"build/", "migrations"}, cfg.Exclude)
	assert.Equal(t, "/tmp/kb", cfg.DataDir)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codegraph.toml")

	require.NoError(t, os.WriteFile(path, []byte(`storage = "postgres"`), 0o644))
	_, err := Load(nil, path)
	assert.ErrorContains(t, err, "unknown storage backend")

	require.NoError(t, os.WriteFile(path, []byte(`language = "cobol"`), 0o644))
	_, err = Load(nil, path)
	assert.ErrorContains(t, err, "unsupported language")

	require.NoError(t, os.WriteFile(path, []byte(`port = `), 0o644))
	_, err = Load(nil, path)
	assert.Error(t, err, "malformed files are reported")
}

func TestDataPath(t *testing.T) {
	cfg := &Config{DataDir: ".codegraph"}
	assert.Equal(t, filepath.Join("project", ".codegraph"), cfg.DataPath("project"))

	abs := filepath.Join(t.TempDir(), "kb")
	cfg.DataDir = abs
	assert.Equal(t, abs, cfg.DataPath("project"))
}
