package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/codegraph/pkg/storage"
)

// FileName is the optional project config file read from the working directory
const FileName = "codegraph.toml"

// EnvPrefix prefixes environment overrides, e.g. CODEGRAPH_DATA_DIR=/tmp/kb
const EnvPrefix = "CODEGRAPH_"

// Config holds all configuration for the application
type Config struct {
	DataDir    string   `koanf:"data-dir"`
	Storage    string   `koanf:"storage"`
	Language   string   `koanf:"language"`
	Exclude    []string `koanf:"exclude"`
	Format     string   `koanf:"format"`
	Port       int      `koanf:"port"`
	Depth      int      `koanf:"depth"`
	Verbosity  string   `koanf:"verbosity"`
	VerboseCnt int      `koanf:"verbose"`
}

// Defaults returns the built-in configuration values
func Defaults() map[string]any {
	return map[string]any{
		"data-dir":  ".codegraph",
		"storage":   storage.BackendJSON,
		"language":  "python",
		"exclude":   []string{},
		"format":    "text",
		"port":      8080,
		"depth":     1,
		"verbosity": "",
		"verbose":   0,
	}
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
//
// path names the config file; empty means FileName in the working
// directory. A missing file is not an error, a malformed one is.
func Load(f *pflag.FlagSet, path string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(makeMapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if path == "" {
		path = FileName
	}
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to access %s: %w", path, err)
	}

	// 3. Environment variables: CODEGRAPH_DATA_DIR -> data-dir. Lists are
	// comma separated.
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		key = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "_", "-")
		if key == "exclude" {
			return key, splitList(value)
		}
		return key, value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values no command can work with
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return errors.New("data-dir must not be empty")
	case c.Storage != storage.BackendJSON && c.Storage != storage.BackendSQLite:
		return fmt.Errorf("unknown storage backend %q (want %s or %s)", c.Storage, storage.BackendJSON, storage.BackendSQLite)
	case c.Language != "python":
		return fmt.Errorf("unsupported language %q", c.Language)
	case c.Port < 0 || c.Port > 65535:
		return fmt.Errorf("invalid port %d", c.Port)
	case c.Depth < 0:
		return fmt.Errorf("invalid depth %d", c.Depth)
	}
	return nil
}

// DataPath resolves the data directory against a project directory.
// Absolute data directories are returned as they are.
func (c *Config) DataPath(projectDir string) string {
	if filepath.IsAbs(c.DataDir) {
		return c.DataDir
	}
	return filepath.Join(projectDir, c.DataDir)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]any
}

func makeMapProvider(m map[string]any) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("not implemented")
}
