// Package config loads gatehouse runtime settings.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, GATEHOUSE_* environment variables (plus PORT), and finally
// command-line flags that were explicitly set. A .env file in the working
// directory is loaded into the environment first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Store backends.
const (
	StoreMemory   = "memory"
	StoreBBolt    = "bbolt"
	StorePostgres = "postgres"
)

// EnvPrefix prefixes environment variables read by Load.
const EnvPrefix = "GATEHOUSE_"

// Config holds runtime settings for the gatehouse server.
type Config struct {
	Addr        string `koanf:"addr"`
	Store       string `koanf:"store"`
	DataDir     string `koanf:"data_dir"`
	DatabaseDSN string `koanf:"database_dsn"`
	Hasher      string `koanf:"hasher"`
	BcryptCost  int    `koanf:"bcrypt_cost"`
	PublicDir   string `koanf:"public_dir"`
	LogFormat   string `koanf:"log_format"`
	LogLevel    string `koanf:"log_level"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"addr":          ":3000",
		"store":         StoreMemory,
		"data_dir":      "data",
		"database_dsn":  "",
		"hasher":        "bcrypt",
		"bcrypt_cost":   10,
		"public_dir":    "",
		"log_format":    "json",
		"log_level":     "info",
		"tls_cert_file": "",
		"tls_key_file":  "",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), the environment and the changed flags in flags (may be nil).
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	k := koanf.New(".")
	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(mapProvider(environment(os.Environ())), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// environment picks the settings out of KEY=value pairs. PORT maps to addr
// unless GATEHOUSE_ADDR is also set.
func environment(environ []string) map[string]any {
	out := make(map[string]any)
	for _, kv := range environ {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case key == "PORT" && val != "":
			if _, set := out["addr"]; !set {
				out["addr"] = ":" + val
			}
		case strings.HasPrefix(key, EnvPrefix):
			// GATEHOUSE_DATA_DIR -> data_dir
			out[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))] = val
		}
	}
	return out
}

// mapProvider is a koanf.Provider over an in-memory map.
type mapProvider map[string]any

func (m mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support ReadBytes")
}

func (m mapProvider) Read() (map[string]any, error) {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out, nil
}

// --data-dir -> data_dir
func flagKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}
}

// Validate rejects unknown enum values and incomplete settings.
func (c *Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	switch c.Store {
	case StoreMemory:
	case StoreBBolt:
		if c.DataDir == "" {
			errs = append(errs, errors.New("data_dir is required for the bbolt store"))
		}
	case StorePostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("database_dsn is required for the postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q (want memory, bbolt or postgres)", c.Store))
	}
	switch c.Hasher {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("unknown hasher %q (want bcrypt or argon2id)", c.Hasher))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("bcrypt_cost %d out of range 4..31", c.BcryptCost))
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q (want json or text)", c.LogFormat))
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("invalid log_level %q", c.LogLevel))
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		errs = append(errs, errors.New("tls_cert_file and tls_key_file must be set together"))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c *Config) Level() slog.Level {
	var level slog.Level
	_ = level.UnmarshalText([]byte(c.LogLevel))
	return level
}

// BBoltPath is the database file used by the bbolt store.
func (c *Config) BBoltPath() string {
	return filepath.Join(c.DataDir, "gatehouse.db")
}
