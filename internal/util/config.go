package util

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	EnvLogLevel = "LEMON_LOG_LEVEL"
	EnvLogFile  = "LEMON_LOG_FILE"
)

// Configuration is one session's settings. RootPath anchors relative paths
// that scripts hand to fopen and sqlite; Version is filled in by the host.
type Configuration struct {
	Version  string         `yaml:"-" toml:"-"`
	RootPath string         `yaml:"root" toml:"root"`
	Log      LogConfig      `yaml:"log" toml:"log"`
	Natives  NativesConfig  `yaml:"natives" toml:"natives"`
	Globals  map[string]any `yaml:"globals" toml:"globals"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	File   string `yaml:"file" toml:"file"`
	Format string `yaml:"format" toml:"format"`
	Color  bool   `yaml:"color" toml:"color"`
}

type NativesConfig struct {
	File FileConfig `yaml:"file" toml:"file"`
	SQL  SQLConfig  `yaml:"sql" toml:"sql"`
}

type FileConfig struct {
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Stdio registers the STDIN, STDOUT and STDERR globals.
	Stdio bool `yaml:"stdio" toml:"stdio"`
}

type SQLConfig struct {
	Enabled      bool     `yaml:"enabled" toml:"enabled"`
	Drivers      []string `yaml:"drivers" toml:"drivers"`
	MaxOpenConns int      `yaml:"max_open_conns" toml:"max_open_conns"`
}

// KnownDrivers are the database/sql driver names linked into the binary.
var KnownDrivers = []string{"mysql", "postgres", "sqlite", "sqlite3"}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "none"}

func DefaultConfiguration() Configuration {
	return Configuration{
		RootPath: ".",
		Log: LogConfig{
			Level:  "none",
			Format: "json",
		},
		Natives: NativesConfig{
			File: FileConfig{Enabled: true, Stdio: true},
			SQL: SQLConfig{
				Drivers:      []string{"sqlite"},
				MaxOpenConns: 4,
			},
		},
	}
}

// ConfigError lists every problem found while validating a configuration.
type ConfigError struct {
	Path   string
	Issues []string
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config: %s is invalid:", e.Path)
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

// LoadConfig reads a YAML or TOML file, chosen by extension, over the
// defaults and then applies environment overrides.
func LoadConfig(path string) (Configuration, error) {
	cfg := DefaultConfiguration()
	if path == "" {
		return cfg, fmt.Errorf("config: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return cfg, fmt.Errorf("config: resolve %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(absPath)) {
	case ".yml", ".yaml":
		err = decodeYAML(absPath, &cfg)
	case ".toml":
		err = decodeTOML(absPath, &cfg)
	default:
		err = fmt.Errorf("config: unsupported file type %q", filepath.Ext(absPath))
	}
	if err != nil {
		return cfg, err
	}

	ApplyEnv(&cfg)
	if err := cfg.Validate(absPath); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decodeYAML(path string, cfg *Configuration) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func decodeTOML(path string, cfg *Configuration) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config: %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides logging settings from LEMON_LOG_LEVEL and LEMON_LOG_FILE.
func ApplyEnv(cfg *Configuration) {
	if v, ok := os.LookupEnv(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := os.LookupEnv(EnvLogFile); ok {
		cfg.Log.File = v
	}
}

func (c *Configuration) Validate(path string) error {
	var errs ConfigError
	errs.Path = path

	if !contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.level %q must be one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs.Issues = append(errs.Issues, fmt.Sprintf("log.format %q must be json or text", c.Log.Format))
	}
	for i, d := range c.Natives.SQL.Drivers {
		if !contains(KnownDrivers, d) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("natives.sql.drivers[%d] %q is not linked in", i, d))
		}
	}
	if c.Natives.SQL.MaxOpenConns < 0 {
		errs.Issues = append(errs.Issues, "natives.sql.max_open_conns must not be negative")
	}

	names := make([]string, 0, len(c.Globals))
	for name := range c.Globals {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		switch c.Globals[name].(type) {
		case nil, bool, int, int64, float64, string:
		default:
			errs.Issues = append(errs.Issues, fmt.Sprintf("globals.%s must be a scalar", name))
		}
	}

	if len(errs.Issues) > 0 {
		return &errs
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
