package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"

	"github.com/kbulgrien/arch/internal/archive"
)

// ErrConfigFileNotFound is returned when an explicitly named config file
// (via --config) does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// ErrConfigInvalid is returned when a config file exists but fails to
// parse, wrapping the underlying JSONC/JSON error.
var ErrConfigInvalid = errors.New("invalid config")

// ErrInvalidLevel is returned when a config or flag supplies a compression
// level outside the codec's supported range.
var ErrInvalidLevel = errors.New("invalid compression level")

// Config holds all configuration options for the arch CLI.
type Config struct {
	// DefaultLevel is the DEFLATE compression level pack uses when
	// --level is not given on the command line.
	DefaultLevel int `json:"-"`

	// Sources tracks which config files were loaded, for diagnostics.
	Sources ConfigSources `json:"-"`
}

// fileConfig is the on-disk shape of a config file. DefaultLevel is a
// pointer so an explicit "default_level": 0 (flate.NoCompression) can be
// told apart from the field being absent - a plain int field can't, since
// 0 is both a valid level and Go's zero value.
type fileConfig struct {
	DefaultLevel *int `json:"default_level,omitempty"`
}

// ConfigSources records which config files contributed to the effective
// configuration.
type ConfigSources struct {
	Global  string
	Project string
}

// DefaultConfig returns the configuration used when no config file is
// present and no overrides are given.
func DefaultConfig() Config {
	return Config{DefaultLevel: archive.DefaultCompressionLevel}
}

// ConfigFileName is the project-local config file name, checked in the
// working directory unless --config names a different file.
const ConfigFileName = ".arch.jsonc"

// LoadConfigInput holds the inputs to LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string
	ConfigPath      string
	LevelOverride   int  // --level flag value
	LevelSet        bool // whether --level was explicitly given
	Env             map[string]string
}

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, global user config, project config file (or an
// explicit --config path), then CLI flag overrides.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobalConfig(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = mergeConfig(cfg, globalCfg)

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)

	if input.LevelSet {
		cfg.DefaultLevel = input.LevelOverride
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// getGlobalConfigPath returns the path to the global config file, using
// $XDG_CONFIG_HOME/arch/config.jsonc if set, otherwise
// ~/.config/arch/config.jsonc. Returns empty if neither is available.
func getGlobalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "arch", "config.jsonc")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "arch", "config.jsonc")
	}

	return ""
}

func loadGlobalConfig(env map[string]string) (fileConfig, string, error) {
	path := getGlobalConfigPath(env)
	if path == "" {
		return fileConfig{}, "", nil
	}

	cfg, loaded, err := loadConfigFile(path, false)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return cfg, path, nil
}

func loadProjectConfig(workDir, configPath string) (fileConfig, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, statErr := os.Stat(cfgFile); statErr != nil {
			return fileConfig{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
		mustExist = false
	}

	cfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil {
		return fileConfig{}, "", err
	}

	if !loaded {
		return fileConfig{}, "", nil
	}

	return cfg, cfgFile, nil
}

func loadConfigFile(path string, mustExist bool) (fileConfig, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return fileConfig{}, false, nil
		}

		if mustExist {
			return fileConfig{}, false, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}

		return fileConfig{}, false, nil
	}

	cfg, parseErr := parseConfig(data)
	if parseErr != nil {
		return fileConfig{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (fileConfig, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg fileConfig
	if err := json.Unmarshal(standardized, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base Config, overlay fileConfig) Config {
	if overlay.DefaultLevel != nil {
		base.DefaultLevel = *overlay.DefaultLevel
	}

	return base
}

func validateConfig(cfg Config) error {
	if cfg.DefaultLevel < archive.MinCompressionLevel || cfg.DefaultLevel > archive.MaxCompressionLevel {
		return fmt.Errorf("%w: %d", ErrInvalidLevel, cfg.DefaultLevel)
	}

	return nil
}
