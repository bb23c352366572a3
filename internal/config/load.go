package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment variables that override file settings,
// e.g. ENVRUN_ISOLATE=false.
const EnvPrefix = "ENVRUN"

// Load reads the config file (explicit path, or envrun.{yaml,json,toml} in
// the project directory), validates it, and applies flag overrides. A missing
// default config file is not an error.
func Load(flags Flags) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags.ConfigFile != "" {
		v.SetConfigFile(flags.ConfigFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.AddConfigPath(DefaultProjectPath)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if flags.ConfigFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var doc map[string]any
	if used := v.ConfigFileUsed(); used != "" {
		var err error
		if doc, err = validateFile(used); err != nil {
			return nil, err
		}
	}

	cfg := New()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := decodeCaseSensitive(doc, cfg); err != nil {
		return nil, err
	}
	if cfg.EnvironmentOptions == nil {
		cfg.EnvironmentOptions = map[string]any{}
	}

	cfg.ApplyFlags(flags)
	return cfg, nil
}

// validateFile checks the config document alone, before defaults and
// environment overrides are merged in, and returns it.
func validateFile(path string) (map[string]any, error) {
	doc, err := readDocument(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Validate(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// readDocument parses the config file with its keys as written. Viper
// lowercases every key, which breaks option names and environment names.
func readDocument(path string) (map[string]any, error) {
	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".toml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		raw := viper.New()
		raw.SetConfigFile(path)
		if err := raw.ReadInConfig(); err != nil {
			return nil, err
		}
		return raw.AllSettings(), nil
	}
	return doc, nil
}

// decodeCaseSensitive replaces the map-valued settings viper decoded with
// the ones from doc, keeping their key case.
func decodeCaseSensitive(doc map[string]any, cfg *Config) error {
	if len(doc) == 0 {
		return nil
	}
	var maps struct {
		EnvironmentOptions map[string]any               `mapstructure:"environment_options"`
		Environments       map[string]CustomEnvironment `mapstructure:"environments"`
	}
	subset := map[string]any{}
	for _, key := range []string{"environment_options", "environments"} {
		if value, ok := doc[key]; ok {
			subset[key] = value
		}
	}
	if err := mapstructure.Decode(subset, &maps); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if _, ok := subset["environment_options"]; ok {
		cfg.EnvironmentOptions = maps.EnvironmentOptions
	}
	if _, ok := subset["environments"]; ok {
		cfg.Environments = maps.Environments
	}
	return nil
}

// setDefaults registers default values with viper
func setDefaults(v *viper.Viper) {
	defaults := New()

	v.SetDefault("project_path", defaults.ProjectPath)
	v.SetDefault("test_path", defaults.TestPath)
	v.SetDefault("include", defaults.Include)
	v.SetDefault("paths_to_ignore", defaults.PathsToIgnore)
	v.SetDefault("isolate", defaults.Isolate)
	v.SetDefault("environment", defaults.Environment)
	v.SetDefault("browser", defaults.Browser)
	v.SetDefault("keep_modules", []string{})
	v.SetDefault("command", defaults.Command)
	v.SetDefault("dotenv", defaults.DotEnv)
	v.SetDefault("output_file", defaults.OutputJSONFile)
	v.SetDefault("output_dir", defaults.OutputJSONDir)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("database.enabled", defaults.Database.Enabled)
	v.SetDefault("database.prefix", defaults.Database.Prefix)
}
