package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// ConfigFileName is the name of the config file.
const ConfigFileName = "forthls.yaml"

// ConfigFileNameAlt is the alternate name of the config file.
const ConfigFileNameAlt = "forthls.yml"

// EnvPrefix prefixes environment variable overrides, e.g. FORTHLS_LOG_LEVEL.
const EnvPrefix = "FORTHLS_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flagsNotInConfig are CLI flags that steer loading rather than set a key.
var flagsNotInConfig = map[string]bool{
	"config":      true,
	"project-dir": true,
}

// Options controls where configuration is read from.
type Options struct {
	// Dir is the project root. Relative config paths resolve against it.
	Dir string
	// File is an explicit config file; when empty, Dir is searched.
	File string
	// Flags are applied last, only those explicitly set.
	Flags *pflag.FlagSet
}

// LoadFromDir loads configuration for the project rooted at dir.
// A missing config file is not an error; defaults are returned.
func LoadFromDir(dir string) (*Config, error) {
	return Load(Options{Dir: dir})
}

// Load loads configuration from defaults, file, environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaultMap(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configPath := opts.File
	if configPath == "" && opts.Dir != "" {
		configPath = findConfigFile(opts.Dir)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	// 3. Environment variables
	// Transform: FORTHLS_LOG_LEVEL -> log_level, FORTHLS_DIAGNOSTICS__UNDEFINED_WORDS -> diagnostics.undefined_words
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags
	if opts.Flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed || flagsNotInConfig[f.Name] {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(opts.Flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf(&cfg)); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = opts.Dir
	if cfg.ProjectRoot == "" && configPath != "" {
		if abs, err := filepath.Abs(configPath); err == nil {
			cfg.ProjectRoot = filepath.Dir(abs)
		}
	}
	cfg.File = configPath

	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}
	if cfg.Format.IndentWidth < 0 || cfg.Format.WordSpacing < 1 {
		return nil, fmt.Errorf("invalid format settings: indent_width must be >= 0 and word_spacing >= 1")
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = append([]string(nil), DefaultExtensions...)
	}

	return &cfg, nil
}

// unmarshalConf lets list keys be given as comma-separated strings, which is
// how they arrive from environment variables.
func unmarshalConf(out *Config) koanf.UnmarshalConf {
	return koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToSliceHookFunc(","),
				mapstructure.TextUnmarshallerHookFunc(),
			),
			Result:           out,
			TagName:          "koanf",
			WeaklyTypedInput: true,
		},
	}
}

// findConfigFile finds the config file in the given directory.
// Returns empty string if not found.
func findConfigFile(dir string) string {
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// FindProjectRoot walks up from startDir to find a directory containing
// forthls.yaml or forthls.yml. Returns empty string if not found.
func FindProjectRoot(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if findConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			return ""
		}
		dir = parent
	}
	return ""
}
