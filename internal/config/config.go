package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/anschnapp/mutflow/internal/session"
)

// Config holds the top-level configuration for the application.
type Config struct {
	LogLevel string        `mapstructure:"log_level"`
	LogDir   string        `mapstructure:"log_dir"`
	Session  SessionConfig `mapstructure:"session"`
}

// SessionConfig mirrors session.Config in a form viper can unmarshal
// (string enum names instead of the typed Selection/Shuffle constants).
type SessionConfig struct {
	// MaxRuns is the run budget passed to the session; 0 means unlimited.
	MaxRuns int `mapstructure:"max_runs"`

	// Selection names the mutation-selection strategy: "pure_random",
	// "most_likely_random", or "most_likely_stable" (default).
	Selection string `mapstructure:"selection"`

	// Shuffle names the seed-derivation policy: "per_run" or "per_change"
	// (default).
	Shuffle string `mapstructure:"shuffle"`

	// ExpectedTestCount seeds partial-run detection at baseline end.
	ExpectedTestCount int `mapstructure:"expected_test_count"`

	// TimeoutMs bounds a single mutation run; 0 disables the bound.
	TimeoutMs int `mapstructure:"timeout_ms"`

	// Traps are copy-pasted display-name strings from a prior survivor
	// report, forced to run first on the next session.
	Traps []string `mapstructure:"traps"`

	// IncludeTargets and ExcludeTargets filter candidate mutations by
	// owner name. A point whose owner is not in IncludeTargets (when
	// non-empty) or is in ExcludeTargets is never selected.
	IncludeTargets []string `mapstructure:"include_targets"`
	ExcludeTargets []string `mapstructure:"exclude_targets"`

	// SessionSeed is the base of the PerRun seed derivation (seed =
	// SessionSeed + run) for reproducible runs; 0 is used as-is. PerChange
	// derives its seed from the discovered points and ignores SessionSeed.
	SessionSeed int64 `mapstructure:"session_seed"`
}

// ToSessionConfig converts the unmarshaled, string-enum configuration into
// the typed session.Config the engine consumes.
func (c SessionConfig) ToSessionConfig() session.Config {
	return session.Config{
		MaxRuns:           c.MaxRuns,
		Selection:         parseSelection(c.Selection),
		Shuffle:           parseShuffle(c.Shuffle),
		ExpectedTestCount: c.ExpectedTestCount,
		TimeoutMs:         c.TimeoutMs,
		Traps:             c.Traps,
		IncludeTargets:    c.IncludeTargets,
		ExcludeTargets:    c.ExcludeTargets,
		SessionSeed:       c.SessionSeed,
	}
}

func parseSelection(s string) session.Selection {
	switch strings.ToLower(s) {
	case "pure_random":
		return session.PureRandom
	case "most_likely_random":
		return session.MostLikelyRandom
	default:
		return session.MostLikelyStable
	}
}

func parseShuffle(s string) session.Shuffle {
	switch strings.ToLower(s) {
	case "per_run":
		return session.PerRun
	default:
		return session.PerChange
	}
}

// envVarPattern matches environment variable placeholders: ${VAR_NAME} or $VAR_NAME
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// resolveEnvVars replaces environment variable placeholders in a string with their values.
// Supports two formats:
//   - ${VAR_NAME}: Braced format
//   - $VAR_NAME: Simple format (must start with letter or underscore)
//
// If an environment variable is not set, it is left as-is in the string.
func resolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			varName = match[2 : len(match)-1]
		} else if strings.HasPrefix(match, "$") {
			varName = match[1:]
		}
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}

// LoadEnvFromDotEnv loads environment variables from a .env file in the specified directory.
// The .env file should contain KEY=value pairs, one per line.
// Lines starting with # are treated as comments and ignored.
func LoadEnvFromDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")

	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	for lineNum, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("invalid line in .env file at line %d: missing '='", lineNum+1)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		if strings.HasPrefix(value, "\"") && strings.HasSuffix(value, "\"") {
			value = value[1 : len(value)-1]
		} else if strings.HasPrefix(value, "'") && strings.HasSuffix(value, "'") {
			value = value[1 : len(value)-1]
		}

		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}

	return nil
}

// LoadEnvFromDotEnvRecursive searches for a .env file in startDir and its
// parents, falling back to climbing from the working directory. It returns
// without error if no .env file is found (the file is optional).
func LoadEnvFromDotEnvRecursive(startDir string) error {
	dir := startDir
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return LoadEnvFromDotEnv(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	wd, _ := os.Getwd()
	for i := 0; i < 10; i++ {
		envPath := filepath.Join(wd, ".env")
		if _, err := os.Stat(envPath); err == nil {
			return LoadEnvFromDotEnv(wd)
		}
		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}

	return nil
}

// applyEnvResolution resolves ${VAR}/$VAR placeholders across every string
// value viper has loaded, in place.
func applyEnvResolution(v *viper.Viper) {
	settings := v.AllSettings()
	resolveInMap(settings)
	for key, value := range settings {
		v.Set(key, value)
	}
}

func resolveInMap(m map[string]interface{}) {
	for k, v := range m {
		switch val := v.(type) {
		case string:
			resolved := resolveEnvVars(val)
			if resolved != val {
				m[k] = resolved
			}
		case map[string]interface{}:
			resolveInMap(val)
		case []interface{}:
			resolveInSlice(val)
		}
	}
}

func resolveInSlice(s []interface{}) {
	for i, v := range s {
		switch val := v.(type) {
		case string:
			s[i] = resolveEnvVars(val)
		case map[string]interface{}:
			resolveInMap(val)
		}
	}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")
	v.SetEnvPrefix("MUTFLOW")
	v.AutomaticEnv()

	v.SetDefault("log_level", "info")
	v.SetDefault("session.selection", "most_likely_stable")
	v.SetDefault("session.shuffle", "per_change")
	return v
}

// Load reads configFileName (without extension) from the "configs" search
// path and unmarshals its "config" top-level object into result.
func Load(configFileName string, result interface{}) error {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath("configs")
	v.AddConfigPath("../configs")
	v.AddConfigPath("../../configs")

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if v.IsSet("config") {
		if err := v.UnmarshalKey("config", result); err != nil {
			return fmt.Errorf("failed to unmarshal config data: %w", err)
		}
		return nil
	}

	if err := v.Unmarshal(result); err != nil {
		return fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	return nil
}

// LoadConfig loads the full application configuration from configs/config.yaml
// (or its ancestor-directory equivalents), applying .env and environment
// variable resolution first.
func LoadConfig() (*Config, error) {
	if err := LoadEnvFromDotEnvRecursive("."); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := newConfigViper()
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}
	applyEnvResolution(v)

	var cfg Config
	if v.IsSet("config") {
		if err := v.UnmarshalKey("config", &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
		}
	} else if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Session.Selection == "" {
		cfg.Session.Selection = "most_likely_stable"
	}
	if cfg.Session.Shuffle == "" {
		cfg.Session.Shuffle = "per_change"
	}

	return &cfg, nil
}
