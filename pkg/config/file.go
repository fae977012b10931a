package config

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/gridload/pkg/errors"
)

// envPattern matches ${NAME} and ${NAME:-default}.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Load decodes the YAML file at path into v after expanding environment
// references. Keys absent from the file keep the value already in v.
func Load(path string, v any) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the operator
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "read config file").WithDetail("path", path)
	}
	if err := yaml.Unmarshal([]byte(expandEnv(string(data))), v); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "parse config file").WithDetail("path", path)
	}
	return nil
}

// LoadLoaderConfig reads a LoaderConfig over the defaults and validates it.
func LoadLoaderConfig(path string) (*LoaderConfig, error) {
	cfg := NewLoaderConfig("gridload")
	if err := Load(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid config file").WithDetail("path", path)
	}
	return cfg, nil
}

// Save writes v to path as YAML.
func Save(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "marshal config")
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "write config file").WithDetail("path", path)
	}
	return nil
}

// expandEnv replaces ${NAME} with the variable's value and ${NAME:-default}
// with the default when the variable is unset or empty.
func expandEnv(content string) string {
	return envPattern.ReplaceAllStringFunc(content, func(ref string) string {
		m := envPattern.FindStringSubmatch(ref)
		if v := os.Getenv(m[1]); v != "" || m[2] == "" {
			return v
		}
		return m[3]
	})
}
