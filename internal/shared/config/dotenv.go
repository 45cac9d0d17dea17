package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// loadEnvFiles loads KEY=VALUE pairs from the given files if they exist.
// Existing environment variables are never overwritten.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// applyYAMLFile reads a flat map of env-style keys and exports the ones that
// are not already set in the process environment.
func applyYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	for key, raw := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || raw == nil {
			continue
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		var val string
		switch v := raw.(type) {
		case []any:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				parts = append(parts, fmt.Sprint(item))
			}
			val = strings.Join(parts, ",")
		default:
			val = fmt.Sprint(v)
		}
		if err := os.Setenv(key, val); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
