package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadFile reads a flat YAML mapping of environment keys, for example
//
//	LEDGER_BACKEND: sqlite
//	VISION_MAX_TOKENS: 2048
//
// and exports every key that is not already set in the environment. It
// returns the keys it exported, sorted.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var exported []string
	for key, raw := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		switch raw.(type) {
		case map[string]any, []any:
			return nil, fmt.Errorf("config file key %s: nested values are not supported", key)
		}
		if _, set := os.LookupEnv(key); set || raw == nil {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(raw)); err != nil {
			return nil, fmt.Errorf("set %s: %w", key, err)
		}
		exported = append(exported, key)
	}
	sort.Strings(exported)
	return exported, nil
}
