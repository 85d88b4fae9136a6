// Package config resolves the plugin's "basic" configuration from the host
// and derives the flags the attachment selector runs on.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halo-sigs/plugin-unsplash/interfaces"
)

// ParseBasic decodes the JSON stored under the "basic" config group.
// An empty document is an empty config. On malformed input it returns the
// empty config together with the decode error; it never panics.
func ParseBasic(raw string) (interfaces.BasicConfig, error) {
	var basic interfaces.BasicConfig

	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return basic, nil
	}

	if err := json.Unmarshal([]byte(raw), &basic); err != nil {
		return interfaces.BasicConfig{}, fmt.Errorf("parse %s config: %w", interfaces.BasicConfigGroup, err)
	}
	return basic, nil
}

// BasicFromConfigMap extracts and parses the "basic" entry of a config map.
// A nil map or a missing entry yields the empty config.
func BasicFromConfigMap(configMap *interfaces.ConfigMap) (interfaces.BasicConfig, error) {
	if configMap == nil || configMap.Data == nil {
		return interfaces.BasicConfig{}, nil
	}
	return ParseBasic(configMap.Data[interfaces.BasicConfigGroup])
}
