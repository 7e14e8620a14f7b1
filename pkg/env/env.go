// Package env reads process settings that are needed before the config tree is loaded.
package env

import (
	"os"
	"strings"
)

// Prefix matches config.EnvPrefix.
const Prefix = "HEIZOEL"

// Get returns HEIZOEL_<key>, then <key>, then fallback. Blank values count as unset.
func Get(key, fallback string) string {
	key = strings.TrimPrefix(key, Prefix+"_")
	for _, name := range []string{Prefix + "_" + key, key} {
		if val := strings.TrimSpace(os.Getenv(name)); val != "" {
			return val
		}
	}
	return fallback
}
