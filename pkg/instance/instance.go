// Package instance names the running process in logs.
package instance

import (
	"os"

	"github.com/stanton-energie/heizoel-backend/pkg/env"
)

// GetID returns the configured instance id, the platform dyno name, the host
// name, or "local" as a last resort.
func GetID() string {
	if id := env.Get("INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
