package instance

import (
	"os"

	"github.com/smartcanteen/canteen-backend/pkg/env"
)

const fallbackID = "worker-0"

// GetID returns the worker instance identifier: CANTEEN_WORKER_ID, WORKER_ID,
// the hostname, then a fixed default.
func GetID() string {
	if id := env.Get("WORKER_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
