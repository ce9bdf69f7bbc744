package env

import (
	"os"
	"strings"
)

// Prefix namespaces the service's own variables.
const Prefix = "CANTEEN_"

// Get returns CANTEEN_<key>, then <key>, then fallback. Blank values count as unset.
func Get(key, fallback string) string {
	return First(fallback, Prefix+key, key)
}

// First returns the first non-blank variable among keys, or fallback.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return fallback
}
