package util

import "os"

// GetEnv returns the env var value or the fallback when unset
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
