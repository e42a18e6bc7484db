// Package secrets reads credentials from the environment or Docker secret files.
package secrets

import (
	"fmt"
	"os"
	"strings"
)

// GetSecret retrieves a secret value, supporting both direct env vars and file-based secrets.
// <KEY>_FILE takes precedence and names a file whose trimmed content is the value.
func GetSecret(envKey string, defaultValue string) (string, error) {
	// First, check if there's a _FILE variant (Docker secrets pattern)
	filePathKey := envKey + "_FILE"
	if filePath := os.Getenv(filePathKey); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("read secret file for %s: %w", envKey, err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	// Fall back to direct environment variable
	if value := os.Getenv(envKey); value != "" {
		return value, nil
	}

	return defaultValue, nil
}
