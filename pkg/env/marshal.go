package env

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// MarshalMap renders env vars as .env file content with stable key
// order. Empty values are skipped.
func MarshalMap(vars map[string]string) string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		if strings.TrimSpace(vars[k]) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, vars[k])
	}
	return b.String()
}

// WriteFile persists vars to path with owner-only permissions, since
// the file holds API keys.
func WriteFile(path string, vars map[string]string) error {
	content := MarshalMap(vars)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("write env file: %w", err)
	}
	return nil
}
