package utils

import (
	"fmt"
	"strings"
)

// ParseOverrides turns NAME=VALUE strings into a map
// Later definitions of the same name win; an empty value is allowed
func ParseOverrides(defs []string) (map[string]string, error) {
	overrides := make(map[string]string, len(defs))

	for _, def := range defs {
		name, value, ok := strings.Cut(def, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid define %q, expected NAME=VALUE", def)
		}

		overrides[name] = value
	}

	return overrides, nil
}
