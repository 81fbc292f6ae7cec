//go:build windows

// Package envcase normalizes environment variable names for the host's
// case-folding behavior.
package envcase

import "strings"

// Normalize folds key to the casing the host environment table treats as
// canonical. Windows environment blocks are case-insensitive.
func Normalize(key string) string {
	return strings.ToUpper(key)
}
