package utils

import (
	"regexp"
	"strings"

	"keyfort/internal/ui"
)

// validKeyName matches names safe to use as file and directory names when
// exporting key pairs.
var validKeyName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// FormatPaths formats a slice of paths into a readable string.
func FormatPaths(paths []string) string {
	var b strings.Builder
	b.WriteString("\n")
	for _, path := range paths {
		b.WriteString("    - ")
		b.WriteString(ui.Path.Sprint(path))
		b.WriteString("\n")
	}
	return b.String()
}

// IsValidKeyName checks if a key pair name is valid (alphanumeric first
// character, then alphanumerics, dots, hyphens, underscores).
func IsValidKeyName(name string) bool {
	if name == "" {
		return false
	}
	return validKeyName.MatchString(name)
}
