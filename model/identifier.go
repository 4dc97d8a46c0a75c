package model

import "regexp"

var identifierRE = regexp.MustCompile(`^[a-zA-Z0-9-_ ]+$`)

// ValidIdentifier reports whether s is usable as a segment, slice, or
// container identifier. Identifiers are non-empty and limited to
// alphanumerics, dash, underscore, and space.
func ValidIdentifier(s string) bool {
	return identifierRE.MatchString(s)
}

var sanitizeRE = regexp.MustCompile(`[^0-9a-zA-Z-_ ]`)

// SanitizeIdentifier maps an arbitrary string, e.g. a file base name, to a
// valid identifier by replacing every forbidden rune with an underscore.
func SanitizeIdentifier(s string) string {
	return sanitizeRE.ReplaceAllString(s, "_")
}
