// Package normalizers provides canonicalization of the identity fields used
// to match history documents, most importantly website URLs.
package normalizers

import (
	"strings"
	"unicode"
)

// Normalizer is a function that normalizes a string value.
type Normalizer func(string) string

// registry holds all registered normalizers.
var registry = make(map[string]Normalizer)

func init() {
	Register("lowercase", Lowercase)
	Register("trim", Trim)
	Register("strip_scheme", StripScheme)
	Register("strip_www", StripWWW)
	Register("strip_trailing_slash", StripTrailingSlash)
	Register("remove_whitespace", RemoveWhitespace)
}

// Register adds a normalizer to the registry.
func Register(name string, fn Normalizer) {
	registry[name] = fn
}

// Get retrieves a normalizer by name.
func Get(name string) (Normalizer, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// Apply applies a named normalizer to a value. Unknown names leave the value
// untouched.
func Apply(value, normalizer string) string {
	fn, ok := registry[normalizer]
	if !ok {
		return value
	}
	return fn(value)
}

// ApplyChain applies multiple normalizers in sequence.
func ApplyChain(value string, normalizers ...string) string {
	result := value
	for _, name := range normalizers {
		result = Apply(result, name)
	}
	return result
}

// Lowercase converts a string to lowercase.
func Lowercase(s string) string {
	return strings.ToLower(s)
}

// Trim removes leading and trailing whitespace.
func Trim(s string) string {
	return strings.TrimSpace(s)
}

// StripScheme removes a leading URL scheme.
func StripScheme(s string) string {
	if i := strings.Index(s, "://"); i >= 0 {
		return s[i+len("://"):]
	}
	return s
}

// StripWWW removes a leading "www." host label.
func StripWWW(s string) string {
	return strings.TrimPrefix(s, "www.")
}

// StripTrailingSlash removes a trailing path separator.
func StripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}

// RemoveWhitespace removes all whitespace characters.
func RemoveWhitespace(s string) string {
	var result strings.Builder
	for _, r := range s {
		if !unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
