// Package location resolves migration locations against a resource root and
// the local filesystem.
package location

import (
	"errors"
	"fmt"
	"strings"
)

const (
	PrefixClasspath  = "classpath:"
	PrefixFile       = "file:"
	prefixFilesystem = "filesystem:"
)

var (
	ErrLocationsNotConfigured = errors.New("migration locations are not configured")
	ErrLocationNotFound       = errors.New("migration location not found")
)

// Predicate reports whether a normalized location exists.
type Predicate func(location string) bool

// Normalize rewrites the "filesystem:" prefix to its "file:" equivalent. Other
// locations are returned unchanged.
func Normalize(location string) string {
	if rest, ok := strings.CutPrefix(location, prefixFilesystem); ok {
		return PrefixFile + rest
	}
	return location
}

// Check succeeds when at least one of the given locations exists. It's a no-op
// when enabled is false.
func Check(locations []string, exists Predicate, enabled bool) error {
	if !enabled {
		return nil
	}
	if len(locations) == 0 {
		return ErrLocationsNotConfigured
	}
	for _, loc := range locations {
		if exists(Normalize(loc)) {
			return nil
		}
	}
	return fmt.Errorf("%w: none of [%s] exist, add migrations or check the module's locations",
		ErrLocationNotFound, strings.Join(locations, ", "))
}
