// Package placeholder substitutes the {module} and {vendor} tokens used in
// migration locations and history table names.
package placeholder

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ModuleToken = "{module}"
	VendorToken = "{vendor}"
)

var ErrVendorDetection = errors.New("failed to detect database vendor")

// VendorSource reports the vendor identifier of a datasource, e.g.
// "postgresql". An empty identifier means the vendor is unknown.
type VendorSource interface {
	VendorID() (string, error)
}

// ResolveModule replaces every {module} token with the given module name. The
// input is returned as-is when none of the locations use the token.
func ResolveModule(locations []string, module string) []string {
	if !uses(locations, ModuleToken) {
		return locations
	}
	return replaceAll(locations, ModuleToken, module)
}

// ResolveTable replaces every {module} token in a history table name.
func ResolveTable(table, module string) string {
	if !strings.Contains(table, ModuleToken) {
		return table
	}
	return strings.ReplaceAll(table, ModuleToken, module)
}

// ResolveVendor replaces every {vendor} token with the vendor reported by
// src. The source is only consulted when at least one location uses the
// token. An unknown vendor leaves the locations untouched.
func ResolveVendor(locations []string, src VendorSource) ([]string, error) {
	if !uses(locations, VendorToken) {
		return locations, nil
	}
	if src == nil {
		return nil, fmt.Errorf("%w: no datasource available", ErrVendorDetection)
	}
	vendor, err := src.VendorID()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVendorDetection, err)
	}
	if vendor == "" {
		return locations, nil
	}
	return replaceAll(locations, VendorToken, vendor), nil
}

func uses(values []string, token string) bool {
	for _, v := range values {
		if strings.Contains(v, token) {
			return true
		}
	}
	return false
}

func replaceAll(values []string, token, replacement string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ReplaceAll(v, token, replacement)
	}
	return out
}
