// Package strings provides string manipulation utilities.
package strings

import (
	"strings"
)

// NormalizeName trims the value and collapses internal runs of whitespace to
// a single space.
//
// Example:
//
//	NormalizeName("  Perry   Family ")
//	// Returns: "Perry Family"
func NormalizeName(value string) string {
	return strings.Join(strings.Fields(value), " ")
}

// NameKey is the comparison key for display names. Two names with the same
// key are considered duplicates.
//
// Example:
//
//	NameKey(" PERRY  family")
//	// Returns: "perry family"
func NameKey(value string) string {
	return strings.ToLower(NormalizeName(value))
}
