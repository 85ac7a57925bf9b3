package util

import (
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the NFKC form of s so that visually identical input
// compares equal regardless of how it was composed.
func Normalize(s string) string {
	return norm.NFKC.String(s)
}
