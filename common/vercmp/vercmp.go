// Package vercmp implements loose version ordering: versions are split into
// alternating numeric and alphabetic segments, numeric segments compare by
// value and alphabetic segments compare lexically. This makes "1.10" newer
// than "1.9" where a plain string compare would not.
package vercmp

import "strings"

// Compare returns -1 if a is older than b, 0 if they order equally and
// +1 if a is newer than b. Empty strings order before anything non-empty;
// callers are expected to treat empty versions as "not comparable" and
// never rely on their ordering.
func Compare(a, b string) int {
	ai, bi := 0, 0
	for ai < len(a) || bi < len(b) {
		ai = skipSeparators(a, ai)
		bi = skipSeparators(b, bi)
		if ai >= len(a) && bi >= len(b) {
			return 0
		}
		// A version with extra trailing segments is considered newer
		if ai >= len(a) {
			return -1
		}
		if bi >= len(b) {
			return 1
		}

		aseg, anum, anext := nextSegment(a, ai)
		bseg, bnum, bnext := nextSegment(b, bi)
		ai, bi = anext, bnext

		if anum != bnum {
			// Numeric segments order after alphabetic ones, so
			// "1.0.1" is newer than "1.0.rc1"
			if anum {
				return 1
			}
			return -1
		}

		var c int
		if anum {
			c = compareNumeric(aseg, bseg)
		} else {
			c = strings.Compare(aseg, bseg)
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// Equal reports whether a and b order identically
func Equal(a, b string) bool {
	return Compare(a, b) == 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func skipSeparators(s string, i int) int {
	for i < len(s) && !isDigit(s[i]) && !isAlpha(s[i]) {
		i++
	}
	return i
}

// nextSegment extracts the run of digits or letters starting at i
func nextSegment(s string, i int) (seg string, numeric bool, next int) {
	start := i
	if isDigit(s[i]) {
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		return s[start:i], true, i
	}
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	return s[start:i], false, i
}

func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
