// Package textutil holds small rune-aware string helpers shared across stages.
package textutil

import "unicode/utf8"

// Truncate returns the first n runes of s. Words are cut mid-way if needed.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// RuneLen is the number of runes in s.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
