// Package money formats minor-unit amounts for receipts and pages.
package money

import (
	"strconv"
	"strings"
)

// Group renders n with Indian digit grouping: the last three digits, then
// pairs (1,23,45,678).
func Group(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		parts = append([]string{head}, parts...)
		s = strings.Join(parts, ",") + "," + tail
	}
	if neg {
		return "-" + s
	}
	return s
}

// Format prefixes the grouped amount with the currency symbol.
func Format(symbol string, n int64) string {
	return symbol + Group(n)
}
