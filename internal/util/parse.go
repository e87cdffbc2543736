package util

import (
	"strconv"
	"strings"
)

// ParseInt parses a string to an integer, returning defaultValue if parsing fails
func ParseInt(s string, defaultValue int) int {
	if val, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return val
	}
	return defaultValue
}

// ParseOffset reads a pagination offset. Garbage and negatives become 0.
func ParseOffset(s string) int {
	if n := ParseInt(s, 0); n > 0 {
		return n
	}
	return 0
}
