// Package runstats holds the run statistics rules: completion time and loss
// formats, the Gen 1 evolution stage table and the dashboard overview.
package runstats

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeCompletionTime rewrites an H:MM value without a leading zero on
// the hours ("03:45" -> "3:45"). Other shapes are returned unchanged. The
// second result reports whether the value changed.
func NormalizeCompletionTime(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	parts := strings.Split(trimmed, ":")
	if len(parts) != 2 {
		return s, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return s, false
	}
	out := strconv.Itoa(h) + ":" + parts[1]
	return out, out != s
}

// ParseCompletionTime reads H:MM or H:MM:SS. "N/A", blanks and values without
// a colon are not times. Non-numeric parts count as zero.
func ParseCompletionTime(s string) (time.Duration, bool) {
	t := strings.TrimSpace(s)
	if t == "" || strings.EqualFold(t, "N/A") || !strings.Contains(t, ":") || t == ":" || t == "::" {
		return 0, false
	}
	parts := strings.Split(t, ":")
	var h, m, sec int
	switch len(parts) {
	case 2:
		h, m = leadingInt(parts[0]), leadingInt(parts[1])
	case 3:
		h, m, sec = leadingInt(parts[0]), leadingInt(parts[1]), leadingInt(parts[2])
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, true
}

// FormatClock renders d as H:MM:SS, truncating fractions of a second.
func FormatClock(d time.Duration) string {
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// leadingInt parses the leading decimal digits of s, or 0.
func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}
