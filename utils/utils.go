package utils

import "time"

// Pointer returns a pointer to v. Handy for optional model fields.
func Pointer[T any](v T) *T {
	return &v
}

// TruncateRunes shortens s to at most n runes, appending an ellipsis when
// anything was cut.
func TruncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// StartOfDay returns t with the time-of-day zeroed in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
