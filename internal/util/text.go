package util

import (
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Ellipsis marks truncated text
const Ellipsis = "…"

// Shorten collapses whitespace runs to single spaces and truncates the
// result to at most maxLen characters at the last word boundary, appending
// Ellipsis only when something was cut. A first word longer than maxLen is
// cut hard.
func Shorten(text string, maxLen int) string {
	t := strings.Join(strings.Fields(text), " ")
	runes := []rune(t)
	if len(runes) <= maxLen {
		return t
	}
	if maxLen <= 0 {
		return Ellipsis
	}

	// A boundary right after the limit keeps the last whole word
	if unicode.IsSpace(runes[maxLen]) {
		return string(runes[:maxLen]) + Ellipsis
	}

	head := runes[:maxLen]
	cut := head
	for i := len(head) - 1; i >= 0; i-- {
		if head[i] == ' ' {
			cut = head[:i]
			break
		}
	}
	if len(cut) == 0 {
		cut = head
	}
	return string(cut) + Ellipsis
}

// FormatAmount renders a number in shortest round-trip form, keeping a
// trailing ".0" on integral values (20.0, 19.99, 1e+16).
func FormatAmount(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
