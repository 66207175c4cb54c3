package view

import (
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatCount renders an integer with thousands separators: 12,345.
func FormatCount(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v)))
}

// FormatCompact renders large values with a k or M suffix: 45.2k.
func FormatCompact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e6:
		return humanize.FtoaWithDigits(v/1e6, 1) + "M"
	case abs >= 1e3:
		return humanize.FtoaWithDigits(v/1e3, 1) + "k"
	default:
		return FormatCount(v)
	}
}

// FormatPercent renders a percentage with one decimal: 4.8%.
func FormatPercent(v float64) string {
	return printer.Sprintf("%.1f%%", v)
}

// FormatStat renders v according to a fixture format name.
func FormatStat(v float64, format string) string {
	switch format {
	case "compact":
		return FormatCompact(v)
	case "percent":
		return FormatPercent(v)
	default:
		return FormatCount(v)
	}
}

// Ago renders then relative to now: "2 hours ago".
func Ago(then, now time.Time) string {
	if then.IsZero() {
		return ""
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

// LongDate renders "April 15, 2024".
func LongDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// Truncate shortens s to at most n runes, adding an ellipsis.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "…"
}

// MaskToken shows only the ends of a credential.
func MaskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return strings.Repeat("•", 8)
	}
	return token[:6] + "…" + token[len(token)-4:]
}
