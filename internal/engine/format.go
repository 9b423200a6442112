package engine

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatInt renders n with thousands separators: 1234 -> "1,234".
func FormatInt(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatTIV renders a TIV with thousands separators and two decimals.
func FormatTIV(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// FormatShare renders an import share the way it is stored, suffixed with %.
// Whole numbers keep one decimal: 12 -> "12.0%".
func FormatShare(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(v, 0) && !math.IsNaN(v) {
		s += ".0"
	}
	return s + "%"
}
