package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Tokenize splits text on sep and drops empty tokens.
func Tokenize(text, sep string) []string {
	if sep == "" {
		return strings.Fields(text)
	}
	parts := strings.Split(text, sep)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// FormatWithCommas renders n with thousands separators.
func FormatWithCommas(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatBytes renders a byte count with a binary unit.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// BitsPer renders the average number of bits spent per item.
func BitsPer(bytes int64, items int) string {
	if items == 0 {
		return "-"
	}
	return strconv.FormatFloat(float64(bytes*8)/float64(items), 'f', 2, 64)
}
