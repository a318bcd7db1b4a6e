package textutil

import "unicode/utf8"

// ApproxTokens is the coarse chars/4 token estimate used for previews and
// run stats.
func ApproxTokens(s string) int {
	n := (len(s) + 3) / 4
	if n < 1 {
		return 1
	}
	return n
}

// Preview truncates s to at most max bytes without splitting a rune, so the
// result stays valid UTF-8 when s is.
func Preview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
