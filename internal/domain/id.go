package domain

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	DefaultIDPrefix = "11LM"
	DefaultIDPad    = 3
)

var idSuffixExpr = regexp.MustCompile(`^(.*?)(\d+)$`)

// MakeID renders a sequential article ID such as "11LM003".
func MakeID(prefix string, n, pad int) string {
	return fmt.Sprintf("%s%0*d", prefix, pad, n)
}

// ParseID splits an article ID into prefix, numeric value, and pad width of
// the numeric suffix. ok is false when the ID has no numeric suffix.
func ParseID(id string) (prefix string, n, width int, ok bool) {
	m := idSuffixExpr.FindStringSubmatch(id)
	if m == nil {
		return "", -1, 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", -1, 0, false
	}
	return m[1], n, len(m[2]), true
}

// IDsBelow lists up to count IDs preceding start, decrementing the numeric
// suffix while preserving its zero-pad width. The list is shorter than count
// when the sequence would go below zero, and empty when start has no numeric
// suffix.
func IDsBelow(start string, count int) []string {
	prefix, n, width, ok := ParseID(start)
	if !ok {
		return nil
	}
	ids := make([]string, 0, count)
	for k := 1; k <= count; k++ {
		if n-k < 0 {
			break
		}
		ids = append(ids, MakeID(prefix, n-k, width))
	}
	return ids
}
