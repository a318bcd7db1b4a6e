package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestApproxTokens(t *testing.T) {
	assert.Equal(t, 1, ApproxTokens(""))
	assert.Equal(t, 1, ApproxTokens("abc"))
	assert.Equal(t, 2, ApproxTokens("abcde"))
	assert.Equal(t, 25, ApproxTokens(strings.Repeat("x", 100)))
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "abc", Preview("abc", 10))
	assert.Equal(t, "abcde", Preview("abcdefgh", 5))
}

func TestPreviewNeverSplitsRunes(t *testing.T) {
	// "x" shifts every two-byte "ă" off the even byte alignment, so a naive
	// byte cut at 280 would land mid-rune.
	s := "x" + strings.Repeat("ă", 200)

	got := Preview(s, 280)
	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 280)
	assert.True(t, strings.HasPrefix(s, got))

	// Diacritic-heavy text of every alignment stays valid.
	for max := 1; max < 12; max++ {
		p := Preview("ținută", max)
		assert.True(t, utf8.ValidString(p), "max=%d", max)
	}
}
