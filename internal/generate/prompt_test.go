package generate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPromptTruncatesLongBody(t *testing.T) {
	body := strings.Repeat("a", 2000)
	got := BuildPrompt("T", body)

	assert.True(t, strings.HasPrefix(got, "T. Photorealistic editorial illustration about: "))
	assert.LessOrEqual(t, len(got), 800)
}

func TestBuildPromptFlattensNewlines(t *testing.T) {
	got := BuildPrompt("Title", "first line\nsecond line")

	assert.NotContains(t, got, "\n")
	assert.Contains(t, got, "first line second line")
}

func TestBuildPromptEmptyBody(t *testing.T) {
	got := BuildPrompt("Only a title", "")

	assert.Equal(t, "Only a title. Photorealistic editorial illustration about: ", got)
}
