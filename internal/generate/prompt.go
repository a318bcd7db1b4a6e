package generate

import (
	"strings"

	"github.com/newsmaker-md/content-pipeline/pkg/textutil"
)

// promptMaxChars keeps generated prompts under the remote API's
// 800-character limit with some slack for the style suffix.
const (
	promptMaxChars   = 750
	promptStyleSlack = 20
)

// BuildPrompt folds an article's title and opening text into a single
// diffusion prompt. A small style hint helps diffusion models stay on brief.
func BuildPrompt(title, body string) string {
	title = strings.TrimSpace(title)
	body = strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))

	room := promptMaxChars - len(title) - promptStyleSlack
	if room < 0 {
		room = 0
	}
	piece := strings.TrimSpace(textutil.Preview(body, room))

	return title + ". Photorealistic editorial illustration about: " + piece
}

// articlePrompt instructs the vision model to write a grounded news article
// from a single photo. English gets the full journalist brief; other
// languages get the short form.
func articlePrompt(language string) string {
	if strings.HasPrefix(strings.ToLower(language), "en") {
		return "You are a journalist crafting a neutral, factual news article from a single photo.\n" +
			"Write:\n" +
			"1) A concise H1 headline.\n" +
			"2) A 400–600 word article describing the visible scene (who/what/where/when). " +
			"Avoid speculation beyond what is visually plausible; do not invent names, dates, or stats. " +
			"If some facts are unclear, acknowledge uncertainty explicitly.\n" +
			"3) Finish with one line starting with 'ALT:' that gives succinct alt-text."
	}
	return "Write a 400–600 word article for this image, then add a final 'ALT:' line."
}

const visionSystemPrompt = "Be accurate; avoid hallucinations."
