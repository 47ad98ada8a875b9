package translate

import (
	"regexp"
	"strings"
)

// MaxSanitizedChars bounds a single source text passed into a prompt.
const MaxSanitizedChars = 10000

var (
	fencedCodeBlock = regexp.MustCompile("(?s)```.*?```")

	// injectionPatterns catch the common "ignore previous instructions"
	// family of prompt-injection attempts riding inside transcript text.
	injectionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore (all )?(the )?(above|previous|prior) instructions?`),
		regexp.MustCompile(`(?i)disregard (all )?(the )?(above|previous|prior) instructions?`),
		regexp.MustCompile(`(?i)new instructions?\s*:`),
		regexp.MustCompile(`(?i)^\s*system\s*:`),
		regexp.MustCompile(`(?im)^\s*system\s*:`),
	}

	injectionToken = "[neutralized]"
)

// Sanitize strips fenced code blocks, neutralizes recognized injection
// patterns, and caps length before a source text is embedded in a prompt.
func Sanitize(text string) string {
	text = fencedCodeBlock.ReplaceAllString(text, "")

	for _, pattern := range injectionPatterns {
		text = pattern.ReplaceAllString(text, injectionToken)
	}

	if r := []rune(text); len(r) > MaxSanitizedChars {
		text = string(r[:MaxSanitizedChars])
	}

	return strings.TrimSpace(text)
}

// Delimited wraps sanitized text in explicit content markers so the model
// can never mistake transcript text for prompt instructions.
func Delimited(text string) string {
	return "<<<SOURCE_TEXT_START>>>\n" + text + "\n<<<SOURCE_TEXT_END>>>"
}
