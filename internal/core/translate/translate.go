// Package translate turns transcript segments into target-language text:
// chunking, prompt sanitization, provider adapters, and the verify/refine
// loop that drives chunk quality toward the acceptance threshold.
package translate

import (
	"context"
)

// Chunk is a contiguous span of transcript segments grouped by running
// character count toward a target of ~400 (range 400–800).
type Chunk struct {
	SourceTexts     []string // per-segment original text
	TranslatedTexts []string // populated after translation, 1:1 with SourceTexts
	StartSeconds    float64
	EndSeconds      float64
	ReviewNeeded    bool
	RefineRounds    int
}

// JoinedSource returns the chunk's source texts joined with single spaces,
// the form the refine loop hands to the evaluator.
func (c *Chunk) JoinedSource() string {
	out := ""
	for i, s := range c.SourceTexts {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// Translator produces a 1:1 translation of a chunk's segments into the
// target language.
type Translator interface {
	// Translate returns one translated string per element of sourceTexts,
	// in the same order.
	Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error)

	// Raw sends prompt to the underlying model verbatim and returns its text
	// response, with no few-shot wrapping. Used for refine-round prompts and
	// JSON-repair prompts, which are already fully formed.
	Raw(ctx context.Context, prompt string) (string, error)

	// Name identifies the engine for dispatcher bookkeeping and logs.
	Name() string
}
