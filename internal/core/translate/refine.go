package translate

import (
	"context"
	"fmt"

	"github.com/opendub/engine/internal/core/evaluate"
	"github.com/opendub/engine/internal/core/job"
)

const (
	acceptScore     = 85
	maxRefineRounds = 3
)

// Refiner drives the translate→evaluate refine loop for chunks that opted
// into verification.
type Refiner struct {
	Evaluator  *evaluate.Evaluator
	Translator Translator
	SourceLang string
	TargetLang string
}

// RefineChunk evaluates c's current translation and, if it scores below the
// acceptance threshold, requests corrected per-segment translations up to
// maxRefineRounds times. It mutates c.TranslatedTexts, c.ReviewNeeded, and
// c.RefineRounds in place and returns the final QualityReport.
//
// isCancelled is polled at the start of each round and again before that
// round's refine requests; the evaluator calls and the per-segment refine
// requests within a round are not separated by further polls.
func (r *Refiner) RefineChunk(ctx context.Context, c *Chunk, isCancelled func() bool) (*job.QualityReport, error) {
	targetIsNonLatin := isNonLatinTarget(r.TargetLang)

	var report *job.QualityReport
	for round := 0; round <= maxRefineRounds; round++ {
		if isCancelled() {
			return nil, fmt.Errorf("refine: %w", context.Canceled)
		}

		original := c.JoinedSource()
		translated := joinStrings(c.TranslatedTexts)

		var err error
		report, err = r.Evaluator.Evaluate(ctx, original, translated, targetIsNonLatin)
		if err != nil {
			return nil, fmt.Errorf("evaluate chunk: %w", err)
		}

		if report.OverallScore >= acceptScore || round == maxRefineRounds {
			if report.OverallScore < acceptScore {
				report.Recommendation = job.RecommendationReviewNeeded
				c.ReviewNeeded = true
			}
			c.RefineRounds = round
			report.RefineRounds = round
			return report, nil
		}

		if isCancelled() {
			return nil, fmt.Errorf("refine: %w", context.Canceled)
		}

		corrected, err := r.refineSegments(ctx, c, report.Issues)
		if err != nil {
			return nil, fmt.Errorf("refine round %d: %w", round+1, err)
		}
		c.TranslatedTexts = corrected
	}

	return report, nil
}

// refineSegments requests a corrected translation for each segment,
// carrying the original, the previous attempt, and the evaluator's issues.
// The job's sync mode is untouched here — refine only ever revises text.
func (r *Refiner) refineSegments(ctx context.Context, c *Chunk, issues []string) ([]string, error) {
	out := make([]string, len(c.SourceTexts))
	for i, src := range c.SourceTexts {
		prev := ""
		if i < len(c.TranslatedTexts) {
			prev = c.TranslatedTexts[i]
		}
		prompt := BuildRefinementPrompt(src, prev, issues, r.SourceLang, r.TargetLang)
		result, err := r.Translator.Raw(ctx, prompt)
		if err != nil || result == "" {
			// Fall back to the prior attempt for this segment rather than
			// losing it entirely on a single-segment refine failure.
			out[i] = prev
			continue
		}
		out[i] = result
	}
	return out, nil
}

func joinStrings(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}

// isNonLatinTarget reports whether the target language code is one whose
// script is not Latin, feeding the term-preservation ASCII-run heuristic.
func isNonLatinTarget(lang string) bool {
	switch lang {
	case "ko", "ja", "zh", "ru", "ar", "he", "th", "hi":
		return true
	default:
		return false
	}
}
