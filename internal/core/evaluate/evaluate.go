// Package evaluate scores a translation pair and produces a structured
// quality report: dual-evaluation averaging, term-preservation enforcement,
// long-text sampling, and JSON-repair-backed parsing of the evaluator's
// response.
package evaluate

import (
	"context"
	"fmt"
	"sort"

	"github.com/opendub/engine/internal/core/job"
)

// rawReport is the JSON shape the evaluator model is instructed to return.
type rawReport struct {
	OverallScore int      `json:"overall_score"`
	Accuracy     int      `json:"accuracy"`
	Naturalness  int      `json:"naturalness"`
	DubbingFit   int      `json:"dubbing_fit"`
	Consistency  int      `json:"consistency"`
	Issues       []string `json:"issues"`
}

// Provider sends a fully-formed prompt to an LLM and returns its raw text
// response. Evaluate builds the scoring prompt and the JSON-repair prompt;
// Provider only knows how to talk to one model.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Evaluator runs the dual-evaluation + term-preservation + sampling policy
// over a primary provider with an optional secondary for quota fallback.
type Evaluator struct {
	Primary   Provider
	Secondary Provider
}

// New builds an Evaluator. secondary may be nil if no fallback is configured.
func New(primary, secondary Provider) *Evaluator {
	return &Evaluator{Primary: primary, Secondary: secondary}
}

// Evaluate scores original against translated and returns a complete
// QualityReport, including the term-preservation override and refine-round
// bookkeeping (callers of the refine loop set RefineRounds themselves).
func (e *Evaluator) Evaluate(ctx context.Context, original, translated string, targetLangIsNonLatin bool) (*job.QualityReport, error) {
	sampledOriginal, sampledTranslated, sampled := sampleIfLong(original, translated)

	first, err := e.score(ctx, sampledOriginal, sampledTranslated)
	if err != nil {
		return e.failedSoft(err), nil
	}

	overall := first.OverallScore
	second, err := e.score(ctx, sampledOriginal, sampledTranslated)
	if err == nil {
		// One successful call is enough to proceed; dual evaluation only
		// degrades to a single score if the second call itself fails.
		overall = (first.OverallScore + second.OverallScore) / 2
		if abs(first.OverallScore-second.OverallScore) >= 20 {
			third, err := e.score(ctx, sampledOriginal, sampledTranslated)
			if err == nil {
				overall = median3(first.OverallScore, second.OverallScore, third.OverallScore)
			}
		}
	}

	report := &job.QualityReport{
		OverallScore: overall,
		Accuracy:     first.Accuracy,
		Naturalness:  first.Naturalness,
		DubbingFit:   first.DubbingFit,
		Consistency:  first.Consistency,
		Issues:       first.Issues,
		Sampled:      sampled,
	}
	report.Recommendation = recommendationFor(overall)

	preservation := ComputeTermPreservation(original, translated, targetLangIsNonLatin)
	report.TermPreservation = preservation
	if preservation.Score < 0.30 {
		report.Recommendation = job.RecommendationReject
	}

	return report, nil
}

func recommendationFor(score int) string {
	switch {
	case score >= 85:
		return job.RecommendationApproved
	case score >= 60:
		return job.RecommendationReviewNeeded
	default:
		return job.RecommendationReject
	}
}

// failedSoft builds the "verify failed soft" report: translation is kept,
// the quality report is marked unavailable, the job is never failed for this.
func (e *Evaluator) failedSoft(cause error) *job.QualityReport {
	return &job.QualityReport{
		Unavailable:    true,
		Recommendation: job.RecommendationReviewNeeded,
		Issues:         []string{fmt.Sprintf("quality evaluation unavailable: %v", cause)},
	}
}

// score calls the primary provider, falling back to the secondary on a
// quota/429 condition, and parses the response through the JSON repair
// ladder, degrading to a zero-score report on exhaustion (the caller's
// term-preservation override still applies REJECT where warranted).
func (e *Evaluator) score(ctx context.Context, original, translated string) (*rawReport, error) {
	prompt := buildScoringPrompt(original, translated)

	active := e.Primary
	raw, err := active.Complete(ctx, prompt)
	if err != nil && isQuotaErr(err) && e.Secondary != nil {
		active = e.Secondary
		raw, err = active.Complete(ctx, prompt)
	}
	if err != nil {
		return nil, err
	}

	report, err := parseReport(ctx, raw, e.repairWith(active))
	if err != nil {
		return &rawReport{
			OverallScore: 0,
			Issues:       []string{fmt.Sprintf("evaluator response could not be parsed: %v", err)},
		}, nil
	}
	return report, nil
}

func (e *Evaluator) repairWith(p Provider) func(ctx context.Context, broken string) (string, error) {
	if p == nil {
		return nil
	}
	return func(ctx context.Context, broken string) (string, error) {
		return p.Complete(ctx, "The following is supposed to be a JSON object but failed to parse. Return ONLY the corrected JSON object, nothing else:\n\n"+broken)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func median3(a, b, c int) int {
	vals := []int{a, b, c}
	sort.Ints(vals)
	return vals[1]
}
