package translate

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/opendub/engine/internal/core/evaluate"
)

// fakeScoreProvider returns a canned overall_score for each pair of calls,
// mirroring the dual-evaluation policy's two Complete calls per round.
type fakeScoreProvider struct {
	scoresByRound []int
	calls         int
}

func (f *fakeScoreProvider) Name() string { return "fake" }

func (f *fakeScoreProvider) Complete(ctx context.Context, prompt string) (string, error) {
	round := f.calls / 2
	if round >= len(f.scoresByRound) {
		round = len(f.scoresByRound) - 1
	}
	f.calls++
	score := f.scoresByRound[round]
	return fmt.Sprintf(`{"overall_score":%d,"accuracy":%d,"naturalness":%d,"dubbing_fit":%d,"consistency":%d,"issues":["needs work"]}`,
		score, score, score, score, score), nil
}

type fakeTranslator struct {
	rawResult string
}

func (f *fakeTranslator) Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error) {
	out := make([]string, len(sourceTexts))
	for i := range sourceTexts {
		out[i] = f.rawResult
	}
	return out, nil
}

func (f *fakeTranslator) Raw(ctx context.Context, prompt string) (string, error) {
	return f.rawResult, nil
}

func (f *fakeTranslator) Name() string { return "fake-translator" }

func TestRefineChunkAcceptsOnImprovedRound(t *testing.T) {
	provider := &fakeScoreProvider{scoresByRound: []int{40, 90}}
	r := &Refiner{
		Evaluator:  evaluate.New(provider, nil),
		Translator: &fakeTranslator{rawResult: "refined text"},
		SourceLang: "ko",
		TargetLang: "en",
	}
	c := &Chunk{SourceTexts: []string{"hello"}, TranslatedTexts: []string{"bad translation"}}

	report, err := r.RefineChunk(context.Background(), c, func() bool { return false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.OverallScore != 90 {
		t.Errorf("expected final score 90, got %d", report.OverallScore)
	}
	if c.RefineRounds != 1 {
		t.Errorf("expected 1 refine round, got %d", c.RefineRounds)
	}
	if c.TranslatedTexts[0] != "refined text" {
		t.Errorf("expected translated text replaced by refine round, got %q", c.TranslatedTexts[0])
	}
	if c.ReviewNeeded {
		t.Errorf("expected ReviewNeeded false once acceptance threshold is met")
	}
}

func TestRefineChunkMarksReviewNeededAfterExhaustingRounds(t *testing.T) {
	provider := &fakeScoreProvider{scoresByRound: []int{40, 40, 40, 40}}
	r := &Refiner{
		Evaluator:  evaluate.New(provider, nil),
		Translator: &fakeTranslator{rawResult: "still not great"},
		SourceLang: "ko",
		TargetLang: "en",
	}
	c := &Chunk{SourceTexts: []string{"hello"}, TranslatedTexts: []string{"bad translation"}}

	report, err := r.RefineChunk(context.Background(), c, func() bool { return false })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.ReviewNeeded {
		t.Errorf("expected ReviewNeeded true after exhausting refine rounds")
	}
	if c.RefineRounds != maxRefineRounds {
		t.Errorf("expected RefineRounds == %d, got %d", maxRefineRounds, c.RefineRounds)
	}
	if report.Recommendation != "REVIEW_NEEDED" {
		t.Errorf("expected REVIEW_NEEDED recommendation, got %q", report.Recommendation)
	}
}

func TestRefineChunkRespectsCancellation(t *testing.T) {
	provider := &fakeScoreProvider{scoresByRound: []int{40}}
	r := &Refiner{
		Evaluator:  evaluate.New(provider, nil),
		Translator: &fakeTranslator{rawResult: "x"},
		SourceLang: "ko",
		TargetLang: "en",
	}
	c := &Chunk{SourceTexts: []string{"hello"}, TranslatedTexts: []string{"bad"}}

	_, err := r.RefineChunk(context.Background(), c, func() bool { return true })
	if err == nil {
		t.Fatal("expected an error when isCancelled is already true")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected wrapped context.Canceled, got %v", err)
	}
}
