package orchestrator

import (
	"context"
	"testing"

	"github.com/opendub/engine/internal/core/dispatcher"
	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/translate"
)

func TestStageWeightsSumsToHundredWithVerify(t *testing.T) {
	w := stageWeights(true)
	total := 0
	for _, v := range w {
		total += v
	}
	if total != 100 {
		t.Errorf("expected weights to sum to 100, got %d", total)
	}
	if w[job.StageVerify] == 0 {
		t.Error("expected verify to carry nonzero weight when enabled")
	}
}

func TestStageWeightsSumsToHundredWithoutVerify(t *testing.T) {
	w := stageWeights(false)
	total := 0
	for _, v := range w {
		total += v
	}
	if total != 100 {
		t.Errorf("expected rescaled weights to sum to 100, got %d", total)
	}
	if w[job.StageVerify] != 0 {
		t.Errorf("expected verify weight to be zero when disabled, got %d", w[job.StageVerify])
	}
	for _, s := range []job.Stage{job.StageExtract, job.StageTranscribe, job.StageTranslate, job.StageSynthesize, job.StageMerge} {
		if w[s] <= 0 {
			t.Errorf("expected stage %s to carry positive weight, got %d", s, w[s])
		}
	}
}

func TestWorseReportPrefersReject(t *testing.T) {
	approved := &job.QualityReport{Recommendation: job.RecommendationApproved}
	reject := &job.QualityReport{Recommendation: job.RecommendationReject}

	if got := worseReport(approved, reject); got != reject {
		t.Error("expected REJECT to win over APPROVED")
	}
	if got := worseReport(reject, approved); got != reject {
		t.Error("expected REJECT to win regardless of argument order")
	}
}

func TestWorseReportPrefersReviewNeededOverApproved(t *testing.T) {
	approved := &job.QualityReport{Recommendation: job.RecommendationApproved}
	review := &job.QualityReport{Recommendation: job.RecommendationReviewNeeded}

	if got := worseReport(approved, review); got != review {
		t.Error("expected REVIEW_NEEDED to win over APPROVED")
	}
}

func TestCheckCancelReportsUnknownJobAsNotCancelled(t *testing.T) {
	o := &Orchestrator{Jobs: job.NewManager()}
	if o.checkCancel("00000000-0000-4000-8000-000000000000") {
		t.Error("expected an unknown job id to report not cancelled rather than panicking")
	}
}

// TestRunVerifyFailsSoftWithNoTranslatorWired exercises the failed-soft
// branch directly: with no translation engine available for the verify
// step's re-ask call, runVerify must hand back an Unavailable/REVIEW_NEEDED
// report rather than an error, so Run never hard-fails a job over it.
func TestRunVerifyFailsSoftWithNoTranslatorWired(t *testing.T) {
	jobs := job.NewManager()
	o := &Orchestrator{Jobs: jobs, Engines: Engines{Translation: map[string]translate.Translator{}}, Creds: dispatcher.Credentials{}}

	id := jobs.Create(job.Settings{SourceLang: "ko", TargetLang: "en", VerifyTranslation: true}, "/tmp/in.mp4", "in.mp4")
	chunks := []*translate.Chunk{{SourceTexts: []string{"hello"}, TranslatedTexts: []string{"annyeong"}}}

	report, err := o.runVerify(context.Background(), id, mustSnapshot(t, jobs, id), chunks)
	if err != nil {
		t.Fatalf("expected runVerify to fail soft, got error: %v", err)
	}
	if !report.Unavailable {
		t.Error("expected the report to be marked unavailable")
	}
	if report.Recommendation != job.RecommendationReviewNeeded {
		t.Errorf("expected REVIEW_NEEDED, got %s", report.Recommendation)
	}
}

// TestRunVerifyFailsSoftWithNoEvaluatorWired guards against a nil-pointer
// panic: a wired translator but no configured evaluator (e.g. only a local
// translate URL, no OpenAI/Anthropic credentials) must still fail soft
// rather than dereference a nil Evaluator inside Refiner.RefineChunk.
func TestRunVerifyFailsSoftWithNoEvaluatorWired(t *testing.T) {
	jobs := job.NewManager()
	o := &Orchestrator{
		Jobs:      jobs,
		Engines:   Engines{Translation: map[string]translate.Translator{"local": fakeTranslator{}}},
		Creds:     dispatcher.Credentials{HasLocalTranslate: true},
		Evaluator: nil,
	}

	id := jobs.Create(job.Settings{SourceLang: "ko", TargetLang: "en", VerifyTranslation: true}, "/tmp/in.mp4", "in.mp4")
	chunks := []*translate.Chunk{{SourceTexts: []string{"hello"}, TranslatedTexts: []string{"annyeong"}}}

	report, err := o.runVerify(context.Background(), id, mustSnapshot(t, jobs, id), chunks)
	if err != nil {
		t.Fatalf("expected runVerify to fail soft, got error: %v", err)
	}
	if !report.Unavailable {
		t.Error("expected the report to be marked unavailable")
	}
}

type fakeTranslator struct{}

func (fakeTranslator) Translate(ctx context.Context, sourceTexts []string, sourceLang, targetLang string) ([]string, error) {
	return sourceTexts, nil
}
func (fakeTranslator) Raw(ctx context.Context, prompt string) (string, error) { return "", nil }
func (fakeTranslator) Name() string                                           { return "local" }

func mustSnapshot(t *testing.T, jobs *job.Manager, id string) *job.Job {
	t.Helper()
	snap, err := jobs.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return snap
}
