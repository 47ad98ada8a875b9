// Package orchestrator drives a single job through the full dubbing
// pipeline — extract, transcribe, translate, optional verify/refine,
// synthesize, merge — wiring job, dispatcher, and the stage packages
// together. It is a separate package from pipeline (which only holds the
// shared error taxonomy dispatcher also depends on) to avoid an import
// cycle: dispatcher imports pipeline for error classification, and this
// package imports dispatcher.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/opendub/engine/internal/core/audio"
	"github.com/opendub/engine/internal/core/dispatcher"
	"github.com/opendub/engine/internal/core/evaluate"
	"github.com/opendub/engine/internal/core/extract"
	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/pipeline"
	"github.com/opendub/engine/internal/core/stt"
	"github.com/opendub/engine/internal/core/translate"
	"github.com/opendub/engine/internal/core/tts"
)

// Engines collects the concrete adapters the orchestrator may dispatch to,
// keyed by the name dispatcher.Resolve hands back.
type Engines struct {
	STT         map[string]stt.Transcriber
	Translation map[string]translate.Translator
	TTS         map[string]tts.Synthesizer
}

// Orchestrator drives a single job through extract, transcribe, translate,
// optional verify/refine, synthesize, and merge, publishing stage-weighted
// progress and bounded logs to a job.Manager as it goes.
type Orchestrator struct {
	Jobs         *job.Manager
	Engines      Engines
	Creds        dispatcher.Credentials
	Evaluator    *evaluate.Evaluator
	Assembler    *audio.Assembler
	WorkDir      string // scratch directory for per-job intermediates
	ChunkWorkers int    // concurrency for translate/synthesize chunk fan-out; 0 defaults to 3
}

// Run executes the full pipeline for jobID. It is meant to be called in its
// own goroutine by the server immediately after job creation; all status and
// progress reporting happens through o.Jobs, which the HTTP layer polls
// independently.
func (o *Orchestrator) Run(jobID string) {
	snap, err := o.Jobs.Get(jobID)
	if err != nil {
		log.Printf("[pipeline] job %s: cannot start, %v", jobID, err)
		return
	}
	ctx, err := o.Jobs.Context(jobID)
	if err != nil {
		log.Printf("[pipeline] job %s: cannot resolve context, %v", jobID, err)
		return
	}

	if err := o.Jobs.UpdateStatus(jobID, job.StatusProcessing); err != nil {
		log.Printf("[pipeline] job %s: cannot start processing, %v", jobID, err)
		return
	}

	weights := stageWeights(snap.Settings.VerifyTranslation)
	cumulative := 0

	workDir := filepath.Join(o.WorkDir, jobID)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		o.fail(jobID, fmt.Errorf("pipeline: cannot create work directory: %w", err))
		return
	}
	defer os.RemoveAll(workDir)

	if o.checkCancel(jobID) {
		return
	}

	extractedAudio, err := o.runExtract(ctx, jobID, snap, workDir)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	cumulative += weights[job.StageExtract]
	o.Jobs.SetProgress(jobID, cumulative)

	if o.checkCancel(jobID) {
		return
	}

	transcript, err := o.runTranscribe(ctx, jobID, snap, extractedAudio)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	cumulative += weights[job.StageTranscribe]
	o.Jobs.SetProgress(jobID, cumulative)

	if o.checkCancel(jobID) {
		return
	}

	chunks, err := o.runTranslate(ctx, jobID, snap, transcript, weights, &cumulative)
	if err != nil {
		o.fail(jobID, err)
		return
	}

	if o.checkCancel(jobID) {
		return
	}

	if snap.Settings.VerifyTranslation {
		report, err := o.runVerify(ctx, jobID, snap, chunks)
		if err != nil {
			if pipeline.Classify(err) == pipeline.KindCancelled {
				o.fail(jobID, err)
				return
			}
			o.Jobs.AppendLog(jobID, fmt.Sprintf("verify failed, continuing without a quality report: %v", err))
			report = &job.QualityReport{Unavailable: true, Recommendation: job.RecommendationReviewNeeded}
		}
		o.Jobs.SetQualityReport(jobID, report)
		cumulative += weights[job.StageVerify]
		o.Jobs.SetProgress(jobID, cumulative)
	}

	if o.checkCancel(jobID) {
		return
	}

	synthesized, err := o.runSynthesize(ctx, jobID, snap, chunks, transcript, weights, &cumulative)
	if err != nil {
		o.fail(jobID, err)
		return
	}

	if o.checkCancel(jobID) {
		return
	}

	outputPath, err := o.runMerge(ctx, jobID, snap, synthesized, transcript, workDir)
	if err != nil {
		o.fail(jobID, err)
		return
	}
	cumulative += weights[job.StageMerge]
	o.Jobs.SetProgress(jobID, 100)

	if err := o.Jobs.SetOutput(jobID, outputPath); err != nil {
		os.Remove(outputPath)
		o.fail(jobID, err)
		return
	}
	if err := o.Jobs.UpdateStatus(jobID, job.StatusCompleted); err != nil {
		log.Printf("[pipeline] job %s: completed but status transition failed: %v", jobID, err)
	}
	o.Jobs.AppendLog(jobID, "pipeline complete")
}

// stageWeights returns job.StageWeights, rescaled to drop StageVerify's
// share and redistribute it proportionally across the remaining stages
// when verification is disabled, so cumulative progress still reaches 100.
func stageWeights(verify bool) map[job.Stage]int {
	if verify {
		return job.StageWeights
	}
	total := 0
	for s, w := range job.StageWeights {
		if s == job.StageVerify {
			continue
		}
		total += w
	}
	out := make(map[job.Stage]int, len(job.StageWeights))
	assigned := 0
	stages := []job.Stage{job.StageExtract, job.StageTranscribe, job.StageTranslate, job.StageSynthesize}
	for i, s := range stages {
		w := job.StageWeights[s]
		scaled := w * 100 / total
		if i == len(stages)-1 {
			scaled = 100 - assigned - job.StageWeights[job.StageMerge]*100/total
		}
		out[s] = scaled
		assigned += scaled
	}
	out[job.StageMerge] = 100 - assigned
	out[job.StageVerify] = 0
	return out
}

// checkCancel polls the job's cancellation flag, the checkpoint the
// orchestrator applies before each stage. The status transition itself was
// already made by Manager.Cancel; this only stops further work.
func (o *Orchestrator) checkCancel(jobID string) bool {
	if o.Jobs.IsCancelled(jobID) {
		log.Printf("[pipeline] job %s: cancelled, stopping", jobID)
		return true
	}
	return false
}

func (o *Orchestrator) fail(jobID string, cause error) {
	kind := pipeline.Classify(cause)
	o.Jobs.AppendLog(jobID, fmt.Sprintf("failed (%s): %v", kind, cause))
	if err := o.Jobs.UpdateStatus(jobID, job.StatusFailed); err != nil {
		log.Printf("[pipeline] job %s: already terminal, cannot mark failed: %v", jobID, err)
	}
	log.Printf("[pipeline] job %s: failed: %v", jobID, cause)
}

func (o *Orchestrator) runExtract(ctx context.Context, jobID string, snap *job.Job, workDir string) (string, error) {
	o.Jobs.SetStage(jobID, job.StageExtract)
	o.Jobs.AppendLog(jobID, "extracting audio from source video")

	outputPath := filepath.Join(workDir, "extracted.wav")
	if err := extract.Audio(ctx, snap.InputPath, outputPath); err != nil {
		return "", &pipeline.FatalSubprocessError{Command: "ffmpeg", Err: err}
	}
	return outputPath, nil
}

func (o *Orchestrator) runTranscribe(ctx context.Context, jobID string, snap *job.Job, audioPath string) (*stt.Transcript, error) {
	o.Jobs.SetStage(jobID, job.StageTranscribe)
	o.Jobs.AppendLog(jobID, "transcribing audio")

	chain := dispatcher.Resolve(dispatcher.KindSTT, snap.Settings, o.Creds)
	if len(chain) == 0 {
		return nil, pipeline.NewInputExhaustionError("transcribe: no STT engine available")
	}

	var transcript *stt.Transcript
	err := dispatcher.RunWithFallback(ctx, chain, func(ctx context.Context, spec dispatcher.EngineSpec) error {
		engine, ok := o.Engines.STT[spec.Name]
		if !ok {
			return pipeline.NewInputExhaustionError("transcribe: engine " + spec.Name + " not wired")
		}
		o.Jobs.AppendLog(jobID, "transcribe: trying "+spec.Name)
		t, err := engine.Transcribe(ctx, audioPath, snap.Settings.SourceLang)
		if err != nil {
			return err
		}
		if verr := t.Validate(); verr != nil {
			return pipeline.NewMalformedResponseError(verr)
		}
		transcript = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(transcript.Segments) == 0 {
		return nil, pipeline.NewInputExhaustionError("transcribe: empty transcript")
	}
	return transcript, nil
}

// runTranslate chunks the transcript and translates each chunk, fanning out
// across o.ChunkWorkers goroutines. Cancellation is polled before each
// chunk is dispatched and, inside a chunk, before each translation engine
// attempt; a Translator's own requests (including a JSON repair request)
// are not separated by further polls.
func (o *Orchestrator) runTranslate(ctx context.Context, jobID string, snap *job.Job, transcript *stt.Transcript, weights map[job.Stage]int, cumulative *int) ([]*translate.Chunk, error) {
	o.Jobs.SetStage(jobID, job.StageTranslate)
	o.Jobs.AppendLog(jobID, "translating transcript")

	chunks := translate.ChunkSegments(transcript.Segments, translate.DefaultChunkerConfig())
	if len(chunks) == 0 {
		return nil, pipeline.NewInputExhaustionError("translate: no chunks produced")
	}

	chain := dispatcher.Resolve(dispatcher.KindTranslation, snap.Settings, o.Creds)
	if len(chain) == 0 {
		return nil, pipeline.NewInputExhaustionError("translate: no translation engine available")
	}

	workers := o.ChunkWorkers
	if workers <= 0 {
		workers = 3
	}

	var (
		mu       sync.Mutex
		firstErr error
		done     int
	)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, c := range chunks {
		if o.checkCancel(jobID) {
			return nil, pipeline.ErrCancelled
		}
		mu.Lock()
		if firstErr != nil {
			mu.Unlock()
			break
		}
		mu.Unlock()

		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, chunk *translate.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			sanitized := make([]string, len(chunk.SourceTexts))
			for i, s := range chunk.SourceTexts {
				sanitized[i] = translate.Sanitize(s)
			}

			err := dispatcher.RunWithFallback(ctx, chain, func(ctx context.Context, spec dispatcher.EngineSpec) error {
				if o.Jobs.IsCancelled(jobID) {
					return pipeline.ErrCancelled
				}
				engine, ok := o.Engines.Translation[spec.Name]
				if !ok {
					return pipeline.NewInputExhaustionError("translate: engine " + spec.Name + " not wired")
				}
				out, err := engine.Translate(ctx, sanitized, snap.Settings.SourceLang, snap.Settings.TargetLang)
				if err != nil {
					return err
				}
				if len(out) != len(sanitized) {
					return pipeline.NewMalformedResponseError(fmt.Errorf("translate: expected %d segments, got %d", len(sanitized), len(out)))
				}
				chunk.TranslatedTexts = out
				return nil
			})

			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("translate chunk %d: %w", idx, err)
			}
			done++
			progress := weights[job.StageTranslate] * done / len(chunks)
			mu.Unlock()

			o.Jobs.SetProgress(jobID, *cumulative+progress)
		}(i, c)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	*cumulative += weights[job.StageTranslate]
	o.Jobs.SetProgress(jobID, *cumulative)
	return chunks, nil
}

// runVerify drives the refine loop for each chunk independently, aggregating
// into one job-level QualityReport (the worst recommendation wins).
func (o *Orchestrator) runVerify(ctx context.Context, jobID string, snap *job.Job, chunks []*translate.Chunk) (*job.QualityReport, error) {
	o.Jobs.SetStage(jobID, job.StageVerify)
	o.Jobs.AppendLog(jobID, "verifying translation quality")

	chain := dispatcher.Resolve(dispatcher.KindTranslation, snap.Settings, o.Creds)
	var translator translate.Translator
	if len(chain) > 0 {
		translator = o.Engines.Translation[chain[0].Name]
	}
	if translator == nil || o.Evaluator == nil {
		return &job.QualityReport{Unavailable: true, Recommendation: job.RecommendationReviewNeeded}, nil
	}

	refiner := &translate.Refiner{
		Evaluator:  o.Evaluator,
		Translator: translator,
		SourceLang: snap.Settings.SourceLang,
		TargetLang: snap.Settings.TargetLang,
	}

	aggregate := &job.QualityReport{Recommendation: job.RecommendationApproved}
	for i, c := range chunks {
		if o.Jobs.IsCancelled(jobID) {
			return nil, pipeline.ErrCancelled
		}
		report, err := refiner.RefineChunk(ctx, c, func() bool { return o.Jobs.IsCancelled(jobID) })
		if err != nil {
			return nil, fmt.Errorf("verify chunk %d: %w", i, err)
		}
		aggregate = worseReport(aggregate, report)
	}
	return aggregate, nil
}

// worseReport returns whichever of a/b carries the lower-priority
// recommendation (REJECT worse than REVIEW_NEEDED worse than APPROVED),
// keeping that one's full detail for the job-level aggregate.
func worseReport(a, b *job.QualityReport) *job.QualityReport {
	rank := map[string]int{job.RecommendationApproved: 0, job.RecommendationReviewNeeded: 1, job.RecommendationReject: 2}
	if rank[b.Recommendation] >= rank[a.Recommendation] {
		return b
	}
	return a
}

// runSynthesize renders every segment of every chunk to audio, fanning out
// across o.ChunkWorkers goroutines the same way translate does.
func (o *Orchestrator) runSynthesize(ctx context.Context, jobID string, snap *job.Job, chunks []*translate.Chunk, transcript *stt.Transcript, weights map[job.Stage]int, cumulative *int) ([]tts.SynthesizedSegment, error) {
	o.Jobs.SetStage(jobID, job.StageSynthesize)
	o.Jobs.AppendLog(jobID, "synthesizing dubbed audio")

	chain := dispatcher.Resolve(dispatcher.KindTTS, snap.Settings, o.Creds)
	if len(chain) == 0 {
		return nil, pipeline.NewInputExhaustionError("synthesize: no TTS engine available")
	}

	type unit struct {
		segmentIndex int
		text         string
	}
	var units []unit
	segIdx := 0
	for _, c := range chunks {
		for _, t := range c.TranslatedTexts {
			units = append(units, unit{segmentIndex: segIdx, text: t})
			segIdx++
		}
	}
	if len(units) == 0 {
		return nil, pipeline.NewInputExhaustionError("synthesize: no translated segments")
	}

	voice := tts.VoiceSpec{Language: snap.Settings.TargetLang}
	if snap.Settings.CloneVoice {
		voice.CloneAudioPath = filepath.Join(o.WorkDir, jobID, "extracted.wav")
	}

	workers := o.ChunkWorkers
	if workers <= 0 {
		workers = 3
	}

	results := make([]tts.SynthesizedSegment, len(units))
	var (
		mu       sync.Mutex
		firstErr error
		done     int
	)
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, u := range units {
		if o.checkCancel(jobID) {
			return nil, pipeline.ErrCancelled
		}
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int, u unit) {
			defer wg.Done()
			defer func() { <-sem }()

			var seg *tts.SynthesizedSegment
			err := dispatcher.RunWithFallback(ctx, chain, func(ctx context.Context, spec dispatcher.EngineSpec) error {
				if o.Jobs.IsCancelled(jobID) {
					return pipeline.ErrCancelled
				}
				engine, ok := o.Engines.TTS[spec.Name]
				if !ok {
					return pipeline.NewInputExhaustionError("synthesize: engine " + spec.Name + " not wired")
				}
				if voice.CloneAudioPath != "" && !engine.SupportsCloning() {
					return pipeline.NewInputExhaustionError("synthesize: engine " + spec.Name + " does not support cloning")
				}
				s, err := engine.Synthesize(ctx, u.segmentIndex, u.text, voice)
				if err != nil {
					return err
				}
				seg = s
				return nil
			})

			mu.Lock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("synthesize segment %d: %w", u.segmentIndex, err)
				}
			} else {
				results[idx] = *seg
			}
			done++
			progress := weights[job.StageSynthesize] * done / len(units)
			mu.Unlock()

			o.Jobs.SetProgress(jobID, *cumulative+progress)
		}(i, u)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	*cumulative += weights[job.StageSynthesize]
	o.Jobs.SetProgress(jobID, *cumulative)
	return results, nil
}

func (o *Orchestrator) runMerge(ctx context.Context, jobID string, snap *job.Job, synthesized []tts.SynthesizedSegment, transcript *stt.Transcript, workDir string) (string, error) {
	o.Jobs.SetStage(jobID, job.StageMerge)
	o.Jobs.AppendLog(jobID, "assembling dubbed audio track")

	assembledPath := filepath.Join(workDir, "assembled.wav")
	assembledSeconds, err := o.Assembler.Assemble(synthesized, transcript.Segments, snap.Settings.SyncMode, assembledPath)
	if err != nil {
		return "", fmt.Errorf("merge: assemble audio: %w", err)
	}

	stretchFactor := 1.0
	if snap.Settings.SyncMode == job.SyncVideoStretch {
		originalSeconds, err := extract.Duration(ctx, snap.InputPath)
		if err != nil {
			return "", fmt.Errorf("merge: probe source duration: %w", err)
		}
		stretchFactor = audio.StretchFactor(originalSeconds, assembledSeconds)
	}

	outputPath := filepath.Join(o.WorkDir, jobID+"_dubbed.mp4")
	o.Jobs.AppendLog(jobID, "merging audio into source video")
	if err := audio.Mux(ctx, snap.InputPath, assembledPath, outputPath, stretchFactor); err != nil {
		return "", &pipeline.FatalSubprocessError{Command: "ffmpeg", Err: err}
	}
	return outputPath, nil
}
