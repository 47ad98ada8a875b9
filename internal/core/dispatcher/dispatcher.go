// Package dispatcher resolves, for a given pipeline stage and job settings,
// an ordered fallback chain of concrete engines — and drives that chain with
// a shared backoff/advance policy. It never performs the call itself; it
// hands back specs and a generic runner.
package dispatcher

import (
	"context"
	"time"

	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/pipeline"
)

// Kind identifies which of the three dispatchable stages a Resolve call is
// for. Extract and merge always use ffmpeg directly; verify's provider
// fallback lives inside the evaluate package's own Evaluator, since it is a
// dual-call policy rather than an ordered chain.
type Kind string

const (
	KindSTT         Kind = "stt"
	KindTranslation Kind = "translation"
	KindTTS         Kind = "tts"
)

// EngineSpec names one concrete engine in a fallback chain. The caller (the
// stt/translate/tts package) maps Name to its own concrete adapter; the
// dispatcher only ever orders names.
type EngineSpec struct {
	Name     string
	Locality string // "local" or "remote", informational for logging/UI only
}

// Credentials reports which provider credentials and local assets are
// configured, decoupling Resolve from the concrete config.Config type.
type Credentials struct {
	HasOpenAI         bool
	HasAnthropic      bool
	HasCloningTTS     bool
	HasLocalWhisper   bool
	HasLocalTTS       bool
	HasLocalTranslate bool
}

// nonCloningTargets lists target languages whose default (clone voice OFF)
// engine is a non-cloning neural voice.
var nonCloningTargets = map[string]bool{
	"ko": true,
	"ru": true,
}

// cloningCapableTargets lists target languages whose default engine is
// cloning-capable even with clone voice off.
var cloningCapableTargets = map[string]bool{
	"en": true,
	"ja": true,
}

// localPreferredSTTLangs prefer the local large model for auto-detect or a
// named language in this set.
var localPreferredSTTLangs = map[string]bool{
	"ko":   true,
	"ja":   true,
	"zh":   true,
	"":     true, // auto-detect
	"auto": true,
}

// Resolve returns the ordered fallback chain of engines for stage, given the
// job's settings and which credentials/local assets are available. An
// explicit per-stage engine choice in settings (STTEngine/TranslationEngine/
// TTSEngine) is honored as the sole entry — auto-selection only applies when
// the job left that field empty.
func Resolve(kind Kind, settings job.Settings, creds Credentials) []EngineSpec {
	switch kind {
	case KindSTT:
		return resolveSTT(settings, creds)
	case KindTranslation:
		return resolveTranslation(settings, creds)
	case KindTTS:
		return resolveTTS(settings, creds)
	default:
		return nil
	}
}

func resolveSTT(settings job.Settings, creds Credentials) []EngineSpec {
	if settings.STTEngine != "" {
		return []EngineSpec{{Name: settings.STTEngine}}
	}

	var chain []EngineSpec
	preferLocal := localPreferredSTTLangs[settings.SourceLang]
	if preferLocal && creds.HasLocalWhisper {
		chain = append(chain, EngineSpec{Name: "whisper-local", Locality: "local"})
	}
	if creds.HasOpenAI {
		chain = append(chain, EngineSpec{Name: "openai", Locality: "remote"})
	}
	if !preferLocal && creds.HasLocalWhisper {
		chain = append(chain, EngineSpec{Name: "whisper-local", Locality: "local"})
	}
	return dedupe(chain)
}

func resolveTranslation(settings job.Settings, creds Credentials) []EngineSpec {
	if settings.TranslationEngine != "" {
		return []EngineSpec{{Name: settings.TranslationEngine}}
	}

	var chain []EngineSpec
	if creds.HasOpenAI {
		chain = append(chain, EngineSpec{Name: "openai", Locality: "remote"})
	}
	if creds.HasAnthropic {
		chain = append(chain, EngineSpec{Name: "anthropic", Locality: "remote"})
	}
	if creds.HasLocalTranslate {
		chain = append(chain, EngineSpec{Name: "local", Locality: "local"})
	}
	return dedupe(chain)
}

func resolveTTS(settings job.Settings, creds Credentials) []EngineSpec {
	if settings.TTSEngine != "" {
		return []EngineSpec{{Name: settings.TTSEngine}}
	}

	if settings.CloneVoice {
		var chain []EngineSpec
		if creds.HasCloningTTS {
			chain = append(chain, EngineSpec{Name: "cloning-http", Locality: "remote"})
		}
		if creds.HasLocalTTS {
			chain = append(chain, EngineSpec{Name: "local", Locality: "local"})
		}
		return dedupe(chain)
	}

	// Clone voice off: a top-tier remote credential (cloning-http) always
	// wins outright. Otherwise the static table decides ordering — a
	// cloning-capable target prefers the local cloning-capable engine over
	// the plain non-cloning openai voice, a non-cloning target prefers
	// openai's non-cloning voice over the local engine.
	var chain []EngineSpec
	switch {
	case creds.HasCloningTTS:
		chain = append(chain, EngineSpec{Name: "cloning-http", Locality: "remote"})
		if creds.HasOpenAI {
			chain = append(chain, EngineSpec{Name: "openai", Locality: "remote"})
		}
		if creds.HasLocalTTS {
			chain = append(chain, EngineSpec{Name: "local", Locality: "local"})
		}
	case cloningCapableTargets[settings.TargetLang]:
		if creds.HasLocalTTS {
			chain = append(chain, EngineSpec{Name: "local", Locality: "local"})
		}
		if creds.HasOpenAI {
			chain = append(chain, EngineSpec{Name: "openai", Locality: "remote"})
		}
	default:
		// nonCloningTargets and any unlisted target language.
		if creds.HasOpenAI {
			chain = append(chain, EngineSpec{Name: "openai", Locality: "remote"})
		}
		if creds.HasLocalTTS {
			chain = append(chain, EngineSpec{Name: "local", Locality: "local"})
		}
	}
	return dedupe(chain)
}

func dedupe(chain []EngineSpec) []EngineSpec {
	seen := make(map[string]bool, len(chain))
	out := make([]EngineSpec, 0, len(chain))
	for _, e := range chain {
		if seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		out = append(out, e)
	}
	return out
}

// backoffSchedule is the exponential backoff applied before advancing to the
// next engine on a transient (5xx/network) failure.
var backoffSchedule = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// RunWithFallback walks chain in order, calling attempt for each spec until
// one succeeds or the chain is exhausted. A quota error advances immediately
// with no backoff; a transient error retries the same engine up to
// len(backoffSchedule) times with exponential backoff before advancing;
// every other error kind advances immediately (it is not this engine's
// fault and retrying it would not help).
func RunWithFallback(ctx context.Context, chain []EngineSpec, attempt func(ctx context.Context, spec EngineSpec) error) error {
	var lastErr error
	for _, spec := range chain {
		lastErr = runOneWithBackoff(ctx, spec, attempt)
		if lastErr == nil {
			return nil
		}
		if pipeline.Classify(lastErr) == pipeline.KindCancelled {
			return lastErr
		}
	}
	if lastErr == nil {
		lastErr = pipeline.NewInputExhaustionError("dispatcher: no engine available for this stage")
	}
	return lastErr
}

func runOneWithBackoff(ctx context.Context, spec EngineSpec, attempt func(ctx context.Context, spec EngineSpec) error) error {
	var err error
	for try := 0; ; try++ {
		err = attempt(ctx, spec)
		if err == nil {
			return nil
		}

		kind := pipeline.Classify(err)
		if kind == pipeline.KindCancelled {
			return err
		}
		if kind != pipeline.KindTransientRemote {
			return err
		}
		if try >= len(backoffSchedule) {
			return err
		}

		select {
		case <-time.After(backoffSchedule[try]):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
