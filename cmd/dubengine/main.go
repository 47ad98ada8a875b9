// Command dubengine runs the video dub engine's HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opendub/engine/internal/config"
	"github.com/opendub/engine/internal/core/audio"
	"github.com/opendub/engine/internal/core/dispatcher"
	"github.com/opendub/engine/internal/core/evaluate"
	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/orchestrator"
	"github.com/opendub/engine/internal/core/resourcegate"
	"github.com/opendub/engine/internal/core/stt"
	"github.com/opendub/engine/internal/core/translate"
	"github.com/opendub/engine/internal/core/tts"
	"github.com/opendub/engine/internal/server"
	"github.com/opendub/engine/internal/version"
)

func main() {
	port := flag.Int("port", 0, "HTTP listen port (default: from config, else 8080)")
	showVersion := flag.Bool("version", false, "show version")
	flag.Parse()

	if *showVersion {
		fmt.Printf("dubengine %s\n", version.Version)
		return
	}

	cfg := config.LoadOrDefault()
	if *port != 0 {
		cfg.Port = *port
	}

	gate := resourcegate.New()

	engines := buildEngines(cfg, gate)
	if len(engines.STT) == 0 {
		log.Println("warning: no STT engine configured, transcription will fail for every job")
	}
	if len(engines.Translation) == 0 {
		log.Println("warning: no translation engine configured, translation will fail for every job")
	}
	if len(engines.TTS) == 0 {
		log.Println("warning: no TTS engine configured, synthesis will fail for every job")
	}

	evaluator := buildEvaluator(cfg)

	jobs := job.NewManager()
	orch := &orchestrator.Orchestrator{
		Jobs:      jobs,
		Engines:   engines,
		Creds:     buildCredentials(cfg),
		Evaluator: evaluator,
		Assembler: audio.NewAssembler(),
		WorkDir:   cfg.OutputDir,
	}

	srv := server.NewServer(cfg, jobs, orch, gate)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("shutting down dubengine...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			log.Printf("error during shutdown: %v", err)
		}
	}()

	log.Printf("dubengine %s starting on %s:%d", version.Version, cfg.Host, cfg.Port)
	if err := srv.Start(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// buildEngines constructs whichever adapters cfg has credentials or local
// model paths for. A missing credential simply leaves that engine unwired;
// dispatcher.Resolve then skips it when building a job's fallback chain.
func buildEngines(cfg *config.Config, gate *resourcegate.Gate) orchestrator.Engines {
	engines := orchestrator.Engines{
		STT:         make(map[string]stt.Transcriber),
		Translation: make(map[string]translate.Translator),
		TTS:         make(map[string]tts.Synthesizer),
	}

	if cfg.Credentials.HasOpenAI() {
		if eng, err := stt.NewOpenAIRemote(cfg.Credentials.OpenAIAPIKey); err != nil {
			log.Printf("openai STT unavailable: %v", err)
		} else {
			engines.STT[eng.Name()] = eng
		}

		if eng, err := translate.NewOpenAITranslator(cfg.Credentials.OpenAIAPIKey, ""); err != nil {
			log.Printf("openai translator unavailable: %v", err)
		} else {
			engines.Translation[eng.Name()] = eng
		}

		if eng, err := tts.NewOpenAITTS(cfg.Credentials.OpenAIAPIKey); err != nil {
			log.Printf("openai TTS unavailable: %v", err)
		} else {
			engines.TTS[eng.Name()] = eng
		}
	}

	if cfg.Credentials.HasAnthropic() {
		if eng, err := translate.NewAnthropicTranslator(cfg.Credentials.AnthropicAPIKey, ""); err != nil {
			log.Printf("anthropic translator unavailable: %v", err)
		} else {
			engines.Translation[eng.Name()] = eng
		}
	}

	if cfg.Credentials.LocalTranslateURL != "" {
		if eng, err := translate.NewLocalTranslator(cfg.Credentials.LocalTranslateURL, "", ""); err != nil {
			log.Printf("local translator unavailable: %v", err)
		} else {
			engines.Translation[eng.Name()] = eng
		}
	}

	if cfg.LocalModels.WhisperModelPath != "" {
		if eng, err := stt.NewWhisperLocal(cfg.LocalModels.WhisperModelPath, gate); err != nil {
			log.Printf("local whisper unavailable: %v", err)
		} else {
			engines.STT[eng.Name()] = eng
		}
	}

	if cfg.LocalModels.LocalTTSBinary != "" {
		if eng, err := tts.NewLocal(cfg.LocalModels.LocalTTSBinary, "", gate); err != nil {
			log.Printf("local TTS unavailable: %v", err)
		} else {
			engines.TTS[eng.Name()] = eng
		}
	}

	if cfg.Credentials.HasCloningTTS() {
		if eng, err := tts.NewCloning(cfg.Credentials.CloningTTSBaseURL, cfg.Credentials.CloningTTSAPIKey, 60*time.Second); err != nil {
			log.Printf("cloning TTS unavailable: %v", err)
		} else {
			engines.TTS[eng.Name()] = eng
		}
	}

	return engines
}

// buildEvaluator prefers OpenAI as the primary judge with Anthropic as the
// secondary it switches to on a quota error, falling back to whichever
// single provider is configured. Verification is simply skipped per-job when neither is
// configured; dubbing itself still proceeds.
func buildEvaluator(cfg *config.Config) *evaluate.Evaluator {
	var primary, secondary evaluate.Provider

	if cfg.Credentials.HasOpenAI() {
		if p, err := evaluate.NewOpenAIProvider(cfg.Credentials.OpenAIAPIKey, ""); err == nil {
			primary = p
		}
	}
	if cfg.Credentials.HasAnthropic() {
		if p, err := evaluate.NewAnthropicProvider(cfg.Credentials.AnthropicAPIKey, ""); err == nil {
			if primary == nil {
				primary = p
			} else {
				secondary = p
			}
		}
	}
	if primary == nil {
		return nil
	}
	return evaluate.New(primary, secondary)
}

func buildCredentials(cfg *config.Config) dispatcher.Credentials {
	return dispatcher.Credentials{
		HasOpenAI:         cfg.Credentials.HasOpenAI(),
		HasAnthropic:      cfg.Credentials.HasAnthropic(),
		HasCloningTTS:     cfg.Credentials.HasCloningTTS(),
		HasLocalWhisper:   cfg.LocalModels.WhisperModelPath != "",
		HasLocalTTS:       cfg.LocalModels.LocalTTSBinary != "",
		HasLocalTranslate: cfg.Credentials.LocalTranslateURL != "",
	}
}
