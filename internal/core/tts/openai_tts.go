package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAITTS synthesizes speech via OpenAI's hosted TTS endpoint. It cannot
// clone a reference voice; it only selects among OpenAI's named presets.
type OpenAITTS struct {
	client openai.Client
	model  openai.SpeechModel
}

// NewOpenAITTS builds a remote TTS adapter. apiKey must be non-empty; the
// dispatcher never offers this engine without a configured credential.
func NewOpenAITTS(apiKey string) (*OpenAITTS, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai tts: no API key configured")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAITTS{client: client, model: openai.SpeechModelTTS1}, nil
}

func (o *OpenAITTS) Name() string          { return "openai" }
func (o *OpenAITTS) Locality() Locality    { return LocalityRemote }
func (o *OpenAITTS) SupportsCloning() bool { return false }

func (o *OpenAITTS) Synthesize(ctx context.Context, segmentIndex int, text string, voice VoiceSpec) (*SynthesizedSegment, error) {
	if text == "" {
		return nil, fmt.Errorf("openai tts: empty text for segment %d", segmentIndex)
	}

	voiceName := voice.Name
	if voiceName == "" {
		voiceName = "alloy"
	}

	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Model:          o.model,
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(voiceName),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatWAV,
	})
	if err != nil {
		return nil, fmt.Errorf("openai tts request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai tts: failed to read audio response: %w", err)
	}

	duration, sampleRate, channels, err := wavInfo(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("openai tts: failed to decode synthesized audio: %w", err)
	}

	return &SynthesizedSegment{
		SegmentIndex:    segmentIndex,
		AudioBytes:      data,
		DurationSeconds: duration,
		SampleRate:      sampleRate,
		Channels:        channels,
	}, nil
}
