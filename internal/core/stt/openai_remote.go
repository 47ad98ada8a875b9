package stt

import (
	"context"
	"fmt"
	"os"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIRemote transcribes audio via OpenAI's hosted Whisper endpoint.
type OpenAIRemote struct {
	client openai.Client
	model  openai.AudioModel
}

// NewOpenAIRemote builds a remote STT adapter. apiKey must be non-empty;
// the dispatcher never offers this engine without a configured credential.
func NewOpenAIRemote(apiKey string) (*OpenAIRemote, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai remote stt: no API key configured")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIRemote{client: client, model: openai.AudioModelWhisper1}, nil
}

func (o *OpenAIRemote) Name() string       { return "openai" }
func (o *OpenAIRemote) Locality() Locality { return LocalityRemote }

func (o *OpenAIRemote) Transcribe(ctx context.Context, path string, language string) (*Transcript, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           file,
		Model:          o.model,
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if language != "" && language != "auto" {
		params.Language = openai.String(language)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai transcription request failed: %w", err)
	}

	var segments []Segment
	for _, seg := range resp.Segments {
		segments = append(segments, Segment{
			StartSeconds: seg.Start,
			EndSeconds:   seg.End,
			Text:         seg.Text,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("openai remote stt: produced empty transcript")
	}

	return &Transcript{Segments: segments, Language: resp.Language}, nil
}
