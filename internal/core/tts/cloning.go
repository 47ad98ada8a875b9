package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const healthCheckTimeout = 10 * time.Second

// cloningRequest is the JSON body sent to the cloning-capable TTS service.
// SpeakerRefPath, when set, asks the service to clone that reference voice
// instead of using a named preset.
type cloningRequest struct {
	Text           string  `json:"text"`
	SpeakerRefPath string  `json:"speaker_ref_path,omitempty"`
	Voice          string  `json:"voice,omitempty"`
	Language       string  `json:"language"`
	Temperature    float64 `json:"temperature"`
}

// Cloning talks to a standalone HTTP TTS service that can clone a voice from
// a reference audio sample: health-check before use, a single
// request/response shape per segment.
type Cloning struct {
	baseURL     string
	apiKey      string
	client      *http.Client
	temperature float64
}

// NewCloning builds a cloning-capable remote TTS adapter against a
// self-hosted service at baseURL. apiKey may be empty for services that
// don't require auth.
func NewCloning(baseURL, apiKey string, timeout time.Duration) (*Cloning, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("cloning tts: base URL must not be empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Cloning{
		baseURL:     baseURL,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: timeout},
		temperature: 0.7,
	}, nil
}

func (c *Cloning) Name() string          { return "cloning-http" }
func (c *Cloning) Locality() Locality    { return LocalityRemote }
func (c *Cloning) SupportsCloning() bool { return true }

// HealthCheck fails fast if the service is unreachable, mirroring the
// teacher pack's pre-flight check before processing any chunk.
func (c *Cloning) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("cloning tts: build health check request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("cloning tts: health check failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cloning tts: health check returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Cloning) Synthesize(ctx context.Context, segmentIndex int, text string, voice VoiceSpec) (*SynthesizedSegment, error) {
	if text == "" {
		return nil, fmt.Errorf("cloning tts: empty text for segment %d", segmentIndex)
	}

	body := cloningRequest{
		Text:           text,
		SpeakerRefPath: voice.CloneAudioPath,
		Voice:          voice.Name,
		Language:       voice.Language,
		Temperature:    c.temperature,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("cloning tts: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("cloning tts: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloning tts: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cloning tts: segment %d failed with status %d", segmentIndex, resp.StatusCode)
	}

	buf := &bytes.Buffer{}
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("cloning tts: read response body: %w", err)
	}
	data := buf.Bytes()

	duration, sampleRate, channels, err := wavInfo(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cloning tts: decode synthesized audio: %w", err)
	}

	return &SynthesizedSegment{
		SegmentIndex:    segmentIndex,
		AudioBytes:      data,
		DurationSeconds: duration,
		SampleRate:      sampleRate,
		Channels:        channels,
	}, nil
}
