package tts

import (
	"context"
	"testing"
)

func TestOpenAITTSRejectsEmptyText(t *testing.T) {
	o := &OpenAITTS{}
	if _, err := o.Synthesize(context.Background(), 0, "", VoiceSpec{}); err == nil {
		t.Error("expected an error for empty text")
	}
}

func TestCloningRejectsEmptyText(t *testing.T) {
	c, err := NewCloning("http://localhost:9000", "", 0)
	if err != nil {
		t.Fatalf("unexpected error constructing Cloning: %v", err)
	}
	if _, err := c.Synthesize(context.Background(), 0, "", VoiceSpec{}); err == nil {
		t.Error("expected an error for empty text")
	}
}

func TestNewCloningRejectsEmptyBaseURL(t *testing.T) {
	if _, err := NewCloning("", "", 0); err == nil {
		t.Error("expected an error for an empty base URL")
	}
}

func TestNewOpenAITTSRejectsEmptyAPIKey(t *testing.T) {
	if _, err := NewOpenAITTS(""); err == nil {
		t.Error("expected an error for an empty API key")
	}
}
