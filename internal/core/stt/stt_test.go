package stt

import "testing"

func TestNewOpenAIRemoteRejectsEmptyAPIKey(t *testing.T) {
	if _, err := NewOpenAIRemote(""); err == nil {
		t.Error("expected an error for an empty API key")
	}
}

func TestNewWhisperLocalRejectsMissingModel(t *testing.T) {
	if _, err := NewWhisperLocal("/nonexistent/model.bin", nil); err == nil {
		t.Error("expected an error for a missing model file")
	}
}

func TestTranscriptValidateRejectsEmptySegments(t *testing.T) {
	tr := &Transcript{Segments: nil}
	if err := tr.Validate(); err == nil {
		t.Error("expected an error for a transcript with no segments")
	}
}
