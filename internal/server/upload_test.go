package server

import "testing"

func TestSanitizeFilenameStripsDirectoryTraversal(t *testing.T) {
	name, err := sanitizeFilename("../../etc/passwd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name == "passwd" || len(name) <= len("passwd") {
		t.Fatalf("expected a random-prefixed base name, got %q", name)
	}
	if got := name[len(name)-len("passwd"):]; got != "passwd" {
		t.Errorf("expected sanitized name to end with the base filename, got %q", name)
	}
}

func TestSanitizeFilenameRejectsEmptyResult(t *testing.T) {
	if _, err := sanitizeFilename("/"); err == nil {
		t.Error("expected an error for a filename with no usable base component")
	}
}

func TestSanitizeFilenameProducesDistinctPrefixes(t *testing.T) {
	a, err := sanitizeFilename("clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := sanitizeFilename("clip.mp4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a == b {
		t.Error("expected two sanitized names for the same input to differ by random prefix")
	}
}
