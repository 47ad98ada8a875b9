package job

import (
	"strings"
	"testing"
	"time"
)

func testSettings() Settings {
	return Settings{
		SourceLang: "ko",
		TargetLang: "en",
		SyncMode:   SyncSpeedSync,
	}
}

func TestCreateAndGet(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")

	if !ValidID(id) {
		t.Fatalf("Create returned an ID that does not validate: %q", id)
	}

	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusQueued {
		t.Errorf("expected queued status, got %s", got.Status)
	}
	if got.Stage != StageExtract {
		t.Errorf("expected initial stage extract, got %s", got.Stage)
	}
}

func TestGetUnknownID(t *testing.T) {
	m := NewManager()
	if _, err := m.Get("not-a-uuid"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for malformed id, got %v", err)
	}

	validButUnregistered := NewID()
	if _, err := m.Get(validButUnregistered); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for unregistered id, got %v", err)
	}
}

func TestProgressMonotonic(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")

	m.SetProgress(id, 40)
	m.SetProgress(id, 10) // must not regress
	got, _ := m.Get(id)
	if got.Progress != 40 {
		t.Errorf("expected progress to stay at 40, got %d", got.Progress)
	}

	m.SetProgress(id, 70)
	got, _ = m.Get(id)
	if got.Progress != 70 {
		t.Errorf("expected progress 70, got %d", got.Progress)
	}
}

func TestTerminalStatusNeverRevised(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")

	if err := m.UpdateStatus(id, StatusCompleted); err != nil {
		t.Fatalf("first transition to completed: %v", err)
	}
	if err := m.UpdateStatus(id, StatusFailed); err == nil {
		t.Errorf("expected error revising a terminal status, got nil")
	}

	got, _ := m.Get(id)
	if got.Status != StatusCompleted {
		t.Errorf("terminal status was revised: now %s", got.Status)
	}
}

func TestCancelIdempotent(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")

	ok, err := m.Cancel(id)
	if err != nil || !ok {
		t.Fatalf("first cancel: ok=%v err=%v", ok, err)
	}
	if !m.IsCancelled(id) {
		t.Errorf("expected IsCancelled true after cancel")
	}

	ok, err = m.Cancel(id)
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if ok {
		t.Errorf("expected second cancel on terminal job to report false")
	}
}

func TestLogTruncationAndTrim(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")

	long := strings.Repeat("x", 600)
	if err := m.AppendLog(id, long); err != nil {
		t.Fatalf("AppendLog: %v", err)
	}
	got, _ := m.Get(id)
	if len(got.Logs) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(got.Logs))
	}
	msg := got.Logs[0].Message
	if len([]rune(msg)) != 501 { // 500 runes + ellipsis marker
		t.Errorf("expected truncated message of 501 runes, got %d", len([]rune(msg)))
	}
	if !strings.HasSuffix(msg, logEllipsis) {
		t.Errorf("expected truncated message to end with ellipsis marker")
	}

	for i := 0; i < maxLogEntries; i++ {
		m.AppendLog(id, "fill")
	}
	got, _ = m.Get(id)
	if len(got.Logs) > maxLogEntries {
		t.Errorf("expected log buffer capped at %d, got %d", maxLogEntries, len(got.Logs))
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	m := NewManager()
	id := m.Create(testSettings(), "/tmp/in.mp4", "in.mp4")
	m.AppendLog(id, "first")

	snap, _ := m.Get(id)
	snap.Logs[0].Message = "mutated"

	fresh, _ := m.Get(id)
	if fresh.Logs[0].Message == "mutated" {
		t.Errorf("Get snapshot shares storage with the live job")
	}
}

func TestPurgeOnlyRemovesOldTerminalJobs(t *testing.T) {
	m := NewManager()
	active := m.Create(testSettings(), "/tmp/a.mp4", "a.mp4")
	done := m.Create(testSettings(), "/tmp/b.mp4", "b.mp4")
	m.UpdateStatus(done, StatusCompleted)

	n := m.Purge(-time.Hour) // cutoff in the future relative to UpdatedAt: everything terminal qualifies
	if n != 1 {
		t.Fatalf("expected 1 job purged, got %d", n)
	}
	if _, err := m.Get(active); err != nil {
		t.Errorf("active job should survive purge: %v", err)
	}
	if _, err := m.Get(done); err != ErrNotFound {
		t.Errorf("completed job should have been purged")
	}
}
