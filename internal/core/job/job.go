// Package job defines the Job entity: the unit of work tracked by the
// JobManager across its lifetime from upload through completion.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Status is the job's lifecycle state.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Terminal reports whether a status is one a job never transitions out of.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Stage is the current pipeline phase a processing job occupies.
type Stage string

const (
	StageExtract    Stage = "extract"
	StageTranscribe Stage = "transcribe"
	StageTranslate  Stage = "translate"
	StageVerify     Stage = "verify"
	StageSynthesize Stage = "synthesize"
	StageMerge      Stage = "merge"
)

// StageWeights gives the progress share of each stage when verify is enabled.
// The orchestrator rescales to 100 when verify is skipped.
var StageWeights = map[Stage]int{
	StageExtract:    5,
	StageTranscribe: 15,
	StageTranslate:  25,
	StageVerify:     15,
	StageSynthesize: 25,
	StageMerge:      15,
}

const (
	maxLogEntries = 1000
	logTrimBatch  = 100
	maxLogMessage = 500
	logEllipsis   = "…"
)

// LogEntry is one line in a job's bounded log buffer.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// SyncMode governs how the Audio Assembler reconciles synthesized audio
// length against the original video timeline.
type SyncMode string

const (
	SyncNatural      SyncMode = "natural"
	SyncSpeedSync    SyncMode = "speed_sync"
	SyncVideoStretch SyncMode = "video_stretch"
)

// Settings are the user-supplied parameters fixed at job creation.
type Settings struct {
	SourceLang        string   `json:"source_lang"`
	TargetLang        string   `json:"target_lang"`
	CloneVoice        bool     `json:"clone_voice"`
	VerifyTranslation bool     `json:"verify_translation"`
	SyncMode          SyncMode `json:"sync_mode"`
	STTEngine         string   `json:"stt_engine,omitempty"`
	TranslationEngine string   `json:"translation_engine,omitempty"`
	TTSEngine         string   `json:"tts_engine,omitempty"`
}

// QualityReport is the Quality Evaluator's verdict on a translated chunk,
// or the aggregate across a job's chunks once all are processed.
type QualityReport struct {
	OverallScore     int              `json:"overall_score"`
	Accuracy         int              `json:"accuracy"`
	Naturalness      int              `json:"naturalness"`
	DubbingFit       int              `json:"dubbing_fit"`
	Consistency      int              `json:"consistency"`
	Issues           []string         `json:"issues,omitempty"`
	Recommendation   string           `json:"recommendation"`
	TermPreservation TermPreservation `json:"term_preservation"`
	Sampled          bool             `json:"sampled,omitempty"`
	RefineRounds     int              `json:"refine_rounds,omitempty"`
	Unavailable      bool             `json:"unavailable,omitempty"`
}

// TermPreservation records the salient-token preservation ratio backing a
// QualityReport's recommendation override.
type TermPreservation struct {
	Score   float64  `json:"score"`
	Missing []string `json:"missing,omitempty"`
}

const (
	RecommendationApproved     = "APPROVED"
	RecommendationReviewNeeded = "REVIEW_NEEDED"
	RecommendationReject       = "REJECT"
)

// Job is the primary in-memory entity tracked by the JobManager. Only the
// owning worker and the cancellation marker mutate it after creation; all
// access outside the manager goes through deep-copy snapshots.
type Job struct {
	ID       string
	Settings Settings

	InputPath        string
	OriginalFilename string
	OutputPath       string

	Status   Status
	Stage    Stage
	Progress int

	Logs []LogEntry

	QualityReport *QualityReport

	CreatedAt   time.Time
	UpdatedAt   time.Time
	CompletedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
}

// NewID generates a fresh version-4 job identifier.
func NewID() string {
	return uuid.New().String()
}

// ValidID reports whether s is a syntactically valid version-4 UUID.
func ValidID(s string) bool {
	id, err := uuid.Parse(s)
	if err != nil {
		return false
	}
	return id.Version() == 4
}

// newJob constructs a queued job with a fresh cancellation context. It is
// unexported: callers go through Manager.Create so every job is registered
// under the manager's lock at the moment it comes into existence.
func newJob(settings Settings, inputPath, originalFilename string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	now := time.Now()
	return &Job{
		ID:               NewID(),
		Settings:         settings,
		InputPath:        inputPath,
		OriginalFilename: originalFilename,
		Status:           StatusQueued,
		Stage:            StageExtract,
		Progress:         0,
		CreatedAt:        now,
		UpdatedAt:        now,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// Context returns the job's cancellation context. Workers select on this
// alongside their own suspension points; cancelling it is exactly what
// Manager.Cancel does.
func (j *Job) Context() context.Context {
	return j.ctx
}

// appendLog appends a trimmed, truncated message to the job's log buffer,
// enforcing the FIFO-trim-oldest-10%-on-overflow policy. Callers must hold
// the manager's lock.
func (j *Job) appendLog(message string) {
	if r := []rune(message); len(r) > maxLogMessage {
		message = string(r[:maxLogMessage]) + logEllipsis
	}
	if len(j.Logs) >= maxLogEntries {
		j.Logs = append(j.Logs[:0], j.Logs[logTrimBatch:]...)
	}
	j.Logs = append(j.Logs, LogEntry{Time: time.Now(), Message: message})
}

// snapshot returns a deep copy safe for callers outside the manager's lock.
func (j *Job) snapshot() *Job {
	cp := *j
	cp.ctx = nil
	cp.cancel = nil

	cp.Logs = make([]LogEntry, len(j.Logs))
	copy(cp.Logs, j.Logs)

	if j.QualityReport != nil {
		qr := *j.QualityReport
		qr.Issues = append([]string(nil), j.QualityReport.Issues...)
		qr.TermPreservation.Missing = append([]string(nil), j.QualityReport.TermPreservation.Missing...)
		cp.QualityReport = &qr
	}

	return &cp
}

// ElapsedSeconds reports wall-clock time since creation, computed at
// snapshot time rather than stored, so polling never reads a stale value.
func (j *Job) ElapsedSeconds() float64 {
	end := j.CompletedAt
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(j.CreatedAt).Seconds()
}
