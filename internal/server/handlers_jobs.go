package server

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/opendub/engine/internal/core/job"
)

// handleCreateJob accepts a multipart upload plus job settings, registers
// the job, and hands it to the job worker pool for processing.
func (s *Server) handleCreateJob(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeError(c, http.StatusBadRequest, 400, "file is required")
		return
	}

	upload, err := saveUpload(fh, s.cfg.UploadDir, s.cfg.MaxUploadBytes)
	if err != nil {
		writeError(c, http.StatusBadRequest, 400, err.Error())
		return
	}

	settings := job.Settings{
		SourceLang:        c.DefaultPostForm("source_lang", "auto"),
		TargetLang:        c.PostForm("target_lang"),
		CloneVoice:        c.PostForm("clone_voice") == "true",
		VerifyTranslation: c.PostForm("verify_translation") == "true",
		SyncMode:          job.SyncMode(c.DefaultPostForm("sync_mode", string(job.SyncNatural))),
		STTEngine:         c.PostForm("stt_engine"),
		TranslationEngine: c.PostForm("translation_engine"),
		TTSEngine:         c.PostForm("tts_engine"),
	}
	if settings.TargetLang == "" {
		os.Remove(upload.Path)
		writeError(c, http.StatusBadRequest, 400, "target_lang is required")
		return
	}
	switch settings.SyncMode {
	case job.SyncNatural, job.SyncSpeedSync, job.SyncVideoStretch:
	default:
		os.Remove(upload.Path)
		writeError(c, http.StatusBadRequest, 400, "invalid sync_mode")
		return
	}

	id := s.jobs.Create(settings, upload.Path, upload.OriginalFilename)
	if !s.queue.enqueue(id) {
		os.Remove(upload.Path)
		s.jobs.AppendLog(id, "rejected: job queue is full")
		s.jobs.UpdateStatus(id, job.StatusFailed)
		writeError(c, http.StatusServiceUnavailable, 503, "job queue is full, try again shortly")
		return
	}

	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    gin.H{"job_id": id, "status": job.StatusQueued},
		Message: "job queued",
	})
}

// handleGetJob returns a single job's current snapshot.
func (s *Server) handleGetJob(c *gin.Context) {
	id := c.Param("id")
	j, err := s.jobs.Get(id)
	if err != nil {
		writeError(c, http.StatusNotFound, 404, "job not found")
		return
	}

	c.JSON(http.StatusOK, Response{Code: 200, Data: jobView(j), Message: string(j.Status)})
}

// handleListJobs returns every job's snapshot, newest first.
func (s *Server) handleListJobs(c *gin.Context) {
	jobs := s.jobs.All()
	views := make([]gin.H, 0, len(jobs))
	for _, j := range jobs {
		views = append(views, jobView(j))
	}

	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    gin.H{"jobs": views},
		Message: strconv.Itoa(len(views)) + " job(s)",
	})
}

// handleCancelJob requests cancellation of a queued or in-flight job.
func (s *Server) handleCancelJob(c *gin.Context) {
	id := c.Param("id")
	ok, err := s.jobs.Cancel(id)
	if err != nil {
		writeError(c, http.StatusNotFound, 404, "job not found")
		return
	}
	if !ok {
		writeError(c, http.StatusConflict, 409, "job already finished")
		return
	}

	c.JSON(http.StatusOK, Response{Code: 200, Data: gin.H{"id": id}, Message: "cancellation requested"})
}

// handleDownloadJob streams the completed job's output file.
func (s *Server) handleDownloadJob(c *gin.Context) {
	id := c.Param("id")
	j, err := s.jobs.Get(id)
	if err != nil {
		writeError(c, http.StatusNotFound, 404, "job not found")
		return
	}
	if j.Status != job.StatusCompleted || j.OutputPath == "" {
		writeError(c, http.StatusConflict, 409, "job is not complete")
		return
	}
	if _, err := os.Stat(j.OutputPath); err != nil {
		writeError(c, http.StatusGone, 410, "output file is no longer available")
		return
	}

	name := j.OriginalFilename
	if name == "" {
		name = id + ".mp4"
	}
	c.FileAttachment(j.OutputPath, name)
}

// jobView projects a Job into the JSON shape the API exposes, omitting
// internal bookkeeping fields.
func jobView(j *job.Job) gin.H {
	v := gin.H{
		"id":              j.ID,
		"status":          j.Status,
		"stage":           j.Stage,
		"progress":        j.Progress,
		"settings":        j.Settings,
		"created_at":      j.CreatedAt,
		"updated_at":      j.UpdatedAt,
		"elapsed_seconds": j.ElapsedSeconds(),
		"logs":            j.Logs,
	}
	if j.QualityReport != nil {
		v["quality_report"] = j.QualityReport
	}
	if j.Status == job.StatusCompleted {
		v["completed_at"] = j.CompletedAt
		if j.OutputPath != "" {
			v["output_file"] = j.OutputPath
		}
	}
	return v
}
