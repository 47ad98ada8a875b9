// Package server exposes the dub engine over HTTP: job submission, status
// polling, cancellation, and output download, built entirely on gin.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opendub/engine/internal/config"
	"github.com/opendub/engine/internal/core/job"
	"github.com/opendub/engine/internal/core/orchestrator"
	"github.com/opendub/engine/internal/core/resourcegate"
	"github.com/opendub/engine/internal/version"
)

// Response is the standard API envelope for every handler in this package.
type Response struct {
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Message string      `json:"message"`
}

// Server wires the gin engine to the job manager and orchestrator.
type Server struct {
	cfg          *config.Config
	jobs         *job.Manager
	orchestrator *orchestrator.Orchestrator
	gate         *resourcegate.Gate
	limiter      *rateLimiter
	queue        *jobQueue
	engine       *gin.Engine
	httpServer   *http.Server
}

// NewServer builds a Server ready to Start. cfg, jobs, and orch must be
// non-nil; the caller constructs and wires the orchestrator's engine maps
// before passing it in here. gate may be nil if no local engine is
// configured, in which case /api/system/status reports it as unused. Jobs
// submitted through handleCreateJob run through a worker pool bounded by
// cfg.MaxConcurrentJobs rather than one goroutine per job.
func NewServer(cfg *config.Config, jobs *job.Manager, orch *orchestrator.Orchestrator, gate *resourcegate.Gate) *Server {
	s := &Server{
		cfg:          cfg,
		jobs:         jobs,
		orchestrator: orch,
		gate:         gate,
		limiter:      newRateLimiter(cfg.RateLimitPerMinute),
		queue:        newJobQueue(orch, cfg.MaxConcurrentJobs),
	}
	s.engine = s.buildEngine()
	return s
}

func (s *Server) buildEngine() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.loggingMiddleware(), s.corsMiddleware())

	r.GET("/health", s.handleHealth)
	r.GET("/api/system/status", s.handleSystemStatus)

	api := r.Group("/api/jobs")
	api.Use(s.rateLimitMiddleware(), s.authMiddleware())
	{
		api.POST("", s.handleCreateJob)
		api.GET("", s.handleListJobs)
		api.GET("/:id", s.handleGetJob)
		api.POST("/:id/cancel", s.handleCancelJob)
		api.GET("/:id/download", s.handleDownloadJob)
	}

	return r
}

// Start runs the server until the process is signalled to stop. It blocks.
func (s *Server) Start() error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:      s.engine,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // job creation and downloads can run long
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("dubengine %s listening on %s", version.Version, s.httpServer.Addr)
	if s.cfg.AuthEnabled {
		log.Printf("API key authentication enabled (%d keys)", len(s.cfg.APIKeys))
	}
	log.Printf("job worker pool: %d concurrent", s.queue.maxConcurrent)

	s.queue.start()
	return s.httpServer.ListenAndServe()
}

// Stop gracefully shuts the server down, then drains the job worker pool so
// in-flight jobs finish before the process exits.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	err := s.httpServer.Shutdown(ctx)
	s.queue.stop()
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Code:    200,
		Data:    gin.H{"version": version.Version},
		Message: "ok",
	})
}

func (s *Server) handleSystemStatus(c *gin.Context) {
	jobs := s.jobs.All()

	active := 0
	for _, j := range jobs {
		if !j.Status.Terminal() {
			active++
		}
	}

	type activeJob struct {
		ID             string  `json:"id"`
		Stage          string  `json:"stage"`
		Progress       int     `json:"progress"`
		ElapsedSeconds float64 `json:"elapsed_seconds"`
	}
	running := make([]activeJob, 0, active)
	for _, j := range jobs {
		if j.Status.Terminal() {
			continue
		}
		running = append(running, activeJob{
			ID:             j.ID,
			Stage:          string(j.Stage),
			Progress:       j.Progress,
			ElapsedSeconds: j.ElapsedSeconds(),
		})
	}

	gateInUse := false
	if s.gate != nil {
		gateInUse = s.gate.InUse()
	}

	c.JSON(http.StatusOK, Response{
		Code: 200,
		Data: gin.H{
			"version":              version.Version,
			"total_jobs":           len(jobs),
			"active_jobs":          active,
			"max_concurrent":       s.cfg.MaxConcurrentJobs,
			"running":              running,
			"resource_gate_in_use": gateInUse,
			"credentials": gin.H{
				"openai":        s.cfg.Credentials.HasOpenAI(),
				"anthropic":     s.cfg.Credentials.HasAnthropic(),
				"cloning_tts":   s.cfg.Credentials.HasCloningTTS(),
				"local_whisper": s.cfg.LocalModels.WhisperModelPath != "",
				"local_tts":     s.cfg.LocalModels.LocalTTSBinary != "",
			},
		},
		Message: fmt.Sprintf("%d active job(s)", active),
	})
}

func writeError(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, Response{Code: code, Data: nil, Message: message})
}
