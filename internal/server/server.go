package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/famstack/famcoin/internal/auth"
	"github.com/famstack/famcoin/internal/config"
	"github.com/famstack/famcoin/internal/handler"
	"github.com/famstack/famcoin/internal/jobs"
	"github.com/famstack/famcoin/internal/ledger"
	"github.com/famstack/famcoin/internal/middleware"
	"github.com/famstack/famcoin/internal/photo"
	"github.com/famstack/famcoin/internal/realtime"
	"github.com/famstack/famcoin/internal/scheduler"
	"github.com/famstack/famcoin/internal/settlement"
	"github.com/famstack/famcoin/internal/store"
	"github.com/famstack/famcoin/internal/task"
)

type Server struct {
	db  *sql.DB
	cfg *config.Config
	hub *realtime.Hub

	familyH   *handler.FamilyHandler
	taskH     *handler.TaskHandler
	approvalH *handler.ApprovalHandler
	sequenceH *handler.SequenceHandler
	templateH *handler.TemplateHandler

	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	jobRunner    *jobs.Runner
	logger       *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := realtime.NewHub(logger.With("component", "realtime"))

	childStore := store.NewChildStore(db)
	sessionStore := store.NewSessionStore(db)
	completionStore := store.NewCompletionStore(db)
	settlementStore := store.NewSettlementStore(db)
	transactionStore := store.NewTransactionStore(db)
	templateStore := store.NewTemplateStore(db)
	sequenceStore := store.NewSequenceStore(db)

	pinAuth := auth.NewPINAuthenticator(childStore)
	var strategy auth.Strategy = pinAuth
	if cfg.DevMode {
		logger.Warn("dev mode enabled, PIN authentication bypassed")
		strategy = auth.BypassAuthenticator{}
	}

	photoStore := photo.NewStore(photo.Config{
		Endpoint:      cfg.S3Endpoint,
		Bucket:        cfg.S3Bucket,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		PublicBaseURL: cfg.PhotoBaseURL,
	})

	taskSvc := task.NewService(completionStore, childStore, photoStore, hub, logger.With("component", "task"))
	ledgerSvc := ledger.NewService(childStore, completionStore, transactionStore)
	settlementSvc := settlement.NewService(completionStore, settlementStore, childStore, hub, logger.With("component", "settlement"))
	schedulerSvc := scheduler.NewService(sequenceStore, templateStore, childStore, cfg.FamcoinRate, logger.With("component", "scheduler"))

	rateLimiter := middleware.NewRateLimiter()
	jobRunner := jobs.NewRunner(sessionStore, rateLimiter, schedulerSvc, logger.With("component", "jobs"))

	return &Server{
		db:           db,
		cfg:          cfg,
		hub:          hub,
		familyH:      handler.NewFamilyHandler(childStore, sessionStore, pinAuth, strategy, logger.With("component", "family")),
		taskH:        handler.NewTaskHandler(taskSvc, ledgerSvc, cfg.MaxPhotoBytes, logger.With("component", "task_handler")),
		approvalH:    handler.NewApprovalHandler(settlementSvc, logger.With("component", "approval")),
		sequenceH:    handler.NewSequenceHandler(schedulerSvc, logger.With("component", "sequence")),
		templateH:    handler.NewTemplateHandler(templateStore, logger.With("component", "template")),
		sessionStore: sessionStore,
		rateLimiter:  rateLimiter,
		jobRunner:    jobRunner,
		logger:       logger,
	}
}

// StartJobs launches the background cron jobs.
func (s *Server) StartJobs() {
	s.jobRunner.Start()
}

// StopJobs stops the background cron jobs and waits for them.
func (s *Server) StopJobs() {
	s.jobRunner.Stop()
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /ws", realtime.Handler(s.hub, s.logger.With("component", "ws")))

	// Family management (parent-side, authenticated by the host app)
	mux.HandleFunc("POST /api/parents", s.familyH.CreateParent)
	mux.HandleFunc("POST /api/children", s.familyH.CreateChild)
	mux.HandleFunc("GET /api/parents/{parent_id}/children", s.familyH.ListChildren)
	mux.HandleFunc("GET /api/children/{id}", s.familyH.GetChild)
	mux.HandleFunc("POST /api/children/{id}/pin", s.familyH.SetPIN)
	mux.HandleFunc("DELETE /api/children/{id}/pin", s.familyH.ClearPIN)
	mux.HandleFunc("POST /api/children/{id}/pin/verify", s.rateLimited(s.familyH.VerifyPIN))

	// Task templates and sequences (parent-side)
	mux.HandleFunc("POST /api/templates", s.templateH.Create)
	mux.HandleFunc("GET /api/templates", s.templateH.List)
	mux.HandleFunc("GET /api/templates/{id}", s.templateH.Get)
	mux.HandleFunc("POST /api/sequences", s.sequenceH.Create)
	mux.HandleFunc("GET /api/sequences/{id}", s.sequenceH.Get)
	mux.HandleFunc("GET /api/children/{child_id}/sequences", s.sequenceH.ListForChild)
	mux.HandleFunc("PUT /api/sequences/{id}/status", s.sequenceH.SetStatus)

	// Review queue (parent-side)
	mux.HandleFunc("GET /api/parents/{parent_id}/approvals", s.approvalH.ListAwaiting)
	mux.HandleFunc("POST /api/completions/{id}/approve", s.approvalH.Approve)
	mux.HandleFunc("POST /api/completions/{id}/reject", s.approvalH.Reject)
	mux.HandleFunc("POST /api/completions/bulk-approve", s.approvalH.BulkApprove)
	mux.HandleFunc("POST /api/completions/{id}/complete-on-behalf", s.approvalH.CompleteOnBehalf)
	mux.HandleFunc("POST /api/completions/{id}/excuse", s.approvalH.Excuse)

	// Child-side routes, guarded by the session middleware
	childMux := http.NewServeMux()
	childMux.HandleFunc("POST /api/me/logout", s.familyH.Logout)
	childMux.HandleFunc("GET /api/me/tasks", s.taskH.ListToday)
	childMux.HandleFunc("POST /api/me/tasks/{id}/complete", s.taskH.Complete)
	childMux.HandleFunc("POST /api/me/tasks/{id}/photo", s.taskH.AttachPhoto)
	childMux.HandleFunc("GET /api/me/balance", s.taskH.Balance)
	childMux.HandleFunc("GET /api/me/transactions", s.taskH.Transactions)

	sessionMiddleware := middleware.RequireChildSession(s.sessionStore)
	mux.Handle("/api/me/", sessionMiddleware(childMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP,
		s.cfg.PINAttemptLimit, time.Duration(s.cfg.PINWindowSeconds)*time.Second)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
