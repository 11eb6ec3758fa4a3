package main

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/compliance"
	"github.com/unclebandit/salesloop-backend/internal/config"
	"github.com/unclebandit/salesloop-backend/internal/db"
	"github.com/unclebandit/salesloop-backend/internal/engine"
	"github.com/unclebandit/salesloop-backend/internal/events"
	"github.com/unclebandit/salesloop-backend/internal/handler"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
	"github.com/unclebandit/salesloop-backend/internal/repository"
	"github.com/unclebandit/salesloop-backend/internal/schedule"
	"github.com/unclebandit/salesloop-backend/internal/sender"
)

func newLogger(level string) *zap.Logger {
	zc := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		zc.Level = lvl
	}
	log, err := zc.Build()
	if err != nil {
		panic(err)
	}
	return log
}

func main() {
	// Missing .env is fine, the OS environment still applies.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "scheduler.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		panic(err)
	}

	log := newLogger(cfg.Logging.Level)
	defer log.Sync()

	conn, err := db.Connect()
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer conn.Close()

	stepRepo := &repository.StepRepository{DB: conn}
	approvalRepo := &repository.ApprovalRepository{DB: conn}
	runRepo := &repository.RunRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}
	workspaceRepo := &repository.WorkspaceRepository{DB: conn}

	limiter := ramp.New(cfg.Ramp.Tiers)
	placer := schedule.NewPlacer(nil, nil)
	gate := compliance.NewGate(stepRepo, limiter, cfg.Scheduler.WeeklyCapMultiplier, cfg.Hours, nil, log)

	approvals := &engine.Approvals{Steps: stepRepo, Items: approvalRepo, Log: log}
	executor := &engine.Executor{
		Steps:          stepRepo,
		Contacts:       contactRepo,
		Approvals:      approvals,
		Gate:           gate,
		Sender:         sender.MockSender{},
		Placer:         placer,
		Events:         events.NopEmitter{},
		Hours:          cfg.Hours,
		TransientRetry: cfg.Scheduler.TransientRetry(),
		Log:            log,
	}
	runner := &engine.Runner{
		Campaigns:  campaignRepo,
		Workspaces: workspaceRepo,
		Steps:      stepRepo,
		Runs:       runRepo,
		Executor:   executor,
		Events:     events.NopEmitter{},
		DefaultAutonomy: model.AutonomyConfig{
			Level:               model.AutonomyLevel(cfg.Autonomy.DefaultLevel),
			ConfidenceThreshold: cfg.Autonomy.DefaultThreshold,
		},
		StepGap:       time.Duration(cfg.Scheduler.StepGapSec) * time.Second,
		StepGapJitter: time.Duration(cfg.Scheduler.StepGapJitterSec) * time.Second,
		Log:           log,
	}
	enqueuer := &engine.Enqueuer{
		Campaigns: campaignRepo,
		Steps:     stepRepo,
		Placer:    placer,
		Limiter:   limiter,
		Hours:     cfg.Hours,
		Log:       log,
	}

	h := &handler.Handler{
		Campaigns: campaignRepo,
		Steps:     stepRepo,
		Runner:    runner,
		Approvals: approvals,
		Enqueuer:  enqueuer,
		Log:       log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Mount("/", h.Routes())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Info("server listening", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
