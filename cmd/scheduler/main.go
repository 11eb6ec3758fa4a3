package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/unclebandit/salesloop-backend/internal/compliance"
	"github.com/unclebandit/salesloop-backend/internal/config"
	"github.com/unclebandit/salesloop-backend/internal/db"
	"github.com/unclebandit/salesloop-backend/internal/engine"
	"github.com/unclebandit/salesloop-backend/internal/events"
	"github.com/unclebandit/salesloop-backend/internal/model"
	"github.com/unclebandit/salesloop-backend/internal/ramp"
	"github.com/unclebandit/salesloop-backend/internal/repository"
	"github.com/unclebandit/salesloop-backend/internal/schedule"
	"github.com/unclebandit/salesloop-backend/internal/scheduler"
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

// newEmitter wires the activity stream: AMQP when AMQP_URL is set, otherwise
// events are dropped. Either way emission is buffered off the tick path.
func newEmitter(cfg config.Config, log *zap.Logger) (events.Emitter, func()) {
	url := os.Getenv("AMQP_URL")
	if url == "" {
		return events.NopEmitter{}, func() {}
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		log.Warn("amqp connection failed, activity stream disabled", zap.Error(err))
		return events.NopEmitter{}, func() {}
	}
	sink, err := events.NewAMQPEmitter(conn, log)
	if err != nil {
		log.Warn("amqp exchange setup failed, activity stream disabled", zap.Error(err))
		conn.Close()
		return events.NopEmitter{}, func() {}
	}

	async := events.NewAsyncEmitter(sink, cfg.Scheduler.EventBufferSize, log)
	return async, func() {
		async.Close()
		sink.Close()
		conn.Close()
	}
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

	emitter, closeEmitter := newEmitter(cfg, log)
	defer closeEmitter()

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
		Events:         emitter,
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
		Events:     emitter,
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
	maintenance := &engine.Maintenance{
		Campaigns: campaignRepo,
		Contacts:  contactRepo,
		Steps:     stepRepo,
		Enqueuer:  enqueuer,
		Log:       log,
	}

	loop := &scheduler.Loop{
		Due:      stepRepo,
		Runner:   runner,
		Interval: cfg.Scheduler.TickInterval(),
		Log:      log,
		Tasks: []scheduler.Task{
			{Name: "trigger_discovery", Run: maintenance.TriggerDiscovery},
			{Name: "auto_enqueue", Run: maintenance.AutoEnqueue},
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	loop.Start(ctx)
	log.Info("scheduler exited")
}
