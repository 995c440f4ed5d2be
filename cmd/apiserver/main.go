// Command apiserver runs the valuation report platform's HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	appreport "github.com/appraisehub/valuation-platform/internal/application/report"
	"github.com/appraisehub/valuation-platform/internal/config"
	"github.com/appraisehub/valuation-platform/internal/domain/contradiction"
	"github.com/appraisehub/valuation-platform/internal/domain/evidence"
	domreport "github.com/appraisehub/valuation-platform/internal/domain/report"
	"github.com/appraisehub/valuation-platform/internal/domain/section"
	"github.com/appraisehub/valuation-platform/internal/domain/valuation"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/postgres"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/postgres/repositories"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/database/redis"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/messaging/kafka"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/logging"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/monitoring/prometheus"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/signing"
	"github.com/appraisehub/valuation-platform/internal/infrastructure/storage/minio"
	apihttp "github.com/appraisehub/valuation-platform/internal/interfaces/http"
	"github.com/appraisehub/valuation-platform/internal/interfaces/http/handlers"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the configuration file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logCfg := logging.LogConfig{Level: cfg.Log.Level, Format: cfg.Log.Format}
	if cfg.Log.Output != "" {
		logCfg.OutputPaths = []string{cfg.Log.Output}
	}
	log, err := logging.NewLogger(logCfg)
	if err != nil {
		return err
	}
	logging.SetDefault(log)

	// Log level follows the config file without a restart.
	if setter, ok := log.(logging.LevelSetter); ok {
		config.Watch(configPath, func(next *config.Config) {
			setter.SetLevel(next.Log.Level)
			log.Info("log level reloaded", logging.String("level", next.Log.Level))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Infrastructure.
	db, err := postgres.Connect(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := postgres.Migrate(db, cfg.Database, log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka, log)
		defer producer.Close()
	}

	artifacts, err := minio.NewArtifactStore(ctx, cfg.MinIO, log)
	if err != nil {
		return err
	}

	metrics := prometheus.New()

	// Domain wiring.
	locker := redis.NewPropertyLocker(redisClient, cfg.Redis.LockTTL, log)
	evidenceRepo := repositories.NewEvidenceRepository(db)
	fieldRepo := repositories.NewFieldRepository(db)
	auditRepo := repositories.NewAuditRepository(db)

	selector := &evidence.Selector{
		MinQualifying:  cfg.Valuation.MinComparables,
		MaxComparables: cfg.Valuation.MaxComparables,
	}

	var changePublisher evidence.ChangePublisher
	if producer != nil {
		changePublisher = producer
	}
	evidenceSvc := evidence.NewService(evidenceRepo, selector, locker, changePublisher, log)

	var reportEvents appreport.EventPublisher
	if producer != nil {
		reportEvents = producer
	}
	svc := appreport.NewService(appreport.Deps{
		Evidence:        evidenceSvc,
		Estimator:       valuation.NewRateProjection(cfg.Valuation.ReferenceArea),
		Classifier:      section.NewClassifier(),
		Checker:         contradiction.NewChecker(cfg.Valuation.ValueTolerance),
		Compiler:        domreport.NewCompiler(signing.NewSignerFromConfig(cfg.Signing, log), log),
		Fields:          fieldRepo,
		Artifacts:       artifacts,
		Events:          reportEvents,
		Audit:           auditRepo,
		ComplianceFlags: cfg.Compliance.Flags,
		Logger:          log,
	})

	// Interface wiring.
	router := apihttp.NewRouter(apihttp.RouterDeps{
		Evidence: handlers.NewEvidenceHandler(svc, metrics, log),
		Sections: handlers.NewSectionHandler(svc, fieldRepo, log),
		Reports:  handlers.NewReportHandler(svc, artifacts, metrics, log),
		Health: handlers.NewHealthHandler(map[string]handlers.HealthChecker{
			"postgres": db,
			"redis":    redisClient,
		}),
		Metrics: metrics,
		Logger:  log,
	})

	server := apihttp.NewServer(cfg.Server, router, log)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	return server.Shutdown(context.Background())
}
