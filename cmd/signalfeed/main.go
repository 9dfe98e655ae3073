package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"signalfeed/internal/analyzer"
	"signalfeed/internal/audit"
	"signalfeed/internal/cache"
	"signalfeed/internal/config"
	cronrunner "signalfeed/internal/cron"
	"signalfeed/internal/db"
	"signalfeed/internal/feed"
	"signalfeed/internal/handler"
	"signalfeed/internal/ingest"
	"signalfeed/internal/logger"
	"signalfeed/internal/marketdata"
	"signalfeed/internal/metrics"
	"signalfeed/internal/models"
	"signalfeed/internal/repository"
	badgerjournal "signalfeed/internal/repository/badger"
	gormrepository "signalfeed/internal/repository/gorm"
	"signalfeed/internal/repository/memory"
	"signalfeed/internal/service"
	signalhub "signalfeed/internal/signal"

	_ "signalfeed/docs"
)

func main() {
	cfgPath := os.Getenv("SF_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("SF_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	metrics.InitMetrics()

	window, err := models.ParseWindow(cfg.Ingestion.Window)
	if err != nil {
		logger.Fatal("invalid ingestion window", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, repository.Options{Window: window}, logger)
	if err != nil {
		logger.Fatal("store open failed", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer closeStore()

	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(ctx); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	cacheStore, err := cache.Open(cfg.Cache)
	if err != nil {
		logger.Fatal("cache open failed", zap.Error(err))
	}
	if closer, ok := cacheStore.(io.Closer); ok {
		defer closer.Close()
	}

	source, err := marketdata.New(cfg.MarketData, cacheStore, cfg.Cache, logger)
	if err != nil {
		logger.Fatal("market data source init failed", zap.Error(err))
	}

	momentum := analyzer.NewMomentum(analyzer.MomentumConfig{
		TriggerPct:     cfg.Analyzer.TriggerPct,
		StrengthScale:  cfg.Analyzer.StrengthScale,
		BaseConfidence: cfg.Analyzer.BaseConfidence,
		MinSamples:     cfg.Analyzer.MinSamples,
		StopLossPct:    cfg.Analyzer.StopLossPct,
		TakeProfitPct:  cfg.Analyzer.TakeProfitPct,
	})

	hub := signalhub.NewHub(logger)
	auditClient := audit.New(cfg.Audit, logger)
	var auditSink audit.Sink
	if auditClient != nil {
		auditSink = auditClient
	}

	coordinator := ingest.New(ingest.Config{
		Symbols:      cfg.Ingestion.Symbols,
		Workers:      cfg.Ingestion.Workers,
		FetchTimeout: cfg.Ingestion.FetchTimeout,
		TTL:          cfg.Ingestion.TTL,
		Interval:     cfg.MarketData.Interval,
		Period:       cfg.MarketData.Period,
	}, ingest.Deps{
		Source:   source,
		Analyzer: momentum,
		Store:    store,
		Runs:     store,
		Hub:      hub,
		Logger:   logger,
	})
	composer := feed.NewComposer(store, cfg.Policy.RecommendThreshold)
	signalSvc := &service.SignalService{Store: store, Hub: hub, Audit: auditSink, Logger: logger}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())
	engine.Use(metrics.GinMiddleware())
	engine.Use(audit.WriteAuditMiddleware(auditSink, handler.AuditedRoutes...))

	healthHandler := &handler.HealthHandler{Store: store}
	healthHandler.Register(engine)
	handler.RegisterDocs(engine)

	v2Signals := &handler.V2SignalHandler{Signals: signalSvc, Generator: coordinator, Settings: settingsSvc}
	v2Signals.Register(engine)
	v2Feed := &handler.V2FeedHandler{Composer: composer, Hub: hub, Settings: settingsSvc, Logger: logger}
	v2Feed.Register(engine)
	v2Ingestion := &handler.V2IngestionHandler{Runner: coordinator, Runs: store}
	v2Ingestion.Register(engine)
	v2Settings := &handler.V2SystemSettingsHandler{Settings: settingsSvc}
	v2Settings.Register(engine)
	v2Quotes := &handler.V2QuoteHandler{Source: source}
	v2Quotes.Register(engine)

	engine.GET("/metrics", metrics.Handler())
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Ingestion.Enabled {
		_, err = cronRunner.Add("ingestion", cfg.Ingestion.Schedule, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureIngestion, true) {
				return
			}
			report, err := coordinator.RunCycle(ctx, ingest.TriggerCron)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("cron ingestion cycle failed", zap.Error(err))
				return
			}
			if report.Count(ingest.OutcomeFailed) > 0 && auditSink != nil {
				auditSink.Record(ctx, "ingestion_cycle_failures", "warn", map[string]any{
					"run_id": report.ID,
					"failed": report.Count(ingest.OutcomeFailed),
				})
			}
		})
		if err != nil {
			logger.Warn("cron register ingestion failed", zap.Error(err))
		}
	} else {
		logger.Info("scheduled ingestion disabled by config")
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	go func() {
		if err := hub.Run(ctx, time.Minute); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("signal hub stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting",
			zap.String("addr", cfg.Server.HTTPAddr),
			zap.String("store", cfg.Store.Backend),
			zap.String("market_data", source.Name()),
			zap.String("window", window.String()),
			zap.Strings("symbols", coordinator.Symbols()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	timeout := cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// openStore builds the configured signal store backend. The returned func
// releases it.
func openStore(ctx context.Context, cfg config.Config, opts repository.Options, logger *zap.Logger) (repository.Repository, func(), error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Store.Backend)) {
	case "", "memory":
		logger.Warn("using in-memory signal store; data is lost on restart")
		return memory.New(opts), func() {}, nil
	case "badger":
		store, journal, err := badgerjournal.OpenStore(ctx, badgerjournal.OpenOptions{Path: cfg.Store.BadgerDir}, opts)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := journal.Close(); err != nil {
				logger.Warn("badger close failed", zap.Error(err))
			}
		}, nil
	case "postgres":
		dbConn, err := db.Open(cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
			logger.Warn("failed to set timezone", zap.Error(err))
		}
		if err := db.AutoMigrate(dbConn); err != nil {
			_ = db.Close(dbConn)
			return nil, nil, err
		}
		return gormrepository.New(dbConn.Gorm, opts), func() { _ = db.Close(dbConn) }, nil
	default:
		return nil, nil, errors.New("unknown store backend: " + cfg.Store.Backend)
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Actor,"+handler.ConfirmClearHeader)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Next()
	}
}
