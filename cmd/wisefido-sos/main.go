package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-sos/common/database"
	"wisefido-sos/common/logger"
	"wisefido-sos/common/mqtt"
	commonredis "wisefido-sos/common/redis"
	"wisefido-sos/internal/config"
	"wisefido-sos/internal/consumer"
	"wisefido-sos/internal/domain"
	httpapi "wisefido-sos/internal/http"
	"wisefido-sos/internal/location"
	"wisefido-sos/internal/metrics"
	"wisefido-sos/internal/repository"
	"wisefido-sos/internal/service"
	"wisefido-sos/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "wisefido-sos")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 文档存储：PostgreSQL 不可用时回落到内存（仅联调）
	var (
		db      *sql.DB
		docs    store.DocumentStore
		backend = cfg.Store.Backend
	)
	if backend == "postgres" {
		if d, err := database.NewPostgresDB(ctx, &cfg.Database, 5*time.Second); err == nil {
			pg := store.NewPostgresDocumentStore(d, log)
			if err := pg.EnsureSchema(ctx); err != nil {
				log.Fatal("Failed to ensure document schema", zap.Error(err))
			}
			db, docs = d, pg
		} else {
			log.Warn("Postgres unavailable, falling back to memory store", zap.Error(err))
		}
	}
	if docs == nil {
		docs = store.NewMemoryDocumentStore()
		backend = "memory"
	}
	log.Info("Document store ready", zap.String("backend", backend))

	m := metrics.NewMetrics()

	patients := repository.NewPatientRepository(docs, log)
	relations := repository.NewCaregiverRelationRepository(docs, log)
	alerts := repository.NewAlertRepository(docs, log)

	activities := service.NewActivityService(repository.NewActivityRepository(docs, log), log)
	caregivers := service.NewCaregiverService(patients, relations, log)
	reminders := service.NewReminderService(repository.NewReminderRepository(docs, log), activities, m, log)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		c, err := mqtt.NewClient(&cfg.MQTT.MQTTConfig, log)
		if err != nil {
			log.Warn("MQTT unavailable, device triggers and MQTT location disabled", zap.Error(err))
		} else {
			mqttClient = c
		}
	}

	// 定位链：mqtt / http，可选 Redis 缓存最近一次定位
	var (
		provider     location.Provider
		mqttProvider *location.MQTTProvider
	)
	switch cfg.Location.Provider {
	case "mqtt":
		if mqttClient != nil {
			mqttProvider = location.NewMQTTProvider(mqttClient, cfg.SOS.TopicPrefix, cfg.MQTT.QoS, log)
			if err := mqttProvider.Start(); err != nil {
				log.Warn("Failed to subscribe location responses", zap.Error(err))
				mqttProvider = nil
			} else {
				provider = mqttProvider
			}
		}
	case "http":
		provider = location.NewHTTPProvider(cfg.Location.HTTPBaseURL, log)
	}

	var redisClient *redis.Client
	if provider != nil && cfg.Location.CacheEnabled {
		if c, err := commonredis.NewRedisClient(ctx, &cfg.Redis, 3*time.Second); err == nil {
			redisClient = c
			provider = location.NewCachedProvider(provider, store.NewRedisKV(c), cfg.Location.CachePrefix, log)
		} else {
			log.Warn("Redis unavailable, location cache disabled", zap.Error(err))
		}
	}
	if provider == nil {
		log.Warn("No location provider configured, alerts will be sent without location",
			zap.String("provider", cfg.Location.Provider))
	}

	acquirer := location.NewAcquirer(provider, log, cfg.Location.Wait,
		location.WithOutcomeObserver(func(o location.Outcome) { m.RecordLocation(string(o)) }))

	sos := service.NewSOSService(patients, caregivers, alerts, activities, acquirer, service.SOSConfig{
		LocationWait: cfg.Location.Wait,
		LocationOptions: location.Options{
			Accuracy:   location.ParseAccuracy(cfg.Location.Accuracy),
			Timeout:    cfg.Location.Timeout,
			MaximumAge: cfg.Location.MaximumAge,
		},
	}, m, log)

	var triggers *consumer.SOSTriggerConsumer
	if mqttClient != nil {
		triggers = consumer.NewSOSTriggerConsumer(mqttClient, sos, cfg.SOS.TriggerTopic, cfg.MQTT.QoS, log)
		go func() {
			if err := triggers.Start(ctx); err != nil {
				log.Error("SOS trigger consumer stopped", zap.Error(err))
			}
		}()
	}

	router := httpapi.NewRouter(log)
	router.RegisterPatientRoutes(httpapi.NewPatientHandler(sos, caregivers, reminders, activities, log))
	router.RegisterReminderRoutes(httpapi.NewReminderHandler(reminders, log))
	router.RegisterSettingsRoutes(httpapi.NewSettingsHandler(domain.DisplaySettings{
		TextScale:    cfg.Display.TextScale,
		HighContrast: cfg.Display.HighContrast,
	}))
	router.RegisterHealthRoutes()
	router.RegisterMetricsRoutes(m.Handler())

	srv := service.NewServer(cfg.HTTP.Addr, router, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		log.Error("Failed to stop HTTP server", zap.Error(err))
	}
	if triggers != nil {
		if err := triggers.Stop(shutdownCtx); err != nil {
			log.Error("Failed to stop SOS trigger consumer", zap.Error(err))
		}
	}
	if mqttProvider != nil {
		_ = mqttProvider.Stop()
	}
	if mqttClient != nil {
		mqttClient.Disconnect()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if db != nil {
		_ = database.Close(db)
	}
}
