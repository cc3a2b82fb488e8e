package main

import (
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"cleansight-dashboard/internal/api"
	"cleansight-dashboard/internal/backend"
	"cleansight-dashboard/internal/config"
	"cleansight-dashboard/internal/dispatch"
	"cleansight-dashboard/internal/history"
	"cleansight-dashboard/internal/logging"
	"cleansight-dashboard/internal/notify"
	"cleansight-dashboard/internal/push"
	"cleansight-dashboard/internal/store"
	"cleansight-dashboard/internal/syncdriver"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Local mirror of backend alert state
	st := store.New()
	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.RequestTimeout, logger)
	dispatcher := dispatch.New(st, client, logger)
	hub := api.NewHub(st, logger)

	// Optional history recorder
	var recorder *history.Recorder
	if cfg.HistoryEnabled() {
		recorder, err = history.New(cfg.History.DSN, logger)
		if err != nil {
			logger.Errorf("Failed to connect history database: %v", err)
			log.Fatalf("History database connection failed: %v", err)
		}
		recorder.Attach(st)
	}

	// Push sources feeding the sync driver
	var sources []syncdriver.Source
	if cfg.Backend.WebSocketURL != "" {
		sources = append(sources, push.NewWebSocketSource(cfg.Backend.WebSocketURL, logger))
	}
	if cfg.KafkaEnabled() {
		sources = append(sources, push.NewKafkaSource(cfg, logger))
		logger.Infof("Kafka push source enabled on topic %s", cfg.Kafka.Topic)
	}

	driver := syncdriver.New(st, client, cfg, logger, sources...)

	var wg sync.WaitGroup
	if recorder != nil {
		recorder.Start(&wg)
	}

	// Optional Telegram notifier
	var notifier *notify.Notifier
	if cfg.TelegramEnabled() {
		notifier, err = notify.New(cfg, logger)
		if err != nil {
			logger.Errorf("Failed to init Telegram notifier: %v", err)
			log.Fatalf("Telegram notifier init failed: %v", err)
		}
		notifier.Attach(st)
		notifier.Start(&wg, cfg.Notify.MaxWorkers)
	}

	driver.Start(&wg)

	// Start API server
	handler := api.NewHandler(st, driver, dispatcher, client, recorder, hub, logger)
	router := api.NewRouter(handler, logger, cfg)
	go func() {
		logger.Infof("Dashboard API started on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Infof("Shutting down...")
	driver.Stop()
	if notifier != nil {
		notifier.Stop()
	}
	if recorder != nil {
		recorder.Stop()
	}
	wg.Wait()
	logger.Infof("Dashboard gateway stopped")
}
