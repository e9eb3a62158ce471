package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.etcd.io/bbolt"

	"github.com/avillega/iptv-cache/circuitbreaker"
	"github.com/avillega/iptv-cache/config"
	"github.com/avillega/iptv-cache/internal/adapter/driven"
	"github.com/avillega/iptv-cache/internal/application"
	"github.com/avillega/iptv-cache/internal/normalize"
	"github.com/avillega/iptv-cache/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	cfg.Print()

	logger := logging.New(logging.ParseLogLevel(cfg.LogLevel), "iptv-cache")

	db, err := bbolt.Open(cfg.DB.Path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing database: %v", err)
		}
	}()

	// Driven adapters
	guideRepo, err := driven.NewGuideBoltDBRepository(db)
	if err != nil {
		log.Fatalf("failed to create guide repository: %v", err)
	}
	catalogRepo, err := driven.NewCatalogBoltDBRepository(db)
	if err != nil {
		log.Fatalf("failed to create catalog repository: %v", err)
	}

	fetcher := driven.NewHTTPFetcher(cfg.Fetch.Timeout, circuitbreaker.Config{
		FailureThreshold: cfg.Fetch.BreakerThreshold,
		Cooldown:         cfg.Fetch.BreakerCooldown,
	}, logger)
	transformer := driven.NewM3UTransformer(fetcher)

	// Application services
	norm := normalize.New(cfg.Guide.IDSuffix)
	catalogService := application.NewCatalogService(transformer, catalogRepo, norm,
		cfg.Catalog.RoutingPrefix, cfg.Catalog.UpdateInterval, logger)
	guideService := application.NewGuideService(fetcher, guideRepo, norm, cfg.Guide.Source, logger)
	scheduler := application.NewScheduler(logger)
	facade := application.NewFacade(catalogService, guideService, scheduler, cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := facade.Start(ctx, cfg); err != nil {
		log.Fatalf("failed to start cache engine: %v", err)
	}
	defer facade.Stop()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		stopWatch, err := watchConfig(configPath, facade, logger)
		if err != nil {
			logger.Warn("Config watch disabled", map[string]interface{}{
				"path":  configPath,
				"error": err.Error(),
			})
		} else {
			defer stopWatch()
		}
	}

	if addr := os.Getenv("METRICS_ADDR"); addr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("Metrics listener started", map[string]interface{}{
				"addr": addr,
			})
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("Metrics listener failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping", nil)
}

// watchConfig re-applies the configuration whenever the file changes.
// Editors replace files via rename, so the watch is on the directory and
// events are filtered to the config file itself.
func watchConfig(path string, facade *application.Facade, logger *logging.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, err
	}
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}

				cfg, err := config.LoadFromFile(absPath)
				if err != nil {
					logger.Warn("Ignoring invalid config change", map[string]interface{}{
						"path":  absPath,
						"error": err.Error(),
					})
					continue
				}
				logger.Info("Configuration reloaded", map[string]interface{}{
					"path": absPath,
				})
				facade.ApplyConfig(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watch error", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}()

	return func() { watcher.Close() }, nil
}
