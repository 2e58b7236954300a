package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mr-abdellah/online-cupboard/internal/access"
	"github.com/mr-abdellah/online-cupboard/internal/app"
	"github.com/mr-abdellah/online-cupboard/internal/blob"
	"github.com/mr-abdellah/online-cupboard/internal/config"
	"github.com/mr-abdellah/online-cupboard/internal/convert"
	"github.com/mr-abdellah/online-cupboard/internal/search"
	"github.com/mr-abdellah/online-cupboard/internal/session"
	"github.com/mr-abdellah/online-cupboard/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)
	resolver := access.NewPostgres(dataStore)

	var blobs blob.Store
	if cfg.BlobBackend == "s3" {
		blobs, err = blob.NewS3Store(blob.S3Config{
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			Bucket:     cfg.S3Bucket,
			UseSSL:     cfg.S3UseSSL,
			StagingDir: cfg.StagingDir,
		})
		if err != nil {
			log.Fatalf("s3 storage init failed: %v", err)
		}
		logger.Info("blob storage ready", "backend", "s3", "bucket", cfg.S3Bucket)
	} else {
		blobs, err = blob.NewLocalStore(cfg.BlobDir)
		if err != nil {
			log.Fatalf("local storage init failed: %v", err)
		}
		logger.Info("blob storage ready", "backend", "local", "dir", cfg.BlobDir)
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("refresh sessions in Redis")
	} else {
		sessions = session.NewPostgresStore(dataStore)
		logger.Info("refresh sessions in Postgres")
	}

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer meiliClient.Close()
	}
	searcher := search.NewService(meiliClient, dataStore, resolver.CanViewDocument)

	cache, err := convert.NewCache(cfg.CacheDir, logger)
	if err != nil {
		log.Fatalf("pdf cache init failed: %v", err)
	}
	temp, err := convert.NewTempManager(cfg.TempDir)
	if err != nil {
		log.Fatalf("temp dir init failed: %v", err)
	}
	locator := &convert.PathLocator{Overrides: map[string]string{
		"soffice":          cfg.SofficePath,
		"unoconv":          cfg.UnoconvPath,
		"chromium":         cfg.ChromiumPath,
		"chromium-browser": cfg.ChromiumPath,
	}}
	runner := convert.NewRunner(logger)
	pipeline := convert.NewPipeline(cache, temp, runner, locator, cfg.ConvertTimeout, logger)

	service := app.New(cfg, dataStore, resolver, sessions, blobs, pipeline, cache, searcher, logger)
	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed, err := cache.Sweep(cfg.CacheMaxAge); err != nil {
					logger.Warn("cache sweep failed", "error", err)
				} else if removed > 0 {
					logger.Info("cache sweep", "removed", removed)
				}
			case <-sweepDone:
				return
			}
		}
	}()

	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	close(sweepDone)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
