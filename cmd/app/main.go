package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/gtlocalize/storypath/internal/config"
	"github.com/gtlocalize/storypath/internal/dispatcher"
	"github.com/gtlocalize/storypath/internal/limiter"
	"github.com/gtlocalize/storypath/internal/logger"
	"github.com/gtlocalize/storypath/internal/measure"
	"github.com/gtlocalize/storypath/internal/metrics"
	"github.com/gtlocalize/storypath/internal/orchestrator"
	"github.com/gtlocalize/storypath/internal/queue"
	"github.com/gtlocalize/storypath/internal/statuscheck"
	"github.com/gtlocalize/storypath/internal/storage"
	"github.com/gtlocalize/storypath/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	_ = logger.Init(logger.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	defer logger.Close()

	metrics.Init()

	scenes, err := store.NewSceneStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init scene store")
	}
	defer scenes.Close()

	layouts, err := store.NewLayoutStore(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init layout store")
	}
	defer layouts.Close()

	status, err := store.NewRedisStatus(cfg.Queue.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init status store")
	}
	defer status.Close()

	q, err := queue.NewRedisQueue(cfg.Queue.RedisURL, cfg.Queue.Stream, cfg.Queue.Group)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional S3 archive for compiled layouts and cover assets.
	var archive *storage.S3Client
	if cfg.Archive.Enabled {
		archive, err = storage.NewS3Client(ctx, cfg.Archive.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init layout archive")
		}
	}

	bookCfg := measure.Config{
		PageWidth:     cfg.Book.PageWidth,
		PageHeight:    cfg.Book.PageHeight,
		Padding:       cfg.Book.Padding,
		ImageFraction: cfg.Book.ImageFraction,
		ImageTextGap:  cfg.Book.ImageTextGap,
		LineSpacing:   cfg.Book.LineSpacing,
		FontSize:      cfg.Book.FontSize,
		ParagraphGap:  cfg.Book.ParagraphGap,
		DropCapExtra:  cfg.Book.DropCapExtra,
	}

	orchDeps := orchestrator.Dependencies{
		Scenes:  scenes,
		Layouts: layouts,
		Status:  orchestrator.NewStatusAdapter(status),
		Queue:   q,
		Limiter: limiter.New(cfg.Server.ViewRatePerSec, cfg.Server.ViewBurst),
	}
	checkOpts := statuscheck.Options{Redis: q}
	if archive != nil {
		orchDeps.Assets = archive
		checkOpts.Archive = archive
	}
	orchDeps.Checker = statuscheck.New(checkOpts)

	orch := orchestrator.New(orchestrator.Config{
		AdminTokenHash: cfg.Server.AdminTokenHash,
		LockTTL:        cfg.Worker.LockTTL,
	}, orchDeps)

	mux := http.NewServeMux()
	orch.RegisterRoutes(mux)
	mux.Handle("/metrics", metrics.Handler())

	// Compile workers
	workerDeps := dispatcher.Dependencies{
		Queue:   q,
		Scenes:  scenes,
		Layouts: layouts,
		Status:  status,
	}
	if archive != nil {
		workerDeps.Archive = archive
	}
	worker := dispatcher.New(dispatcher.Config{
		Concurrency:   cfg.Worker.Concurrency,
		DequeueBlock:  cfg.Queue.DequeueBlock,
		ArchivePrefix: cfg.Archive.Prefix,
		Book:          bookCfg,
	}, workerDeps)
	go func() {
		if err := worker.Run(ctx); err != nil {
			log.Error().Err(err).Msg("compile worker pool exited")
		}
	}()

	// Queue depth gauges
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if stream, dlq, err := q.Depths(ctx); err == nil {
					metrics.SetQueueDepth("stream", stream)
					metrics.SetQueueDepth("dlq", dlq)
				}
			}
		}
	}()

	srv := &http.Server{Addr: ":" + cfg.Server.Port, Handler: mux}
	go func() {
		log.Info().Msgf("HTTP server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	fmt.Println("shutdown complete")
}
