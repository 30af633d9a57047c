package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/clipseek/internal/ai"
	"github.com/xxxsen/clipseek/internal/config"
	"github.com/xxxsen/clipseek/internal/db"
	"github.com/xxxsen/clipseek/internal/embedcache"
	"github.com/xxxsen/clipseek/internal/filestore"
	"github.com/xxxsen/clipseek/internal/handler"
	"github.com/xxxsen/clipseek/internal/ingest"
	"github.com/xxxsen/clipseek/internal/job"
	"github.com/xxxsen/clipseek/internal/middleware"
	"github.com/xxxsen/clipseek/internal/repo"
	"github.com/xxxsen/clipseek/internal/schedule"
	"github.com/xxxsen/clipseek/internal/service"
	"github.com/xxxsen/clipseek/internal/youtube"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "clipseek",
		Short: "clipseek video index and search server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run clipseek server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	ingestCmd := &cobra.Command{
		Use:   "ingest <url>",
		Short: "index a video, playlist or channel from the command line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := setup(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runIngest(cmd.Context(), cfg, conn, args[0])
		},
	}
	ingestCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	rootCmd.AddCommand(runCmd, ingestCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

type services struct {
	ingest  *service.IngestService
	search  *service.SearchService
	library *service.LibraryService
	cache   *repo.EmbeddingCacheRepo
}

func buildServices(cfg *config.Config, conn *sql.DB) (*services, error) {
	clipRepo := repo.NewClipRepo(conn)
	cacheRepo := repo.NewEmbeddingCacheRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return nil, fmt.Errorf("init ai provider: %w", err)
	}
	generator := ai.NewGenerator(provider, cfg.AI.Model)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, cacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(embedder, cfg.EmbedCache.LRUSize,
		time.Duration(cfg.EmbedCache.LRUTTLMinutes)*time.Minute)

	var archive filestore.Store
	if cfg.Ingest.CaptionArchive != nil {
		archive, err = filestore.New(*cfg.Ingest.CaptionArchive)
		if err != nil {
			return nil, fmt.Errorf("init caption archive: %w", err)
		}
	}

	source := youtubeClient(cfg)
	chunker := ingest.NewChunker(cfg.Ingest.ChunkSeconds)
	ingestSvc := service.NewIngestService(source, clipRepo, embedder, chunker, archive,
		time.Duration(cfg.Ingest.VideoDelayMS)*time.Millisecond)

	// Requests carrying X-API-Key get a private provider built on the
	// configured args with only the key swapped.
	override := func(apiKey string) (ai.IEmbedder, ai.IGenerator, error) {
		p, err := ai.NewProvider(cfg.AI.Provider, ai.OverrideAPIKey(cfg.AI.Data, apiKey))
		if err != nil {
			return nil, nil, err
		}
		return ai.NewEmbedder(p, cfg.AI.EmbedModel), ai.NewGenerator(p, cfg.AI.Model), nil
	}
	searchSvc := service.NewSearchService(clipRepo, embedder, generator, override,
		cfg.Search.IntroSkipSeconds, cfg.Search.CandidateMultiplier)
	librarySvc := service.NewLibraryService(clipRepo)

	return &services{
		ingest:  ingestSvc,
		search:  searchSvc,
		library: librarySvc,
		cache:   cacheRepo,
	}, nil
}

func youtubeClient(cfg *config.Config) *youtube.Client {
	hc := &http.Client{Timeout: 30 * time.Second}
	return youtube.NewClient(hc, time.Duration(cfg.Ingest.RequestIntervalMS)*time.Millisecond)
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info("starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
	)

	svcs, err := buildServices(cfg, conn)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Ingest:  handler.NewIngestHandler(svcs.ingest),
		Search:  handler.NewSearchHandler(svcs.search),
		Library: handler.NewLibraryHandler(svcs.library),
		Health:  handler.NewHealthHandler(ai.HasAPIKey(cfg.AI.Data)),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllowlist),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ingest"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(job.NewEmbeddingCacheCleanupJob(svcs.cache, cfg.EmbedCache.MaxAgeDays), cfg.EmbedCache.CleanupSpec); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()
	logutil.GetLogger(context.Background()).Info("http server listening",
		zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIngest(ctx context.Context, cfg *config.Config, conn *sql.DB, url string) error {
	svcs, err := buildServices(cfg, conn)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	events, err := svcs.ingest.Ingest(ctx, url)
	if err != nil {
		return err
	}
	failed := false
	for event := range events {
		fmt.Println(event.Message)
		if event.Failed {
			failed = true
		}
	}
	if failed {
		return fmt.Errorf("ingest finished with errors")
	}
	return nil
}
