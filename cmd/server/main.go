package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/takeabreak/internal/api"
	"github.com/neexbeast/takeabreak/internal/cache"
	"github.com/neexbeast/takeabreak/internal/chat"
	"github.com/neexbeast/takeabreak/internal/config"
	"github.com/neexbeast/takeabreak/internal/gemini"
	"github.com/neexbeast/takeabreak/internal/location"
	"github.com/neexbeast/takeabreak/internal/metrics"
	"github.com/neexbeast/takeabreak/internal/profile"
	"github.com/neexbeast/takeabreak/internal/session"
	"github.com/neexbeast/takeabreak/internal/storage"
	"github.com/neexbeast/takeabreak/internal/vibe"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	if err := run(log); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Load the catalog; the database is only consulted once, here.
	var dbPinger api.Pinger
	var catalog *location.Catalog
	if cfg.CatalogDatabaseURL != "" {
		pool, err := storage.Connect(ctx, cfg.CatalogDatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer pool.Close()
		dbPinger = pool

		applied, err := storage.RunMigrations(ctx, pool, os.DirFS(cfg.MigrationsDir))
		if err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		log.Info("migrations applied", "count", applied)

		catalog, err = loadDatabaseCatalog(ctx, storage.NewRepository(pool), cfg.CatalogPath, log)
		if err != nil {
			return err
		}
	} else {
		catalog, err = location.LoadCatalogFile(cfg.CatalogPath)
		if err != nil {
			return fmt.Errorf("loading catalog: %w", err)
		}
	}
	log.Info("catalog loaded", "locations", catalog.Len(), "cities", len(catalog.Cities()))

	// Connect to Redis.
	redisClient, err := cache.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisClient.Close() }()

	sb, err := profile.NewSupabase(cfg.SupabaseURL, cfg.SupabaseServiceKey)
	if err != nil {
		return fmt.Errorf("connecting to supabase: %w", err)
	}

	llm := gemini.NewClient(gemini.Config{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	if !llm.Configured() {
		log.Warn("GEMINI_API_KEY not set; chat and vibes are unavailable")
	}

	// Wire dependencies.
	collector := metrics.NewCollector("takeabreak")
	sessions := session.NewRegistry(catalog)
	chatService := chat.NewService(sessions, llm, cache.NewExchangeLock(redisClient), collector, log)
	vibeService := vibe.NewService(llm, cache.NewVibeCache(redisClient), collector)
	profileService := profile.NewService(sb, sb)

	handlers := api.NewHandlers(api.Deps{
		Catalog:  catalog,
		Sessions: sessions,
		Chat:     chatService,
		Vibes:    vibeService,
		Avatars:  profileService,
	}, log)

	router := api.NewRouter(handlers, api.RouterDeps{
		Verifier: sb,
		Redis:    &redisPingerAdapter{client: redisClient},
		DB:       dbPinger,
		Metrics:  collector,
		Log:      log,
	})

	go sweepSessions(ctx, sessions, cfg.SessionIdleTTL, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("server goroutine panicked", "recover", r)
				errCh <- fmt.Errorf("server panicked: %v", r)
			}
		}()
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("listening: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		log.Info("shutdown signal received", "signal", sig)
	case err := <-errCh:
		return err
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server shut down cleanly")
	return nil
}

// loadDatabaseCatalog reads the locations table, seeding it from the catalog file when empty.
func loadDatabaseCatalog(ctx context.Context, repo *storage.Repository, seedPath string, log *slog.Logger) (*location.Catalog, error) {
	catalog, err := repo.LoadCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog from database: %w", err)
	}
	if catalog.Len() > 0 {
		return catalog, nil
	}

	seed, err := location.LoadCatalogFile(seedPath)
	if err != nil {
		return nil, fmt.Errorf("loading seed catalog: %w", err)
	}
	if err := repo.UpsertLocations(ctx, seed.All()); err != nil {
		return nil, fmt.Errorf("seeding catalog: %w", err)
	}
	log.Info("catalog table seeded", "path", seedPath, "locations", seed.Len())

	return seed, nil
}

// sweepSessions drops idle in-memory sessions until ctx is cancelled.
func sweepSessions(ctx context.Context, sessions *session.Registry, idle time.Duration, log *slog.Logger) {
	if idle <= 0 {
		return
	}
	interval := max(idle/4, time.Minute)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(idle); n > 0 {
				log.Info("idle sessions dropped", "count", n, "live", sessions.Len())
			}
		}
	}
}

// redisPingerAdapter adapts redis.Client to the api.Pinger interface.
type redisPingerAdapter struct {
	client *redis.Client
}

func (r *redisPingerAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
