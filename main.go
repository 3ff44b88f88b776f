package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rankwell/admin"
	"rankwell/auth"
	"rankwell/blog"
	"rankwell/cache"
	"rankwell/common"
	"rankwell/config"
	"rankwell/database"
	"rankwell/draft"
	"rankwell/editor"
	"rankwell/events"
	"rankwell/metrics"
	"rankwell/moderation"
	"rankwell/query"
	"rankwell/repository"
	"rankwell/site"
	"rankwell/storage"
	"rankwell/submission"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger := common.NewLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	db, err := common.ConnectDb(cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.RunMigrations(db, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	if err := database.EnsureAdmin(db, cfg.Admin.Email, cfg.Admin.Password, logger); err != nil {
		logger.Fatal("failed to create admin user", zap.Error(err))
	}

	hub := events.NewHub()
	if err := events.Watch(db, hub, logger, "business_listings", "blog_posts"); err != nil {
		logger.Fatal("failed to register change callbacks", zap.Error(err))
	}

	ctx := context.Background()
	drafts, err := newDraftStore(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open draft store", zap.Error(err))
	}
	saver := draft.NewAutosaver(drafts, cfg.Drafts.Debounce, logger)
	saver.OnSave(func(_ string, err error) {
		metrics.DraftSaves.WithLabelValues(metrics.Outcome(err)).Inc()
	})

	blobs, err := storage.NewProvider(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("failed to configure storage", zap.Error(err))
	}

	fc := cache.New(cfg.Cache.Dir, cfg.Cache.MaxAge)
	go sweepCache(fc, cfg.Cache.MaxAge, logger)

	listings := repository.NewListings(db)
	posts := repository.NewPosts(db)
	queries := query.NewService(db)
	pipeline := submission.NewPipeline(listings, posts, blobs, drafts, fc, logger)
	moderator := moderation.NewService(listings, fc, logger)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), common.RequestLogger(logger), metrics.Middleware())

	authModule := auth.NewAuthModule(db, logger)
	router.Use(auth.Sessions(auth.SessionStore(cfg.Session)), authModule.LoadSession)
	authModule.RegisterRoutes(router)

	if local, ok := blobs.(*storage.LocalStorage); ok {
		router.Static("/uploads", local.BasePath())
	}
	router.GET("/metrics", metrics.Handler())

	site.NewSiteModule(queries, pipeline, editor.NewListingEditor(listings, saver), fc, cfg.Server.Domain, logger).RegisterRoutes(router)
	blog.NewBlogModule(queries, fc, logger).RegisterRoutes(router)
	admin.NewAdminModule(admin.Deps{
		Queries:    queries,
		Moderation: moderator,
		Pipeline:   pipeline,
		Posts:      posts,
		PostEditor: editor.NewPostEditor(posts, saver),
		Hub:        hub,
		Cache:      fc,
	}, logger).RegisterRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	// pending autosaves would otherwise be lost
	if err := saver.Close(shutdownCtx); err != nil {
		logger.Error("flushing drafts failed", zap.Error(err))
	}
}

func newDraftStore(ctx context.Context, cfg *config.Config) (draft.Store, error) {
	if cfg.Drafts.Backend != "redis" {
		return draft.NewMemoryStore(), nil
	}
	store := draft.NewRedisStore(draft.NewRedisClient(cfg.Redis), cfg.Drafts.TTL)
	if err := store.Ping(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func sweepCache(fc *cache.FileCache, every time.Duration, logger *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for range ticker.C {
		if err := fc.ClearOldCache(); err != nil {
			logger.Warn("clearing old cache failed", zap.Error(err))
		}
	}
}
