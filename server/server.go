package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iyedlimem/Flenci-server-side/config"
	"github.com/iyedlimem/Flenci-server-side/core/audio"
	"github.com/iyedlimem/Flenci-server-side/core/auth"
	"github.com/iyedlimem/Flenci-server-side/core/pipeline"
	"github.com/iyedlimem/Flenci-server-side/db"
	"github.com/iyedlimem/Flenci-server-side/logger"
	"github.com/iyedlimem/Flenci-server-side/repository"
	"github.com/iyedlimem/Flenci-server-side/storage"

	"github.com/gorilla/mux"
)

// Start initializes dependencies and runs the HTTP server until a shutdown
// signal arrives.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Compress:   true,
	})

	auth.Init(cfg.JWTSecret)

	if err := storage.InitMinio(cfg); err != nil {
		logger.Fatal("Failed to initialize MinIO", logger.ErrorField(err))
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("Failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("Failed to initialize database", logger.ErrorField(err))
	}

	if err := db.ConnectGormDB(cfg); err != nil {
		logger.Fatal("Failed to connect GORM", logger.ErrorField(err))
	}
	defer db.CloseGormDB()

	if err := db.ConnectRedis(cfg); err != nil {
		logger.Fatal("Failed to connect to Redis", logger.ErrorField(err))
	}
	defer db.CloseRedis()

	store := storage.NewMinioStore(cfg)
	engine := audio.NewFFmpegEngine(cfg.FFmpegPath)
	orchestrator := pipeline.NewOrchestrator(engine, store, pipeline.Config{
		StagingDir:      cfg.StagingDir,
		CanonicalFormat: cfg.CanonicalFormat,
		AudioBitrate:    cfg.AudioBitrate,
		EngineTimeout:   cfg.EngineTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper, err := pipeline.NewSweeper(cfg.StagingDir, cfg.StagingTTL)
	if err != nil {
		logger.Fatal("Failed to start staging sweeper", logger.ErrorField(err))
	}
	go sweeper.Run(ctx)

	apiHandler := NewAPIHandler(
		repository.NewMySQLUserRepository(),
		repository.NewMySQLTrackRepository(),
		repository.NewMySQLPlaylistRepository(),
		repository.NewGormCommentRepository(),
		repository.NewGormEventRepository(),
		orchestrator,
		cfg,
	)

	router := newRouter(apiHandler, NewStaticHandler(store))

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // Pipeline endpoints wait on the engine
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("Server listening", logger.String("addr", cfg.ListenAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", logger.ErrorField(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", logger.ErrorField(err))
	}
	logger.Info("Server stopped")
}

func newRouter(apiHandler *APIHandler, staticHandler *StaticHandler) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware)

	// Authentication
	router.HandleFunc("/api/auth/register", apiHandler.RegisterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", apiHandler.LoginHandler).Methods(http.MethodPost)

	// Users
	router.HandleFunc("/api/users", apiHandler.AuthMiddleware(apiHandler.GetUsersHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/users/{id}", apiHandler.GetUserHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/me", apiHandler.AuthMiddleware(apiHandler.MeHandler)).Methods(http.MethodGet)

	// Audio pipeline
	router.HandleFunc("/api/upload", apiHandler.AuthMiddleware(apiHandler.UploadTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/merge", apiHandler.AuthMiddleware(apiHandler.MergeTracksHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/trim", apiHandler.AuthMiddleware(apiHandler.TrimTrackHandler)).Methods(http.MethodPost)

	// Tracks
	router.HandleFunc("/api/tracks", apiHandler.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks", apiHandler.AuthMiddleware(apiHandler.CreateTrackHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/releases", apiHandler.AuthMiddleware(apiHandler.GetReleasesHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/liked", apiHandler.AuthMiddleware(apiHandler.GetLikedTracksHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.GetTrackHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteTrackHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/like", apiHandler.AuthMiddleware(apiHandler.LikeTrackHandler)).Methods(http.MethodPost)

	// Playlists and comments
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.GetPlaylistsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.AuthMiddleware(apiHandler.CreatePlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.UpdatePlaylistHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.AuthMiddleware(apiHandler.DeletePlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", apiHandler.AuthMiddleware(apiHandler.AddTrackToPlaylistHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks/{trackId}", apiHandler.AuthMiddleware(apiHandler.RemoveTrackFromPlaylistHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/comments", apiHandler.AuthMiddleware(apiHandler.AddCommentHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/comments/{commentId}", apiHandler.AuthMiddleware(apiHandler.DeleteCommentHandler)).Methods(http.MethodDelete)

	// Events
	router.HandleFunc("/api/events", apiHandler.GetEventsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events", apiHandler.AuthMiddleware(apiHandler.CreateEventHandler)).Methods(http.MethodPost)
	router.HandleFunc("/api/events/saved", apiHandler.AuthMiddleware(apiHandler.GetSavedEventsHandler)).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}", apiHandler.GetEventHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/events/{id}", apiHandler.AuthMiddleware(apiHandler.UpdateEventHandler)).Methods(http.MethodPut)
	router.HandleFunc("/api/events/{id}", apiHandler.AuthMiddleware(apiHandler.DeleteEventHandler)).Methods(http.MethodDelete)
	router.HandleFunc("/api/events/{id}/save", apiHandler.AuthMiddleware(apiHandler.SaveEventHandler)).Methods(http.MethodPost)

	// Stored assets
	router.PathPrefix("/static/").Handler(staticHandler)

	return router
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
